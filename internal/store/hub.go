package store

import (
	"context"
	"sync"
)

// hub fans change signals out to the watchers of each room.
type hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
	closed   chan struct{}
	once     sync.Once
}

func newHub() *hub {
	return &hub{
		watchers: make(map[string]map[chan struct{}]struct{}),
		closed:   make(chan struct{}),
	}
}

// subscribe registers a watcher for room. The returned wait blocks until
// the room changes; cancel unregisters it.
func (h *hub) subscribe(room string) (wait waitFunc, cancel func()) {
	sig := make(chan struct{}, 1)
	h.mu.Lock()
	if h.watchers[room] == nil {
		h.watchers[room] = make(map[chan struct{}]struct{})
	}
	h.watchers[room][sig] = struct{}{}
	h.mu.Unlock()

	wait = func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.closed:
			return ErrClosed
		case <-sig:
			return nil
		}
	}
	cancel = func() {
		h.mu.Lock()
		delete(h.watchers[room], sig)
		if len(h.watchers[room]) == 0 {
			delete(h.watchers, room)
		}
		h.mu.Unlock()
	}
	return wait, cancel
}

// notify wakes every watcher of room. Signals coalesce.
func (h *hub) notify(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sig := range h.watchers[room] {
		select {
		case sig <- struct{}{}:
		default:
		}
	}
}

func (h *hub) close() {
	h.once.Do(func() { close(h.closed) })
}

func (h *hub) isClosed() bool {
	select {
	case <-h.closed:
		return true
	default:
		return false
	}
}
