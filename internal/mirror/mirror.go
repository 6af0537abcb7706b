// Package mirror keeps a local, ordered copy of a room's messages in step
// with the document store and writes new messages to it.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/naveenspark/murmur/internal/store"
	"github.com/naveenspark/murmur/pkg/domain"
	"go.uber.org/zap"
)

// ConnErrText is the notice shown while the room subscription is down.
const ConnErrText = "Failed to load chat history. Please check your connection."

// welcomeKey identifies the synthesized welcome entry.
const welcomeKey = "welcome"

// Reconnect delays.
const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// ConnError reports a failed or lost room subscription.
type ConnError struct {
	Cause error
}

func (e *ConnError) Error() string { return ConnErrText }
func (e *ConnError) Unwrap() error { return e.Cause }

// Update is one delivery from Subscribe.
type Update struct {
	Snapshot []domain.Message // full ordered room contents, nil when Err is set
	Err      error            // *ConnError
}

// ClearResult counts the deletes issued by Clear.
type ClearResult struct {
	Attempted int
	Failed    int
}

// Adapter mirrors rooms of a store into domain messages.
type Adapter struct {
	store      store.Store
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu        sync.Mutex
	ids       map[string]int64
	nextID    int64
	welcomeAt time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(lo, hi time.Duration) Option {
	return func(a *Adapter) {
		a.minBackoff = lo
		a.maxBackoff = hi
	}
}

// New creates an adapter over s.
func New(s store.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:      s,
		logger:     zap.NewNop(),
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		ids:        make(map[string]int64),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the local identifier for a document key. The same key always
// maps to the same ID within a session; new keys get increasing IDs.
func (a *Adapter) ID(key string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.idLocked(key)
}

func (a *Adapter) idLocked(key string) int64 {
	if id, ok := a.ids[key]; ok {
		return id
	}
	a.nextID++
	a.ids[key] = a.nextID
	return a.nextID
}

// Welcome returns the synthesized message shown for an empty room.
func (a *Adapter) Welcome() domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.welcomeAt.IsZero() {
		a.welcomeAt = time.Now()
	}
	return domain.Message{
		ID:        a.idLocked(welcomeKey),
		Key:       welcomeKey,
		Text:      domain.WelcomeText,
		Author:    domain.AuthorAssistant,
		CreatedAt: a.welcomeAt,
		Welcome:   true,
	}
}

// Subscribe mirrors room until ctx is canceled, then closes the channel.
// Every Update carries the full snapshot. A lost or failed subscription is
// reported as an Update with Err set and re-established with exponential
// backoff; the first snapshot after that replaces everything before it.
func (a *Adapter) Subscribe(ctx context.Context, roomID string) <-chan Update {
	out := make(chan Update, 1)
	go a.run(ctx, roomID, out)
	return out
}

func (a *Adapter) run(ctx context.Context, roomID string, out chan<- Update) {
	defer close(out)
	delay := a.minBackoff
	for {
		healthy, err := a.watchOnce(ctx, roomID, out)
		if ctx.Err() != nil {
			return
		}
		if healthy {
			delay = a.minBackoff
		}
		a.logger.Warn("room_watch_lost",
			zap.String("room", roomID),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if !a.send(ctx, out, Update{Err: &ConnError{Cause: err}}) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > a.maxBackoff {
			delay = a.maxBackoff
		}
	}
}

// watchOnce forwards snapshots from one store watch until it ends. healthy
// reports whether at least one snapshot was delivered.
func (a *Adapter) watchOnce(ctx context.Context, roomID string, out chan<- Update) (healthy bool, err error) {
	events, err := a.store.Watch(ctx, roomID)
	if err != nil {
		return false, err
	}
	for ev := range events {
		if ev.Err != nil {
			return healthy, ev.Err
		}
		if !a.send(ctx, out, Update{Snapshot: a.snapshot(ev.Docs)}) {
			return healthy, ctx.Err()
		}
		healthy = true
	}
	if err := ctx.Err(); err != nil {
		return healthy, err
	}
	return healthy, errors.New("watch ended")
}

func (a *Adapter) send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Adapter) snapshot(docs []store.Document) []domain.Message {
	if len(docs) == 0 {
		return []domain.Message{a.Welcome()}
	}
	msgs := make([]domain.Message, len(docs))
	for i, d := range docs {
		msgs[i] = a.toMessage(d)
	}
	return msgs
}

func (a *Adapter) toMessage(d store.Document) domain.Message {
	author := domain.AuthorAssistant
	if d.IsUser {
		author = domain.AuthorUser
	}
	return domain.Message{
		ID:        a.ID(d.Key),
		Key:       d.Key,
		Text:      d.Text,
		Author:    author,
		CreatedAt: d.Timestamp,
		Reactions: domain.NewReactions(d.Reactions...),
		Kind:      d.Kind,
		Mood:      d.Mood,
	}
}

// ToDocument converts a message to its stored form.
func ToDocument(m domain.Message) store.Document {
	return store.Document{
		Key:       m.Key,
		Text:      m.Text,
		IsUser:    m.IsUser(),
		Timestamp: m.CreatedAt,
		Reactions: m.Reactions.Sorted(),
		Kind:      m.Kind,
		Mood:      m.Mood,
	}
}

// Load reads the stored conversation once, oldest first. An empty room
// yields no messages.
func (a *Adapter) Load(ctx context.Context, roomID string) ([]domain.Message, error) {
	docs, err := a.store.List(ctx, roomID)
	if err != nil {
		return nil, &ConnError{Cause: err}
	}
	msgs := make([]domain.Message, len(docs))
	for i, d := range docs {
		msgs[i] = a.toMessage(d)
	}
	return msgs, nil
}

// Append writes m as a new document. It is not retried.
func (a *Adapter) Append(ctx context.Context, roomID string, m domain.Message) error {
	if !m.Persisted() {
		return fmt.Errorf("mirror.Append: message %q is not persistable", m.Key)
	}
	if err := a.store.Add(ctx, roomID, ToDocument(m)); err != nil {
		a.logger.Error("message_append_failed", zap.String("room", roomID), zap.String("key", m.Key), zap.Error(err))
		return fmt.Errorf("mirror.Append: %w", err)
	}
	a.logger.Debug("message_appended", zap.String("room", roomID), zap.String("key", m.Key), zap.Bool("is_user", m.IsUser()))
	return nil
}

// Clear deletes every document in the room, one delete per document, all
// issued concurrently. It is not atomic: if some deletes fail the others
// still take effect and the error reports how many failed.
func (a *Adapter) Clear(ctx context.Context, roomID string) (ClearResult, error) {
	docs, err := a.store.List(ctx, roomID)
	if err != nil {
		return ClearResult{}, fmt.Errorf("mirror.Clear: list: %w", err)
	}

	res := ClearResult{Attempted: len(docs)}
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for _, d := range docs {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if err := a.store.Delete(ctx, roomID, key); err != nil {
				mu.Lock()
				res.Failed++
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		}(d.Key)
	}
	wg.Wait()

	a.logger.Info("room_cleared",
		zap.String("room", roomID),
		zap.Int("attempted", res.Attempted),
		zap.Int("failed", res.Failed),
	)
	if res.Failed > 0 {
		return res, fmt.Errorf("mirror.Clear: %d of %d deletes failed: %w", res.Failed, res.Attempted, first)
	}
	return res, nil
}
