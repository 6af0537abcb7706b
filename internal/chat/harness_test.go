package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/murmur/internal/mirror"
	"github.com/naveenspark/murmur/internal/prefs"
	"github.com/naveenspark/murmur/internal/store"
	"github.com/naveenspark/murmur/pkg/client"
	"github.com/naveenspark/murmur/pkg/domain"
)

const testRoom = "test-room"

// settleQuiet is how long the harness waits for further messages before
// considering the model idle.
const settleQuiet = 100 * time.Millisecond

type replierFunc func(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)

func (f replierFunc) Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error) {
	return f(ctx, req)
}

// reply returns a replier answering text and counting calls.
func reply(text string, calls *int) replierFunc {
	var mu sync.Mutex
	return func(_ context.Context, req client.ChatRequest) (*client.ChatResponse, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return &client.ChatResponse{Response: text}, nil
	}
}

type faultyMirror struct {
	*mirror.Adapter
	appendErr error
	clearErr  error
}

func (f *faultyMirror) Append(ctx context.Context, room string, m domain.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Adapter.Append(ctx, room, m)
}

func (f *faultyMirror) Clear(ctx context.Context, room string) (mirror.ClearResult, error) {
	if f.clearErr != nil {
		return mirror.ClearResult{Attempted: 2, Failed: 1}, f.clearErr
	}
	return f.Adapter.Clear(ctx, room)
}

type savedPrefs struct {
	mu  sync.Mutex
	got []prefs.Prefs
}

func (s *savedPrefs) Save(p prefs.Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, p)
	return nil
}

func (s *savedPrefs) last() (prefs.Prefs, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return prefs.Prefs{}, false
	}
	return s.got[len(s.got)-1], true
}

// heldMsg is a timer message kept back until the test fires it.
type heldMsg struct {
	msg tea.Msg
}

// harness runs a Model the way the bubbletea loop does: commands execute
// on their own goroutines and their messages are fed back to Update.
type harness struct {
	t          *testing.T
	m          Model
	st         *store.Memory
	results    chan tea.Msg
	held       []tea.Msg
	holdTyping bool
}

type harnessOpt func(*harness, *Options)

func holdTyping() harnessOpt {
	return func(h *harness, _ *Options) { h.holdTyping = true }
}

func withOptions(fn func(*Options)) harnessOpt {
	return func(_ *harness, o *Options) { fn(o) }
}

func newHarness(t *testing.T, r Replier, opts ...harnessOpt) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{t: t, st: store.NewMemory(), results: make(chan tea.Msg, 64)}
	o := Options{
		Room:      domain.Room{ID: testRoom, Name: "Test"},
		Mirror:    mirror.New(h.st),
		Replier:   r,
		Jitter:    func() float64 { return 0 },
		ExportDir: t.TempDir(),
	}
	for _, opt := range opts {
		opt(h, &o)
	}
	hold := h.holdTyping
	o.Tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		return func() tea.Msg {
			msg := fn(time.Time{})
			if _, ok := msg.(typingTickMsg); ok && !hold {
				return msg
			}
			return heldMsg{msg: msg}
		}
	}
	h.m = New(ctx, o)
	h.run(h.m.Init())
	h.settle()
	return h
}

func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { h.results <- cmd() }()
}

func (h *harness) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case nil:
	case heldMsg:
		h.held = append(h.held, msg.msg)
	case tea.BatchMsg:
		for _, cmd := range msg {
			h.run(cmd)
		}
	default:
		var cmd tea.Cmd
		h.m, cmd = h.m.Update(msg)
		h.run(cmd)
	}
}

// settle processes messages until none arrive for settleQuiet.
func (h *harness) settle() {
	for {
		select {
		case msg := <-h.results:
			h.handle(msg)
		case <-time.After(settleQuiet):
			return
		}
	}
}

// fire feeds held timer messages matching keep to Update, then settles.
func (h *harness) fire(keep func(tea.Msg) bool) int {
	var rest []tea.Msg
	fired := 0
	held := h.held
	h.held = nil
	for _, msg := range held {
		if keep(msg) {
			fired++
			h.handle(msg)
		} else {
			rest = append(rest, msg)
		}
	}
	h.held = append(rest, h.held...)
	h.settle()
	return fired
}

func isTypingTick(msg tea.Msg) bool {
	_, ok := msg.(typingTickMsg)
	return ok
}

func isToastExpiry(msg tea.Msg) bool {
	_, ok := msg.(toastExpiredMsg)
	return ok
}

func (h *harness) send(text string) bool {
	h.t.Helper()
	m, cmd, ok := h.m.Send(text)
	h.m = m
	h.run(cmd)
	h.settle()
	return ok
}

func (h *harness) apply(a Action) {
	m, cmd := h.m.Apply(a)
	h.m = m
	h.run(cmd)
	h.settle()
}

func (h *harness) docs() []store.Document {
	h.t.Helper()
	docs, err := h.st.List(context.Background(), testRoom)
	if err != nil {
		h.t.Fatalf("List() error: %v", err)
	}
	return docs
}

func (h *harness) hasToast(text string, sev domain.Severity) bool {
	for _, t := range h.m.Toasts() {
		if t.Text == text && t.Severity == sev {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
