// Package chat is the conversation controller: it owns the live message
// list of one room, sends user messages, plays back replies and keeps the
// list reconciled with the room's store snapshots.
package chat

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/murmur/internal/capability"
	"github.com/naveenspark/murmur/internal/export"
	"github.com/naveenspark/murmur/internal/mirror"
	"github.com/naveenspark/murmur/internal/prefs"
	"github.com/naveenspark/murmur/pkg/client"
	"github.com/naveenspark/murmur/pkg/domain"
)

// Notices shown by the controller.
const (
	SaveFailedText  = "Failed to save message. Please try again."
	ClearFailedText = "Failed to clear chat. Please try again."
	ClearedText     = "Chat cleared successfully"
	BusyText        = "Please wait for the current reply to finish"
)

// maxToasts bounds the toast stack; the oldest is dropped first.
const maxToasts = 4

// Mirror is the room store adapter used by the controller.
type Mirror interface {
	Subscribe(ctx context.Context, roomID string) <-chan mirror.Update
	Append(ctx context.Context, roomID string, m domain.Message) error
	Clear(ctx context.Context, roomID string) (mirror.ClearResult, error)
	ID(key string) int64
}

// Replier produces assistant replies.
type Replier interface {
	Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)
}

// PrefsSaver persists theme and settings.
type PrefsSaver interface {
	Save(p prefs.Prefs) error
}

// TickFunc schedules a message after a delay. tea.Tick is the default.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Options configures a Model.
type Options struct {
	Room    domain.Room
	Mirror  Mirror
	Replier Replier
	Prefs   PrefsSaver      // optional
	Bell    capability.Bell // optional
	Initial prefs.Prefs

	Timeout     time.Duration // per reply; client.DefaultTimeout when zero
	MaxInputLen int           // domain.MaxInputLen when zero
	ExportDir   string
	Logger      *zap.Logger

	Jitter func() float64   // [0,1); rand.Float64 when nil
	Now    func() time.Time // time.Now when nil
	NewKey func() string    // uuid.NewString when nil
	Tick   TickFunc
}

// Model is the controller state. It is a bubbletea sub-model: all changes
// happen in Update or in the intent methods, which return the next Model.
type Model struct {
	opts    Options
	ctx     context.Context
	updates <-chan mirror.Update

	snapshot []domain.Message
	pending  []domain.Message
	typing   *domain.Message
	play     playback
	overlay  map[string]domain.Reactions
	messages []domain.Message

	phase      Phase
	inflight   domain.Message // user message of the current exchange
	connected  bool
	connErr    string
	loaded     bool
	banner     string
	toasts     []domain.Toast
	nextToast  int
	state      UIState
	lastExport string
}

// New creates the controller and starts mirroring the room. The
// subscription ends when ctx is canceled.
func New(ctx context.Context, opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = client.DefaultTimeout
	}
	if opts.MaxInputLen <= 0 {
		opts.MaxInputLen = domain.MaxInputLen
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewKey == nil {
		opts.NewKey = uuid.NewString
	}
	if opts.Tick == nil {
		opts.Tick = tea.Tick
	}
	if opts.Room.ID == "" {
		opts.Room.ID = domain.DefaultRoomID
	}
	if opts.Initial.Theme == "" {
		opts.Initial = prefs.Default()
	}
	return Model{
		opts:    opts,
		ctx:     ctx,
		updates: opts.Mirror.Subscribe(ctx, opts.Room.ID),
		state: UIState{
			Theme:    opts.Initial.Theme,
			Settings: opts.Initial.Settings,
			Author:   ShowAll,
		},
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// --- messages ---

type snapshotMsg struct {
	update mirror.Update
	closed bool
}

type appendedMsg struct {
	key  string
	user bool
	err  error
}

type replyMsg struct {
	key  string
	text string
	err  error
}

type typingTickMsg struct {
	gen int
}

type toastExpiredMsg struct {
	id int
}

type clearedMsg struct {
	res mirror.ClearResult
	err error
}

type prefsSavedMsg struct {
	err error
}

type exportedMsg struct {
	path string
	err  error
}

// --- commands ---

func (m Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		return snapshotMsg{update: u, closed: !ok}
	}
}

func (m Model) appendCmd(msg domain.Message) tea.Cmd {
	mir, room, ctx := m.opts.Mirror, m.opts.Room.ID, m.ctx
	msg.Pending = false
	return func() tea.Msg {
		err := mir.Append(ctx, room, msg)
		return appendedMsg{key: msg.Key, user: msg.IsUser(), err: err}
	}
}

func (m Model) replyCmd(text string) tea.Cmd {
	r, ctx, timeout := m.opts.Replier, m.ctx, m.opts.Timeout
	req := client.ChatRequest{
		Message:     text,
		Personality: m.state.Settings.Personality,
		Mood:        m.state.Settings.Mood,
		ChatRoom:    m.opts.Room.ID,
	}
	key := m.opts.NewKey()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		resp, err := r.Chat(ctx, req)
		if err != nil {
			return replyMsg{key: key, err: err}
		}
		return replyMsg{key: key, text: resp.Response}
	}
}

func (m Model) typingTick(gen int) tea.Cmd {
	d := tokenDelay(m.state.Settings.TypingSpeed, m.opts.Jitter)
	return m.opts.Tick(d, func(time.Time) tea.Msg {
		return typingTickMsg{gen: gen}
	})
}

func (m Model) ringCmd() tea.Cmd {
	bell := m.opts.Bell
	if bell == nil || !m.state.Settings.Sound {
		return nil
	}
	return func() tea.Msg {
		bell.Ring() //nolint:errcheck // best-effort
		return nil
	}
}

// --- intents ---

// Send starts an exchange with text. Text longer than the input limit is
// truncated. Blank text is ignored. While another exchange is in flight the
// send is rejected with an info toast. ok reports whether a send started.
func (m Model) Send(text string) (_ Model, _ tea.Cmd, ok bool) {
	text = domain.Truncate(text, m.opts.MaxInputLen)
	if domain.Blank(text) {
		return m, nil, false
	}
	if m.phase != Idle {
		m, cmd := m.Toast(BusyText, domain.SeverityInfo)
		return m, cmd, false
	}

	key := m.opts.NewKey()
	msg := domain.Message{
		ID:        m.opts.Mirror.ID(key),
		Key:       key,
		Text:      text,
		Author:    domain.AuthorUser,
		CreatedAt: m.opts.Now(),
		Mood:      m.state.Settings.Mood,
		Pending:   true,
	}
	m.pending = append(m.pending, msg)
	m.inflight = msg
	m.phase = Sending
	m.banner = ""
	m.rebuild()

	m.opts.Logger.Info("message_send",
		zap.String("room", m.opts.Room.ID),
		zap.String("key", key),
		zap.Int("runes", len([]rune(text))),
	)
	return m, m.appendCmd(msg), true
}

// ToggleReaction adds symbol to the reactions of message id, or removes it
// if present. Reactions are kept locally and survive snapshot replacement.
func (m Model) ToggleReaction(id int64, symbol string) Model {
	if symbol == "" {
		return m
	}
	for _, msg := range m.messages {
		if msg.ID != id || msg.InProgress {
			continue
		}
		overlay := make(map[string]domain.Reactions, len(m.overlay)+1)
		for k, v := range m.overlay {
			overlay[k] = v
		}
		overlay[msg.Key] = msg.Reactions.Toggle(symbol)
		m.overlay = overlay
		m.rebuild()
		return m
	}
	return m
}

// Clear deletes every message in the room.
func (m Model) Clear() (Model, tea.Cmd) {
	mir, room, ctx := m.opts.Mirror, m.opts.Room.ID, m.ctx
	return m, func() tea.Msg {
		res, err := mir.Clear(ctx, room)
		return clearedMsg{res: res, err: err}
	}
}

// Toast shows a notification that expires after its severity's TTL.
func (m Model) Toast(text string, sev domain.Severity) (Model, tea.Cmd) {
	m.nextToast++
	t := domain.Toast{
		ID:        m.nextToast,
		Text:      text,
		Severity:  sev,
		CreatedAt: m.opts.Now(),
		TTL:       domain.TTLFor(sev),
	}
	toasts := append(append([]domain.Toast(nil), m.toasts...), t)
	if len(toasts) > maxToasts {
		toasts = toasts[len(toasts)-maxToasts:]
	}
	m.toasts = toasts
	id := t.ID
	return m, m.opts.Tick(t.TTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// DismissToast removes a toast. Its pending expiry becomes a no-op.
func (m Model) DismissToast(id int) Model {
	out := make([]domain.Toast, 0, len(m.toasts))
	for _, t := range m.toasts {
		if t.ID != id {
			out = append(out, t)
		}
	}
	m.toasts = out
	return m
}

// DismissAll removes the banner and every toast.
func (m Model) DismissAll() Model {
	m.banner = ""
	m.toasts = nil
	return m
}

// Apply reduces a into the UI state. Theme and settings changes are
// persisted. Turning typing simulation off mid-playback finishes the reply.
func (m Model) Apply(a Action) (Model, tea.Cmd) {
	prev := m.state
	m.state = Reduce(prev, a)
	m.rebuild()

	var cmds []tea.Cmd
	if m.state.Theme != prev.Theme {
		var cmd tea.Cmd
		m, cmd = m.Toast(fmt.Sprintf("Switched to %s mode", m.state.Theme), domain.SeveritySuccess)
		cmds = append(cmds, cmd)
	}
	if m.state.Theme != prev.Theme || m.state.Settings != prev.Settings {
		cmds = append(cmds, m.savePrefsCmd())
	}
	if m.phase == Typing && !m.state.Settings.TypingSimulation {
		var cmd tea.Cmd
		m, cmd = m.finishTyping()
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) savePrefsCmd() tea.Cmd {
	saver := m.opts.Prefs
	if saver == nil {
		return nil
	}
	p := prefs.Prefs{Theme: m.state.Theme, Settings: m.state.Settings}
	return func() tea.Msg {
		return prefsSavedMsg{err: saver.Save(p)}
	}
}

// Export builds the export artifact of the stored conversation.
func (m Model) Export(now time.Time) export.Artifact {
	msgs := reconcile(m.snapshot, nil, nil, m.overlay)
	return export.Build(m.opts.Room.ID, msgs, now)
}

// ExportToFile writes the export artifact to the configured directory.
func (m Model) ExportToFile() (Model, tea.Cmd) {
	a := m.Export(m.opts.Now())
	dir := m.opts.ExportDir
	return m, func() tea.Msg {
		path, err := export.Write(dir, a)
		return exportedMsg{path: path, err: err}
	}
}

// --- update ---

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if msg.closed {
			return m, nil
		}
		if msg.update.Err != nil {
			m.connected = false
			m.connErr = msg.update.Err.Error()
			return m, m.waitForUpdate()
		}
		m.connected = true
		m.connErr = ""
		m.loaded = true
		m.snapshot = msg.update.Snapshot
		m.pending = confirmed(m.pending, m.snapshot)
		m.rebuild()
		return m, m.waitForUpdate()

	case appendedMsg:
		return m.handleAppended(msg)

	case replyMsg:
		return m.handleReply(msg)

	case typingTickMsg:
		if m.phase != Typing || msg.gen != m.play.gen {
			return m, nil
		}
		m.play.revealed++
		if m.play.done() {
			return m.finishTyping()
		}
		t := *m.typing
		t.Text = m.play.visible()
		m.typing = &t
		m.rebuild()
		return m, m.typingTick(m.play.gen)

	case toastExpiredMsg:
		return m.DismissToast(msg.id), nil

	case clearedMsg:
		if msg.err != nil {
			m.opts.Logger.Error("room_clear_failed",
				zap.String("room", m.opts.Room.ID),
				zap.Int("attempted", msg.res.Attempted),
				zap.Int("failed", msg.res.Failed),
				zap.Error(msg.err),
			)
			m.banner = ClearFailedText
			return m.Toast("Failed to clear chat", domain.SeverityError)
		}
		m.banner = ""
		m.overlay = nil
		if m.phase == Idle {
			m.pending = nil
		}
		m.rebuild()
		return m.Toast(ClearedText, domain.SeveritySuccess)

	case prefsSavedMsg:
		if msg.err != nil {
			m.opts.Logger.Warn("prefs_save_failed", zap.Error(msg.err))
			return m.Toast("Could not save preferences", domain.SeverityWarning)
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.opts.Logger.Error("export_failed", zap.Error(msg.err))
			return m.Toast("Failed to export chat", domain.SeverityError)
		}
		m.lastExport = msg.path
		return m.Toast("Chat exported to "+msg.path, domain.SeveritySuccess)
	}
	return m, nil
}

func (m Model) handleAppended(msg appendedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.opts.Logger.Error("message_save_failed",
			zap.String("room", m.opts.Room.ID),
			zap.String("key", msg.key),
			zap.Bool("is_user", msg.user),
			zap.Error(msg.err),
		)
		m.pending = withoutKey(m.pending, msg.key)
		if msg.user && m.phase == Sending && m.inflight.Key == msg.key {
			m.phase = Idle
		}
		m.banner = SaveFailedText
		m.rebuild()
		return m.Toast(SaveFailedText, domain.SeverityError)
	}
	if msg.user && m.phase == Sending && m.inflight.Key == msg.key {
		m.phase = AwaitingReply
		return m, m.replyCmd(m.inflight.Text)
	}
	return m, nil
}

func (m Model) handleReply(msg replyMsg) (Model, tea.Cmd) {
	if m.phase != AwaitingReply {
		return m, nil
	}
	if msg.err != nil {
		failure := client.Classify(msg.err)
		m.opts.Logger.Warn("reply_failed",
			zap.String("room", m.opts.Room.ID),
			zap.String("failure", failure.String()),
			zap.Error(msg.err),
		)
		notice := domain.Message{
			ID:        m.opts.Mirror.ID(msg.key),
			Key:       msg.key,
			Text:      failure.Notice(),
			Author:    domain.AuthorAssistant,
			CreatedAt: m.after(m.inflight.CreatedAt),
			Kind:      domain.KindError,
			Pending:   true,
		}
		m.pending = append(m.pending, notice)
		m.banner = failure.Notice()
		m.phase = Idle
		m.rebuild()
		return m, m.appendCmd(notice)
	}

	m.opts.Logger.Info("reply_received", zap.String("room", m.opts.Room.ID), zap.Int("bytes", len(msg.text)))
	ends := tokenEnds(msg.text)
	m.play = playback{
		gen:  m.play.gen + 1,
		key:  msg.key,
		id:   m.opts.Mirror.ID(msg.key),
		text: msg.text,
		ends: ends,
	}
	m.phase = Typing
	if !m.state.Settings.TypingSimulation || len(ends) == 0 {
		m, cmd := m.finishTyping()
		return m, tea.Batch(cmd, m.ringCmd())
	}
	m.typing = &domain.Message{
		ID:         m.play.id,
		Key:        m.play.key,
		Author:     domain.AuthorAssistant,
		CreatedAt:  m.opts.Now(),
		InProgress: true,
	}
	m.rebuild()
	return m, tea.Batch(m.typingTick(m.play.gen), m.ringCmd())
}

// finishTyping drops the in-progress entry and stores the full reply.
func (m Model) finishTyping() (Model, tea.Cmd) {
	reply := domain.Message{
		ID:        m.play.id,
		Key:       m.play.key,
		Text:      m.play.text,
		Author:    domain.AuthorAssistant,
		CreatedAt: m.after(m.inflight.CreatedAt),
		Mood:      m.state.Settings.Mood,
		Pending:   true,
	}
	m.play.gen++
	m.typing = nil
	m.pending = append(m.pending, reply)
	m.phase = Idle
	m.rebuild()
	return m, m.appendCmd(reply)
}

// after returns the current time, nudged past t so replies sort after the
// message they answer.
func (m Model) after(t time.Time) time.Time {
	now := m.opts.Now()
	if !now.After(t) {
		return t.Add(time.Millisecond)
	}
	return now
}

func (m *Model) rebuild() {
	m.messages = reconcile(m.snapshot, m.pending, m.typing, m.overlay)
}

// --- read surface ---

// Messages returns the full live list, including the in-progress entry.
func (m Model) Messages() []domain.Message { return m.messages }

// Visible returns the list after search and author filters. The
// in-progress entry is shown only when no filter is active.
func (m Model) Visible() []domain.Message {
	out := Filter(m.messages, m.state.Query, m.state.Author)
	if m.typing != nil && !m.state.Filtering() {
		out = append(out, *m.typing)
	}
	return out
}

// Message looks up a live message by local ID.
func (m Model) Message(id int64) (domain.Message, bool) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return domain.Message{}, false
}

func (m Model) Phase() Phase           { return m.phase }
func (m Model) Connected() bool        { return m.connected }
func (m Model) ConnErr() string        { return m.connErr }
func (m Model) Banner() string         { return m.banner }
func (m Model) Toasts() []domain.Toast { return m.toasts }
func (m Model) State() UIState         { return m.state }
func (m Model) Room() domain.Room      { return m.opts.Room }
func (m Model) LastExport() string     { return m.lastExport }
func (m Model) MaxInputLen() int       { return m.opts.MaxInputLen }
func (m Model) Thinking() bool         { return m.phase == Sending || m.phase == AwaitingReply }

// Loading reports whether the first snapshot is still outstanding.
func (m Model) Loading() bool { return !m.loaded && m.connErr == "" }
