package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/murmur/internal/capability"
	"github.com/naveenspark/murmur/internal/chat"
	"github.com/naveenspark/murmur/pkg/domain"
)

// ThinkingText is shown next to the spinner while a reply is awaited.
const ThinkingText = "AI is thinking..."

// speedStep is how much one +/- press changes the per-token delay.
const speedStep = 10 * time.Millisecond

const maxQueryLen = 100

type mode int

const (
	modeInput mode = iota
	modeNav
	modeSearch
	modeReact
	modeConfirmClear
)

// copiedMsg carries the result of a clipboard copy.
type copiedMsg struct {
	err error
}

// openedMsg carries the result of opening an exported file.
type openedMsg struct {
	path string
	err  error
}

// App is the root Bubbletea model.
type App struct {
	chat    chat.Model
	caps    capability.Set
	version string

	styles  styles
	md      *markdown
	spinner spinner.Model

	mode     mode
	input    string
	selected int64 // message under the nav cursor, 0 follows the newest
	helpOpen bool

	width  int
	height int
	frame  int // shimmer and cursor animation frame
	now    func() time.Time
}

// NewApp creates the TUI around a conversation controller.
func NewApp(c chat.Model, caps capability.Set, version string) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	theme := c.State().Theme
	return App{
		chat:    c,
		caps:    caps,
		version: version,
		styles:  newStyles(theme),
		md:      newMarkdown(theme, 80-gutterWidth),
		spinner: sp,
		width:   80,
		height:  24,
		now:     time.Now,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.chat.Init(), shimmerTickCmd(), a.spinner.Tick)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.md = newMarkdown(a.chat.State().Theme, a.width-gutterWidth)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case copiedMsg:
		if msg.err != nil {
			return a.toast("Failed to copy message", domain.SeverityError)
		}
		return a.toast("Message copied to clipboard", domain.SeveritySuccess)

	case openedMsg:
		if msg.err != nil {
			return a.toast("Could not open "+msg.path, domain.SeverityError)
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	return a.withChat(func(c chat.Model) (chat.Model, tea.Cmd) {
		return c.Update(msg)
	})
}

// withChat runs a controller transition and keeps the view in step with it:
// restyles on theme change and pins the cursor when auto-scroll is off.
func (a App) withChat(fn func(chat.Model) (chat.Model, tea.Cmd)) (App, tea.Cmd) {
	prevTheme := a.chat.State().Theme
	prevLast := lastID(a.chat.Visible())

	var cmd tea.Cmd
	a.chat, cmd = fn(a.chat)

	if theme := a.chat.State().Theme; theme != prevTheme {
		a.styles = newStyles(theme)
		a.md = newMarkdown(theme, a.width-gutterWidth)
	}
	visible := a.chat.Visible()
	if a.selected == 0 && !a.chat.State().Settings.AutoScroll &&
		prevLast != 0 && lastID(visible) != prevLast && indexOf(visible, prevLast) >= 0 {
		a.selected = prevLast
	}
	if a.selected != 0 && indexOf(visible, a.selected) < 0 {
		a.selected = 0
	}
	return a, cmd
}

func (a App) toast(text string, sev domain.Severity) (App, tea.Cmd) {
	return a.withChat(func(c chat.Model) (chat.Model, tea.Cmd) {
		return c.Toast(text, sev)
	})
}

func (a App) apply(action chat.Action) (App, tea.Cmd) {
	return a.withChat(func(c chat.Model) (chat.Model, tea.Cmd) {
		return c.Apply(action)
	})
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		switch msg.String() {
		case "h", "?", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	switch a.mode {
	case modeInput:
		return a.updateInput(msg)
	case modeSearch:
		return a.updateSearch(msg)
	case modeReact:
		return a.updateReact(msg)
	case modeConfirmClear:
		return a.updateConfirm(msg)
	}
	return a.updateNav(msg)
}

// updateInput handles key events while composing a message.
func (a App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxLen := a.chat.MaxInputLen()
	switch msg.String() {
	case "esc":
		a.mode = modeNav
		return a, nil

	case "shift+enter", "alt+enter":
		a.input = insertText(a.input, "\n", maxLen)
		return a, nil

	case "enter":
		var (
			sent bool
			cmd  tea.Cmd
		)
		text := a.input
		a, cmd = a.withChat(func(c chat.Model) (chat.Model, tea.Cmd) {
			var cmd tea.Cmd
			c, cmd, sent = c.Send(text)
			return c, cmd
		})
		if sent {
			a.input = ""
			a.selected = 0
		}
		return a, cmd
	}

	switch msg.Type {
	case tea.KeyRunes:
		if !msg.Alt {
			a.input = insertText(a.input, string(msg.Runes), maxLen)
		}
	case tea.KeySpace:
		a.input = insertText(a.input, " ", maxLen)
	case tea.KeyBackspace:
		a.input = editRune(a.input, "backspace", maxLen)
	}
	return a, nil
}

// updateSearch edits the live search query.
func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	query := a.chat.State().Query
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = modeNav
		return a.apply(chat.SetQuery{Query: ""})
	case tea.KeyEnter:
		a.mode = modeNav
		return a, nil
	case tea.KeyBackspace:
		return a.apply(chat.SetQuery{Query: editRune(query, "backspace", maxQueryLen)})
	case tea.KeySpace:
		return a.apply(chat.SetQuery{Query: insertText(query, " ", maxQueryLen)})
	case tea.KeyRunes:
		return a.apply(chat.SetQuery{Query: insertText(query, string(msg.Runes), maxQueryLen)})
	}
	return a, nil
}

// updateReact picks a reaction from the palette for the selected message.
func (a App) updateReact(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.mode = modeNav
	key := msg.String()
	if len(key) != 1 || key[0] < '1' || int(key[0]-'1') >= len(domain.ReactionPalette) {
		return a, nil
	}
	target, ok := a.current()
	if !ok {
		return a, nil
	}
	a.chat = a.chat.ToggleReaction(target.ID, domain.ReactionPalette[key[0]-'1'])
	if target.ID == lastID(a.chat.Visible()) {
		a.selected = 0
	}
	return a, nil
}

// updateConfirm clears the room on "y" and cancels on anything else.
func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.mode = modeNav
	switch msg.String() {
	case "y", "Y":
		a.selected = 0
		return a.withChat(func(c chat.Model) (chat.Model, tea.Cmd) {
			return c.Clear()
		})
	}
	return a, nil
}

// updateNav handles key events when the input is not focused.
func (a App) updateNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "h", "?":
		a.helpOpen = true
	case "i", "enter":
		a.mode = modeInput
		a.frame = 0
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "G", "end":
		a.selected = 0
	case "r":
		if target, ok := a.current(); ok && target.Persisted() {
			a.selected = target.ID
			a.mode = modeReact
		}
	case "c":
		if a.caps.Clipboard == nil {
			return a, nil
		}
		if target, ok := a.current(); ok {
			return a, copyCmd(a.caps.Clipboard, target.Text)
		}
	case "/":
		a.mode = modeSearch
	case "f":
		return a.apply(chat.CycleAuthor{})
	case "esc":
		if a.chat.State().Filtering() {
			return a.apply(chat.ResetFilters{})
		}
	case "t":
		return a.apply(chat.ToggleTheme{})
	case "s":
		return a.apply(chat.ToggleSound{})
	case "y":
		return a.apply(chat.ToggleTypingSimulation{})
	case "v":
		return a.apply(chat.ToggleEffects{})
	case "a":
		return a.apply(chat.ToggleAutoScroll{})
	case "+", "=":
		return a.apply(chat.AdjustTypingSpeed{Delta: -speedStep})
	case "-":
		return a.apply(chat.AdjustTypingSpeed{Delta: speedStep})
	case "e":
		return a.withChat(func(c chat.Model) (chat.Model, tea.Cmd) {
			return c.ExportToFile()
		})
	case "o":
		if path := a.chat.LastExport(); a.caps.Opener != nil && path != "" {
			return a, openCmd(a.caps.Opener, path)
		}
	case "D":
		a.mode = modeConfirmClear
	case "x":
		a.chat = a.chat.DismissAll()
	}
	return a, nil
}

func copyCmd(c capability.Clipboard, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: c.Copy(text)}
	}
}

func openCmd(o capability.Opener, path string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{path: path, err: o.Open(path)}
	}
}

// current returns the message under the cursor, the newest when following.
func (a App) current() (domain.Message, bool) {
	msgs := a.chat.Visible()
	if len(msgs) == 0 {
		return domain.Message{}, false
	}
	if i := indexOf(msgs, a.selected); i >= 0 {
		return msgs[i], true
	}
	return msgs[len(msgs)-1], true
}

// moveCursor moves the selection by delta messages. Reaching the newest
// message resumes following.
func (a *App) moveCursor(delta int) {
	msgs := a.chat.Visible()
	if len(msgs) == 0 {
		a.selected = 0
		return
	}
	i := indexOf(msgs, a.selected)
	if i < 0 {
		i = len(msgs) - 1
	}
	i += delta
	switch {
	case i >= len(msgs)-1:
		a.selected = 0
	case i < 0:
		a.selected = msgs[0].ID
	default:
		a.selected = msgs[i].ID
	}
}

func indexOf(msgs []domain.Message, id int64) int {
	if id == 0 {
		return -1
	}
	for i, m := range msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func lastID(msgs []domain.Message) int64 {
	if len(msgs) == 0 {
		return 0
	}
	return msgs[len(msgs)-1].ID
}

func (a App) View() string {
	s := a.styles
	state := a.chat.State()

	header := a.renderHeader()

	var banner string
	if text := a.bannerText(); text != "" {
		banner = " " + s.banner.Render(truncStr(text, a.width-12)) + "  " + s.helpEntry("x", "dismiss")
	}

	var thinking string
	if a.chat.Thinking() {
		thinking = " " + a.spinner.View() + " " + s.dim.Render(ThinkingText)
	}

	var toasts []string
	for _, t := range a.chat.Toasts() {
		icon := toastIcons[t.Severity]
		toasts = append(toasts, " "+a.styles.toastStyle(t.Severity).Render(icon+" "+t.Text))
	}

	prompt := a.renderPrompt()
	help := a.renderHelpBar()

	chrome := strings.Count(header, "\n") + 1 + 1 + strings.Count(prompt, "\n") + 1 + len(toasts)
	if banner != "" {
		chrome++
	}
	if thinking != "" {
		chrome++
	}
	bodyHeight := a.height - chrome
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	var body string
	if a.helpOpen {
		body = helpView(s, a.caps, a.version)
	} else {
		body = a.renderBody(state, bodyHeight)
	}
	body = strings.TrimRight(truncateToHeight(body, bodyHeight), "\n")
	if n := strings.Count(body, "\n") + 1; n < bodyHeight && a.helpOpen {
		body += strings.Repeat("\n", bodyHeight-n)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	if banner != "" {
		b.WriteString(banner)
		b.WriteByte('\n')
	}
	b.WriteString(body)
	b.WriteByte('\n')
	if thinking != "" {
		b.WriteString(thinking)
		b.WriteByte('\n')
	}
	for _, t := range toasts {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	b.WriteString(prompt)
	b.WriteByte('\n')
	b.WriteString(help)
	return b.String()
}

// bannerText is the error banner, falling back to the connection error.
func (a App) bannerText() string {
	if text := a.chat.Banner(); text != "" {
		return text
	}
	return a.chat.ConnErr()
}

func (a App) renderHeader() string {
	s := a.styles
	state := a.chat.State()
	room := a.chat.Room()

	logo := centerLine(renderShimmerLogo(a.frame, s.palette, state.Settings.Effects), a.width)

	dot := s.dim.Render("○")
	switch {
	case a.chat.Connected():
		dot = s.dotOnline.Render("●")
	case a.chat.ConnErr() != "":
		dot = s.dotOffline.Render("●")
	}
	parts := []string{dot + " " + s.userName.Render(room.DisplayName())}
	if room.Members > 0 {
		parts = append(parts, s.dim.Render(fmt.Sprintf("%d members", room.Members)))
	}
	if room.Active > 0 {
		parts = append(parts, s.dim.Render(fmt.Sprintf("%d active", room.Active)))
	}
	if state.Author != chat.ShowAll && state.Author != "" {
		parts = append(parts, s.accent.Render(state.Author.Label()))
	}
	if state.Query != "" {
		parts = append(parts, s.accent.Render(fmt.Sprintf("%q", state.Query)))
	}
	status := centerLine(strings.Join(parts, s.sep.Render(" · ")), a.width)
	return logo + "\n" + status
}

func (a App) renderBody(state chat.UIState, height int) string {
	s := a.styles
	msgs := a.chat.Visible()

	var b strings.Builder
	switch {
	case a.chat.Loading():
		padLines(height-1, &b)
		b.WriteString(" " + s.dim.Render("connecting...") + "\n")
		return b.String()
	case len(msgs) == 0 && a.chat.ConnErr() != "":
		padLines(height-1, &b)
		b.WriteString(" " + s.dim.Render("could not load messages · retrying") + "\n")
		return b.String()
	case len(msgs) == 0 && state.Filtering():
		padLines(height-1, &b)
		b.WriteString(" " + s.dim.Render("no messages match · esc to reset") + "\n")
		return b.String()
	case len(msgs) == 0:
		padLines(height-1, &b)
		b.WriteString(" " + s.dim.Render("no messages yet") + "\n")
		return b.String()
	}

	v := messageView{
		styles: s,
		md:     a.md,
		width:  a.width,
		now:    a.now(),
		anchor: a.selected,
	}
	if a.mode != modeInput {
		if cur, ok := a.current(); ok {
			v.selected = cur.ID
		}
	}
	return v.render(msgs, height)
}

func (a App) renderPrompt() string {
	s := a.styles
	switch a.mode {
	case modeSearch:
		return " " + s.prompt.Render("/ ") + s.userText.Render(a.chat.State().Query) + s.accent.Render("█")
	case modeReact:
		var parts []string
		for i, r := range domain.ReactionPalette {
			parts = append(parts, s.helpKey.Render(fmt.Sprint(i+1))+" "+r)
		}
		return " " + s.dim.Render("react: ") + strings.Join(parts, "  ")
	case modeConfirmClear:
		return " " + s.banner.Render("Clear all messages?") + "  " + s.helpEntry("y", "confirm") + "  " + s.helpEntry("any", "cancel")
	}
	placeholder := "say something..."
	if a.mode == modeNav {
		placeholder = "press enter to type"
	}
	return renderInput(s, a.input, placeholder, a.mode == modeInput, a.frame, a.chat.MaxInputLen())
}

func (a App) renderHelpBar() string {
	s := a.styles
	if a.helpOpen {
		return " " + s.helpEntry("esc", "close")
	}
	var entries []string
	switch a.mode {
	case modeInput:
		entries = []string{
			s.helpEntry("enter", "send"),
			s.helpEntry("alt+enter", "newline"),
			s.helpEntry("esc", "nav"),
		}
	case modeSearch:
		entries = []string{s.helpEntry("enter", "keep"), s.helpEntry("esc", "clear")}
	case modeReact:
		entries = []string{s.helpEntry("1-6", "react"), s.helpEntry("esc", "cancel")}
	case modeConfirmClear:
		return ""
	default:
		entries = []string{
			s.helpEntry("j/k", "select"),
			s.helpEntry("r", "react"),
		}
		if a.caps.Clipboard != nil {
			entries = append(entries, s.helpEntry("c", "copy"))
		}
		entries = append(entries,
			s.helpEntry("/", "search"),
			s.helpEntry("f", "filter"),
			s.helpEntry("e", "export"),
		)
		if a.caps.Opener != nil && a.chat.LastExport() != "" {
			entries = append(entries, s.helpEntry("o", "open"))
		}
		entries = append(entries,
			s.helpEntry("D", "clear"),
			s.helpEntry("h", "help"),
			s.helpEntry("q", "quit"),
		)
	}
	return " " + strings.Join(entries, "  ")
}

// helpView renders the key reference overlay.
func helpView(s styles, caps capability.Set, version string) string {
	title := s.prompt.Render("M U R M U R")
	if version != "" {
		title += "  " + s.meta.Render(version)
	}

	type entry struct{ key, desc string }
	sections := []struct {
		name    string
		entries []entry
	}{
		{"Compose", []entry{
			{"enter", "send the message"},
			{"alt+enter", "insert a newline"},
			{"esc", "leave the composer"},
		}},
		{"Messages", []entry{
			{"j / k", "move the cursor"},
			{"G", "jump to the newest message"},
			{"r 1-6", "toggle a reaction"},
			{"c", "copy the message"},
			{"/", "search messages"},
			{"f", "cycle the author filter"},
			{"x", "dismiss banner and notifications"},
		}},
		{"Room", []entry{
			{"e", "export the conversation"},
			{"o", "open the last export"},
			{"D", "clear the chat"},
		}},
		{"Settings", []entry{
			{"t", "toggle dark/light theme"},
			{"s", "toggle sound"},
			{"y", "toggle typing simulation"},
			{"+ / -", "faster / slower typing"},
			{"v", "toggle effects"},
			{"a", "toggle auto-scroll"},
		}},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n", title)
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n  %s\n", s.userName.Render(sec.name))
		for _, e := range sec.entries {
			if e.key == "c" && caps.Clipboard == nil {
				continue
			}
			if e.key == "o" && caps.Opener == nil {
				continue
			}
			fmt.Fprintf(&b, "    %s  %s\n", s.accent.Render(fmt.Sprintf("%-10s", e.key)), s.dim.Render(e.desc))
		}
	}
	return b.String()
}
