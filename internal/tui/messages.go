package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/murmur/pkg/domain"
)

const (
	// " " + marker + " " + 8-char timestamp + "  "
	gutterWidth = 1 + 1 + 1 + 8 + 2
	typingGlyph = "▌"
	userLabel   = "You"
	aiLabel     = "AI"
)

// markdown renders assistant replies. A nil renderer falls back to plain
// wrapped text.
type markdown struct {
	r     *glamour.TermRenderer
	theme domain.Theme
	width int
}

func newMarkdown(theme domain.Theme, width int) *markdown {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(theme)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &markdown{theme: theme, width: width}
	}
	return &markdown{r: r, theme: theme, width: width}
}

func (md *markdown) render(text string) []string {
	if md.r == nil {
		return wrapText(text, md.width)
	}
	out, err := md.r.Render(text)
	if err != nil {
		return wrapText(text, md.width)
	}
	out = strings.Trim(out, "\n")
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	// Glamour frames paragraphs with blank lines; collapse the outer ones.
	for len(lines) > 1 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// renderedMessage is one message laid out as terminal lines.
type renderedMessage struct {
	id    int64
	lines []string
}

// messageView renders a list of messages into a fixed-height viewport.
type messageView struct {
	styles   styles
	md       *markdown
	width    int
	now      time.Time
	selected int64 // highlighted message, 0 for none
	anchor   int64 // message kept in view, 0 to stick to the newest
}

// render lays out msgs and clips them to height lines. Newest messages
// appear at the bottom.
func (v messageView) render(msgs []domain.Message, height int) string {
	var all []string
	anchorEnd := -1
	for _, msg := range msgs {
		rm := v.renderMessage(msg)
		all = append(all, rm.lines...)
		if rm.id == v.anchor && v.anchor != 0 {
			anchorEnd = len(all)
		}
	}

	total := len(all)
	end := total
	if anchorEnd >= 0 && anchorEnd < total {
		end = anchorEnd
		if end < height {
			end = min(height, total)
		}
	}
	start := end - height
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	visible := all[start:end]
	padLines(height-len(visible), &b)
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (v messageView) renderMessage(msg domain.Message) renderedMessage {
	s := v.styles
	marker := " "
	if v.selected != 0 && msg.ID == v.selected {
		marker = s.accent.Render("▸")
	}
	timeStr := metaPad(formatChatTime(msg.CreatedAt, v.now))
	gutter := " " + marker + " " + s.meta.Render(timeStr) + "  "
	indent := strings.Repeat(" ", gutterWidth)
	sep := s.sep.Render(" · ")

	bodyWidth := v.width - gutterWidth
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	var lines []string
	switch {
	case msg.IsUser():
		name := s.userName.Render(userLabel)
		textStyle := s.userText
		if msg.Pending {
			textStyle = s.dim
		}
		prefix := lipgloss.Width(userLabel) + lipgloss.Width(" · ")
		wrapped := wrapText(msg.Text, bodyWidth-prefix)
		lines = append(lines, gutter+name+sep+textStyle.Render(wrapped[0]))
		pad := indent + strings.Repeat(" ", prefix)
		for _, l := range wrapped[1:] {
			lines = append(lines, pad+textStyle.Render(l))
		}

	case msg.Kind == domain.KindError:
		prefix := lipgloss.Width(aiLabel) + lipgloss.Width(" · ")
		wrapped := wrapText("⚠ "+msg.Text, bodyWidth-prefix)
		lines = append(lines, gutter+s.aiName.Render(aiLabel)+sep+s.errText.Render(wrapped[0]))
		pad := indent + strings.Repeat(" ", prefix)
		for _, l := range wrapped[1:] {
			lines = append(lines, pad+s.errText.Render(l))
		}

	case msg.InProgress:
		lines = append(lines, gutter+s.aiName.Render(aiLabel))
		wrapped := wrapText(msg.Text, bodyWidth)
		for i, l := range wrapped {
			if i == len(wrapped)-1 {
				l += s.accent.Render(typingGlyph)
			}
			lines = append(lines, indent+s.aiText.Render(l))
		}

	default:
		lines = append(lines, gutter+s.aiName.Render(aiLabel))
		md := v.md
		if md == nil {
			md = &markdown{width: bodyWidth}
		}
		for _, l := range md.render(msg.Text) {
			lines = append(lines, indent+l)
		}
	}

	if r := msg.Reactions.Sorted(); len(r) > 0 {
		lines = append(lines, renderReactionLine(s, r))
	}
	return renderedMessage{id: msg.ID, lines: lines}
}

// renderReactionLine renders a dim line of reaction symbols indented to body start.
func renderReactionLine(s styles, reactions []string) string {
	return strings.Repeat(" ", gutterWidth) + s.dim.Render(strings.Join(reactions, " "))
}

// metaPad right-aligns a timestamp in the 8-column time slot.
func metaPad(t string) string {
	if n := lipgloss.Width(t); n < 8 {
		return strings.Repeat(" ", 8-n) + t
	}
	return t
}
