package tui

import (
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/murmur/pkg/domain"
)

// Shimmer animation for the header title.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

const logoText = "MURMUR"

// renderShimmerLogo renders the title as a flowing wave between the
// palette's deep and bright accent. With effects off the title is static.
func renderShimmerLogo(frame int, p palette, effects bool) string {
	n := len(logoText)
	dr, dg, db := hexToRGB(p.logoDeep)
	br, bg, bb := hexToRGB(p.logoBright)

	var out string
	t := float64(frame)
	for i := 0; i < n; i++ {
		b := 1.0
		if effects {
			x := float64(i) / float64(n-1)

			// One smooth wave advancing through the text
			phase := t*0.1 - x*3.0
			phase += math.Sin(t*0.023) * 2.0

			b = math.Sin(phase)*0.5 + 0.5
			b = math.Pow(b, 1.3)

			tide := math.Sin(t*0.035) * 0.12
			b = b*0.75 + tide + 0.18
			if b > 1.0 {
				b = 1.0
			} else if b < 0.05 {
				b = 0.05
			}
		}

		r := clampByte(float64(dr) + b*float64(br-dr))
		g := clampByte(float64(dg) + b*float64(bg-dg))
		bl := clampByte(float64(db) + b*float64(bb-db))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		out += lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color)).
			Render(string(logoText[i]))

		// Letter spacing
		if i < n-1 {
			out += "  "
		}
	}
	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

// hexToRGB parses a hex color string (#RRGGBB) into r,g,b ints.
func hexToRGB(hex string) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 128, 128, 128
	}
	var r, g, b int
	_, _ = fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b) //nolint:errcheck
	return r, g, b
}

// palette is the set of colors for one theme.
type palette struct {
	text       string
	strong     string
	dim        string
	meta       string
	sep        string
	accent     string
	assistant  string
	errorText  string
	warm       string
	success    string
	info       string
	warning    string
	placehold  string
	selectedBg string
	logoDeep   string
	logoBright string
}

var palettes = map[domain.Theme]palette{
	// Dark keeps the neutral slate and emerald accent palette.
	domain.ThemeDark: {
		text:       "#c0c4d0",
		strong:     "#e4e4ec",
		dim:        "#8890a0",
		meta:       "#505868",
		sep:        "#404858",
		accent:     "#34d474",
		assistant:  "#c8a84c",
		errorText:  "#e06060",
		warm:       "#f0944a",
		success:    "#4ade80",
		info:       "#60a0e0",
		warning:    "#facc15",
		placehold:  "#343c4a",
		selectedBg: "#1e1e2a",
		logoDeep:   "#1a3a24",
		logoBright: "#4ade80",
	},
	domain.ThemeLight: {
		text:       "#2a2e38",
		strong:     "#0f1117",
		dim:        "#5a6070",
		meta:       "#8890a0",
		sep:        "#b0b6c2",
		accent:     "#15803d",
		assistant:  "#7a5a10",
		errorText:  "#b42318",
		warm:       "#c2410c",
		success:    "#15803d",
		info:       "#1d4ed8",
		warning:    "#a16207",
		placehold:  "#b0b6c2",
		selectedBg: "#e4e6ec",
		logoDeep:   "#86c79c",
		logoBright: "#0f6b33",
	},
}

func paletteFor(t domain.Theme) palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[domain.ThemeLight]
}

// styles are the lipgloss styles derived from a palette.
type styles struct {
	palette palette

	dim         lipgloss.Style
	meta        lipgloss.Style
	sep         lipgloss.Style
	accent      lipgloss.Style
	userName    lipgloss.Style
	userText    lipgloss.Style
	aiName      lipgloss.Style
	aiText      lipgloss.Style
	errText     lipgloss.Style
	banner      lipgloss.Style
	selected    lipgloss.Style
	helpKey     lipgloss.Style
	helpLabel   lipgloss.Style
	prompt      lipgloss.Style
	placeholder lipgloss.Style
	counter     lipgloss.Style
	counterWarm lipgloss.Style
	dotOnline   lipgloss.Style
	dotOffline  lipgloss.Style
	toast       map[domain.Severity]lipgloss.Style
}

func newStyles(t domain.Theme) styles {
	p := paletteFor(t)
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return styles{
		palette:     p,
		dim:         fg(p.dim),
		meta:        fg(p.meta),
		sep:         fg(p.sep),
		accent:      fg(p.accent),
		userName:    fg(p.strong).Bold(true),
		userText:    fg(p.text),
		aiName:      fg(p.assistant).Bold(true),
		aiText:      fg(p.text),
		errText:     fg(p.errorText),
		banner:      fg(p.errorText).Bold(true),
		selected:    lipgloss.NewStyle().Background(lipgloss.Color(p.selectedBg)),
		helpKey:     fg(p.dim),
		helpLabel:   fg(p.meta),
		prompt:      fg(p.accent).Bold(true),
		placeholder: fg(p.placehold),
		counter:     fg(p.meta),
		counterWarm: fg(p.warm).Bold(true),
		dotOnline:   fg(p.success),
		dotOffline:  fg(p.errorText),
		toast: map[domain.Severity]lipgloss.Style{
			domain.SeveritySuccess: fg(p.success),
			domain.SeverityError:   fg(p.errorText),
			domain.SeverityInfo:    fg(p.info),
			domain.SeverityWarning: fg(p.warning),
		},
	}
}

// toastIcons prefix toasts by severity.
var toastIcons = map[domain.Severity]string{
	domain.SeveritySuccess: "✓",
	domain.SeverityError:   "✗",
	domain.SeverityInfo:    "i",
	domain.SeverityWarning: "!",
}

func (s styles) toastStyle(sev domain.Severity) lipgloss.Style {
	if st, ok := s.toast[sev]; ok {
		return st
	}
	return s.dim
}

// helpEntry renders a single "key label" pair for help bars.
func (s styles) helpEntry(key, label string) string {
	return s.helpKey.Render(key) + " " + s.helpLabel.Render(label)
}
