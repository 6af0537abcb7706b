package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// warnRatio is the share of the input limit past which the counter turns warm.
const warnRatio = 0.8

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxLen runes.
func editRune(text, key string, maxLen int) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	default:
		if utf8.RuneCountInString(key) == 1 {
			return insertText(text, key, maxLen)
		}
		return text
	}
}

// insertText appends s to text, dropping whatever would exceed maxLen runes.
func insertText(text, s string, maxLen int) string {
	room := maxLen - utf8.RuneCountInString(text)
	if room <= 0 {
		return text
	}
	runes := []rune(s)
	if len(runes) > room {
		runes = runes[:room]
	}
	return text + string(runes)
}

// nearLimit reports whether n runes is past the warning share of maxLen.
func nearLimit(n, maxLen int) bool {
	return maxLen > 0 && float64(n) > float64(maxLen)*warnRatio
}

// renderCounter renders "n/max", warm once the input is near the limit.
func renderCounter(s styles, text string, maxLen int) string {
	n := utf8.RuneCountInString(text)
	label := fmt.Sprintf("%d/%d", n, maxLen)
	if nearLimit(n, maxLen) {
		return s.counterWarm.Render(label)
	}
	return s.counter.Render(label)
}

// renderInput renders the composer: prompt, text with a blinking cursor
// when focused, and the character counter on the last line.
func renderInput(s styles, text, placeholder string, focused bool, frame, maxLen int) string {
	prompt := " " + s.prompt.Render("> ")
	counter := "  " + renderCounter(s, text, maxLen)

	if !focused {
		if text == "" {
			return prompt + s.placeholder.Render(placeholder) + counter
		}
		return prompt + s.dim.Render(strings.ReplaceAll(text, "\n", " ⏎ ")) + counter
	}

	cursor := " "
	if (frame/4)%2 == 0 {
		cursor = s.accent.Render("█")
	}
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i == 0 {
			b.WriteString(prompt)
		} else {
			b.WriteString("\n   ")
		}
		b.WriteString(s.userText.Render(line))
	}
	b.WriteString(cursor)
	b.WriteString(counter)
	return b.String()
}
