package domain

import "time"

// Theme is the color scheme choice.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle flips between light and dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Typing speed bounds for the per-token reveal delay.
const (
	DefaultTypingSpeed = 40 * time.Millisecond
	MinTypingSpeed     = 10 * time.Millisecond
	MaxTypingSpeed     = 500 * time.Millisecond
)

// Settings is the bundle of user preferences persisted locally.
type Settings struct {
	Effects          bool
	Sound            bool
	AutoScroll       bool
	TypingSimulation bool
	TypingSpeed      time.Duration
	Personality      string
	Mood             string
}

// DefaultSettings returns the settings used on first launch.
func DefaultSettings() Settings {
	return Settings{
		Effects:          true,
		Sound:            false,
		AutoScroll:       true,
		TypingSimulation: true,
		TypingSpeed:      DefaultTypingSpeed,
	}
}

// ClampTypingSpeed keeps d within the supported reveal delay range.
func ClampTypingSpeed(d time.Duration) time.Duration {
	if d < MinTypingSpeed {
		return MinTypingSpeed
	}
	if d > MaxTypingSpeed {
		return MaxTypingSpeed
	}
	return d
}
