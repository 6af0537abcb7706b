package chat

import (
	"time"

	"github.com/naveenspark/murmur/pkg/domain"
)

// UIState is every user-facing toggle in one value. It is never mutated in
// place; Reduce returns a new one.
type UIState struct {
	Theme    domain.Theme
	Settings domain.Settings
	Query    string
	Author   AuthorFilter
}

// Filtering reports whether a search or author filter is active.
func (s UIState) Filtering() bool {
	return s.Query != "" || (s.Author != ShowAll && s.Author != "")
}

// Action is an input to Reduce.
type Action interface {
	isAction()
}

type (
	ToggleTheme            struct{}
	ToggleSound            struct{}
	ToggleEffects          struct{}
	ToggleAutoScroll       struct{}
	ToggleTypingSimulation struct{}
	// AdjustTypingSpeed adds Delta to the per-token delay, within bounds.
	AdjustTypingSpeed struct{ Delta time.Duration }
	SetQuery          struct{ Query string }
	SetAuthor         struct{ Author AuthorFilter }
	CycleAuthor       struct{}
	SetMood           struct{ Mood string }
	SetPersonality    struct{ Personality string }
	// ResetFilters clears the search query and author filter.
	ResetFilters struct{}
)

func (ToggleTheme) isAction()            {}
func (ToggleSound) isAction()            {}
func (ToggleEffects) isAction()          {}
func (ToggleAutoScroll) isAction()       {}
func (ToggleTypingSimulation) isAction() {}
func (AdjustTypingSpeed) isAction()      {}
func (SetQuery) isAction()               {}
func (SetAuthor) isAction()              {}
func (CycleAuthor) isAction()            {}
func (SetMood) isAction()                {}
func (SetPersonality) isAction()         {}
func (ResetFilters) isAction()           {}

// Reduce applies a to s.
func Reduce(s UIState, a Action) UIState {
	switch a := a.(type) {
	case ToggleTheme:
		s.Theme = s.Theme.Toggle()
	case ToggleSound:
		s.Settings.Sound = !s.Settings.Sound
	case ToggleEffects:
		s.Settings.Effects = !s.Settings.Effects
	case ToggleAutoScroll:
		s.Settings.AutoScroll = !s.Settings.AutoScroll
	case ToggleTypingSimulation:
		s.Settings.TypingSimulation = !s.Settings.TypingSimulation
	case AdjustTypingSpeed:
		s.Settings.TypingSpeed = domain.ClampTypingSpeed(s.Settings.TypingSpeed + a.Delta)
	case SetQuery:
		s.Query = a.Query
	case SetAuthor:
		s.Author = a.Author
	case CycleAuthor:
		s.Author = s.Author.Next()
	case SetMood:
		s.Settings.Mood = a.Mood
	case SetPersonality:
		s.Settings.Personality = a.Personality
	case ResetFilters:
		s.Query = ""
		s.Author = ShowAll
	}
	return s
}
