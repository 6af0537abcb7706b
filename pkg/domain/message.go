package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxInputLen is the maximum number of runes accepted for a single message.
const MaxInputLen = 1000

// WelcomeText is shown when a room has no messages. It is never persisted.
const WelcomeText = "👋 Hi! I'm your AI assistant. How can I help you today?"

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// KindError marks an assistant message synthesized from a backend failure.
const KindError = "error"

// Message is a single entry in a room's conversation.
type Message struct {
	ID        int64  // local, monotonic per session, stable per Key
	Key       string // idempotency key of the stored document
	Text      string
	Author    Author
	CreatedAt time.Time
	Reactions Reactions
	Kind      string // "" or KindError
	Mood      string

	InProgress bool // transient typing playback entry, never persisted
	Pending    bool // optimistic entry not yet echoed by a snapshot
	Welcome    bool // synthesized welcome, never persisted
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool {
	return m.Author == AuthorUser
}

// Persisted reports whether the message is part of the stored record.
func (m Message) Persisted() bool {
	return !m.InProgress && !m.Welcome
}

// Truncate clamps s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// Blank reports whether s is empty or whitespace only.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Reactions is an unordered set of short reaction symbols.
type Reactions map[string]struct{}

// NewReactions builds a set from a list, ignoring duplicates and blanks.
func NewReactions(symbols ...string) Reactions {
	if len(symbols) == 0 {
		return nil
	}
	r := make(Reactions, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		r[s] = struct{}{}
	}
	return r
}

// Has reports whether symbol is in the set.
func (r Reactions) Has(symbol string) bool {
	_, ok := r[symbol]
	return ok
}

// Toggle returns a copy of the set with symbol added if absent or removed if present.
func (r Reactions) Toggle(symbol string) Reactions {
	out := make(Reactions, len(r)+1)
	for s := range r {
		out[s] = struct{}{}
	}
	if _, ok := out[symbol]; ok {
		delete(out, symbol)
	} else {
		out[symbol] = struct{}{}
	}
	return out
}

// Sorted returns the symbols in a deterministic order.
func (r Reactions) Sorted() []string {
	if len(r) == 0 {
		return nil
	}
	out := make([]string, 0, len(r))
	for s := range r {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same symbols.
func (r Reactions) Equal(o Reactions) bool {
	if len(r) != len(o) {
		return false
	}
	for s := range r {
		if !o.Has(s) {
			return false
		}
	}
	return true
}

// ReactionPalette is the set of symbols offered by the reaction picker.
var ReactionPalette = []string{"👍", "❤️", "😂", "😮", "😢", "🎉"}
