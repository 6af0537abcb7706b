package chat

import (
	"strings"

	"github.com/naveenspark/murmur/pkg/domain"
)

// AuthorFilter restricts the visible messages by author.
type AuthorFilter string

const (
	ShowAll       AuthorFilter = "all"
	ShowUser      AuthorFilter = "user"
	ShowAssistant AuthorFilter = "assistant"
)

// Next cycles all → user → assistant → all.
func (f AuthorFilter) Next() AuthorFilter {
	switch f {
	case ShowAll, "":
		return ShowUser
	case ShowUser:
		return ShowAssistant
	default:
		return ShowAll
	}
}

// Label is the filter's display name.
func (f AuthorFilter) Label() string {
	switch f {
	case ShowUser:
		return "you"
	case ShowAssistant:
		return "assistant"
	default:
		return "all"
	}
}

// Filter returns the messages whose text contains query, ignoring case,
// and whose author matches author. In-progress entries are never included.
// The input is not modified.
func Filter(msgs []domain.Message, query string, author AuthorFilter) []domain.Message {
	q := strings.ToLower(query)
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.InProgress {
			continue
		}
		switch author {
		case ShowUser:
			if !m.IsUser() {
				continue
			}
		case ShowAssistant:
			if m.IsUser() {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(m.Text), q) {
			continue
		}
		out = append(out, m)
	}
	return out
}
