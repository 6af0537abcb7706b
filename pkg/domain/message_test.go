package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   int
	}{
		{"under cap", "hello", 10, 5},
		{"at cap", strings.Repeat("a", 1000), 1000, 1000},
		{"over cap", strings.Repeat("a", 2000), 1000, 1000},
		{"multibyte", strings.Repeat("é", 20), 10, 10},
		{"no cap", "hello", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.maxLen)
			if n := utf8.RuneCountInString(got); n != tt.want {
				t.Errorf("Truncate() rune count = %d, want %d", n, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate() produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestBlank(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"\n\t ", true},
		{"hi", false},
		{"  hi  ", false},
	}
	for _, tt := range tests {
		if got := Blank(tt.in); got != tt.want {
			t.Errorf("Blank(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReactionsToggleIsItsOwnInverse(t *testing.T) {
	start := NewReactions("👍", "🎉")
	for _, sym := range []string{"👍", "❤️", "🎉", "x"} {
		once := start.Toggle(sym)
		twice := once.Toggle(sym)
		if !twice.Equal(start) {
			t.Errorf("toggle(%q) twice = %v, want %v", sym, twice.Sorted(), start.Sorted())
		}
		if once.Has(sym) == start.Has(sym) {
			t.Errorf("toggle(%q) once did not change membership", sym)
		}
	}
}

func TestReactionsToggleDoesNotMutateReceiver(t *testing.T) {
	r := NewReactions("👍")
	_ = r.Toggle("👍")
	if !r.Has("👍") {
		t.Error("Toggle mutated the receiver")
	}
}

func TestReactionsToggleOnNil(t *testing.T) {
	var r Reactions
	got := r.Toggle("😂")
	if !got.Has("😂") {
		t.Errorf("Toggle on nil set = %v, want [😂]", got.Sorted())
	}
}

func TestReactionsSorted(t *testing.T) {
	r := NewReactions("b", "a", "", "b")
	got := strings.Join(r.Sorted(), ",")
	if got != "a,b" {
		t.Errorf("Sorted() = %q, want %q", got, "a,b")
	}
}

func TestMessagePersisted(t *testing.T) {
	if (Message{Welcome: true}).Persisted() {
		t.Error("welcome message reported as persisted")
	}
	if (Message{InProgress: true}).Persisted() {
		t.Error("typing entry reported as persisted")
	}
	if !(Message{Key: "k", Pending: true}).Persisted() {
		t.Error("optimistic entry should count as persisted")
	}
}
