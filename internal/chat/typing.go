package chat

import (
	"time"
	"unicode"
)

// tokenEnds returns the byte offset just past each whitespace-delimited
// token of text. Revealing text[:ends[i]] shows the first i+1 tokens with
// their original spacing.
func tokenEnds(text string) []int {
	var ends []int
	inToken := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inToken && space {
			ends = append(ends, i)
		}
		inToken = !space
	}
	if inToken {
		ends = append(ends, len(text))
	}
	return ends
}

// tokenDelay is base scaled by a factor in [0.5, 1.5).
func tokenDelay(base time.Duration, jitter func() float64) time.Duration {
	return time.Duration(float64(base) * (0.5 + jitter()))
}

// playback is the progressive reveal of one reply.
type playback struct {
	gen      int
	key      string
	id       int64
	text     string
	ends     []int
	revealed int
}

func (p playback) done() bool {
	return p.revealed >= len(p.ends)
}

func (p playback) visible() string {
	if p.revealed == 0 {
		return ""
	}
	return p.text[:p.ends[p.revealed-1]]
}
