package domain

import "time"

// Severity classifies a toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Toast lifetimes. Errors and warnings stay a little longer to be read.
const (
	ToastTTL     = 3 * time.Second
	ToastTTLLong = 4 * time.Second
)

// Toast is a short-lived notification unrelated to chat content.
type Toast struct {
	ID        int
	Text      string
	Severity  Severity
	CreatedAt time.Time
	TTL       time.Duration
}

// TTLFor returns the auto-expiry delay for a severity.
func TTLFor(s Severity) time.Duration {
	switch s {
	case SeverityError, SeverityWarning:
		return ToastTTLLong
	default:
		return ToastTTL
	}
}

// Icon returns the glyph shown next to a toast of this severity.
func (s Severity) Icon() string {
	switch s {
	case SeveritySuccess:
		return "✅"
	case SeverityError:
		return "❌"
	case SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
