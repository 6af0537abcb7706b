package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrEmptyReply is returned when the backend answers without any text.
var ErrEmptyReply = errors.New("empty reply")

// HTTPError represents a non-2xx HTTP response from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Failure classifies a failed backend call.
type Failure int

const (
	FailureGeneric Failure = iota
	FailureRefused
	FailureTimeout
)

func (f Failure) String() string {
	switch f {
	case FailureRefused:
		return "refused"
	case FailureTimeout:
		return "timeout"
	default:
		return "generic"
	}
}

// Notice returns the message shown in place of a reply for this failure.
func (f Failure) Notice() string {
	switch f {
	case FailureRefused:
		return "🔌 Backend server is not running. Please start the server and try again."
	case FailureTimeout:
		return "⏱️ Request timed out. The AI might be busy, please try again."
	default:
		return "⚠️ Sorry, I couldn't connect to the AI service."
	}
}

// Classify maps a Chat error to a Failure.
func Classify(err error) Failure {
	if err == nil {
		return FailureGeneric
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureRefused
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureGeneric
}
