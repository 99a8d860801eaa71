package live

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind is the closed set of failure categories a session can report.
// Every error observed by the controller is classified exactly once, at the
// point it is first seen.
type ErrorKind string

const (
	// KindPrecondition covers failures before any resource is acquired:
	// missing credential, unreachable network.
	KindPrecondition ErrorKind = "precondition"
	// KindAuth covers rejected credentials (HTTP 401/403 on handshake).
	KindAuth ErrorKind = "auth"
	// KindDevice covers microphone/display/speaker acquisition failures.
	KindDevice ErrorKind = "device"
	// KindNetwork covers dial failures and mid-session connection drops.
	KindNetwork ErrorKind = "network"
	// KindOverloaded covers service-unavailable responses (HTTP 503/429).
	KindOverloaded ErrorKind = "overloaded"
	// KindGeneric covers everything else.
	KindGeneric ErrorKind = "generic"
)

// Error is a classified session error with a user-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("live: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("live: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the human-readable string shown next to the status
// indicator.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindPrecondition:
		return e.Message
	case KindAuth:
		return "Invalid or missing API key. Check your credentials."
	case KindDevice:
		return e.Message
	case KindNetwork:
		return "Connection lost. Check your network and try again."
	case KindOverloaded:
		return "The service is temporarily overloaded. Try again shortly."
	default:
		return "The session ended unexpectedly: " + e.Message
	}
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Classify maps an arbitrary error observed during connect or mid-session
// into the closed kind set. Already-classified errors pass through unchanged.
func Classify(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindNetwork, message, err)
	}

	// WebSocket handshakes surface HTTP status failures as plain error
	// strings; match the status line the dialer reports.
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "status 401") || strings.Contains(text, "status 403") ||
		strings.Contains(text, "unauthenticated") || strings.Contains(text, "permission_denied"):
		return newError(KindAuth, message, err)
	case strings.Contains(text, "status 503") || strings.Contains(text, "status 429") ||
		strings.Contains(text, "unavailable") || strings.Contains(text, "resource_exhausted"):
		return newError(KindOverloaded, message, err)
	case strings.Contains(text, "connection refused") || strings.Contains(text, "no such host") ||
		strings.Contains(text, "connection reset") || strings.Contains(text, "broken pipe") ||
		strings.Contains(text, "unexpected eof"):
		return newError(KindNetwork, message, err)
	}
	return newError(KindGeneric, message, err)
}
