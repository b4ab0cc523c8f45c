package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindAuth
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
)

// Error is the single error type returned by the client.
type Error struct {
	Kind    Kind
	Op      string // "login", "search", "discover", ...
	Status  int    // HTTP status, 0 for transport failures
	Message string // backend message or local explanation
	Err     error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	switch {
	case e.Op != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so that errors.Is(err, ErrAuth) works for any auth
// failure regardless of operation or status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewAuthError wraps cause as an auth failure for op.
func NewAuthError(op, message string, cause error) *Error {
	return &Error{Kind: KindAuth, Op: op, Message: message, Err: cause}
}

// NewValidationError reports bad input detected before any request is made.
func NewValidationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// kindForStatus maps an HTTP status to the error taxonomy.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	default:
		return KindNetwork
	}
}

// retryable reports whether a failed GET is worth another attempt.
func retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindNetwork {
		return false
	}
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}
