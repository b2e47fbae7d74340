package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind separates failures the user can act on from plumbing failures.
type ErrorKind string

const (
	// KindTransport covers network errors, timeouts and unreadable bodies.
	KindTransport ErrorKind = "transport"
	// KindBusiness is a backend refusal, usually carrying an {"erro": "..."} payload.
	KindBusiness ErrorKind = "business"
)

var ErrNoBaseURL = errors.New("api: base url not configured")

// Error is returned by every Client call that does not succeed.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindBusiness && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Kind == KindBusiness:
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is what a screen shows. Backend messages pass through
// verbatim; transport failures get the fallback supplied by the caller.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindBusiness && apiErr.Message != "" {
		return "Erro: " + apiErr.Message
	}
	return fallback
}

// IsBusiness reports whether err is a backend refusal.
func IsBusiness(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindBusiness
}

func transportErr(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}
