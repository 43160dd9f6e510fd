package backend

import (
	"errors"
	"net/http"
)

// Error is a failed API call. Status is zero when no response was received.
// Message is the server-supplied message field, if any.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return http.StatusText(e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

// IsTransport reports whether err happened before any response arrived.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == 0
}

// MessageOr returns the server-supplied message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
