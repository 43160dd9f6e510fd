package registry

import (
	"errors"
	"net/http"
)

// Category groups registry errors by how the API should answer them.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryData
	CategoryUnauthorized
	CategoryNotFound
	CategoryConflict
)

// Status is the HTTP status a category maps to.
func (c Category) Status() int {
	switch c {
	case CategoryData:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a message safe to show to API clients. Err is for logs.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateRollNo    = errors.New("duplicate roll number")
	ErrDuplicateEmail     = errors.New("duplicate department email")
	ErrNotFound           = errors.New("not found")
)

func dataError(message string) error {
	return &Error{Category: CategoryData, Message: message}
}

func unauthorized(message string) error {
	return &Error{Category: CategoryUnauthorized, Message: message, Err: ErrInvalidCredentials}
}

func conflict(message string, err error) error {
	return &Error{Category: CategoryConflict, Message: message, Err: err}
}

func notFound(message string) error {
	return &Error{Category: CategoryNotFound, Message: message, Err: ErrNotFound}
}

func general(err error) error {
	return &Error{Category: CategoryGeneral, Message: "Internal Server Error", Err: err}
}

// CategoryOf returns the category of err, CategoryGeneral for foreign errors.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryGeneral
}

// PublicMessage returns the message an API client may see.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal Server Error"
}
