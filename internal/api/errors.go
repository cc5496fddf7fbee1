package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the session cookie is missing or expired.
	ErrUnauthorized = errors.New("not logged in")
	// ErrNotFound means the conversation, message or word does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the word is already in the vocabulary.
	ErrConflict = errors.New("already exists")
	// ErrForbidden covers an exhausted token budget and locked accounts.
	ErrForbidden = errors.New("forbidden")
)

// Error is a non-2xx response. Message is the server's "error" field when
// present.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is maps status codes onto the sentinel errors so callers can use
// errors.Is.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error         string `json:"error"`
	LoginRequired bool   `json:"login_required"`
}
