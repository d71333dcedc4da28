package remote

import (
	"errors"
	"fmt"
	"net/http"

	"boardsync/domain"
)

// Error is a non-2xx response from the remote store. Message carries the
// server's error field verbatim when one was present.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote store returned %d", e.Status)
}

// Is lets 404 responses match domain.ErrNotFound through errors.Is.
func (e *Error) Is(target error) bool {
	return target == domain.ErrNotFound && e.Status == http.StatusNotFound
}

// UserMessage extracts the message that should reach the user for a failed
// remote write: the server's error field verbatim when present, otherwise
// the given fallback.
func UserMessage(err error, fallback string) string {
	var re *Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}
