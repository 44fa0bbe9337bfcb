package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is an error reported by the backend itself: a non-2xx response,
// with the message from its JSON body when it sent one
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Message returns the text to show a user for err: the backend's own
// message when it sent one, fallback for anything else
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// errorMessage pulls the "error" string out of an error response body
func errorMessage(body []byte) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	msg, ok := payload.Error.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(msg)
}
