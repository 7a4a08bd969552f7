package bankapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const unavailableMessage = "Banking service is temporarily unavailable, please try again later."

// Error is a failed exchange with the remote API. Message is what the remote
// side said and is meant to be shown to the user as is.
type Error struct {
	Status  int
	Message string

	cause       error
	circuitOpen bool
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Unavailable reports whether the remote side could not be reached or is failing,
// as opposed to having declined the request.
func (e *Error) Unavailable() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}

func (e *Error) retryable() bool {
	return e.Unavailable() && !e.circuitOpen
}

// MalformedResponseError is a 2xx reply whose body could not be decoded. The
// remote side accepted the request, only its answer is unusable.
type MalformedResponseError struct {
	Method string
	Path   string
	Status int

	cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("decode %d response of %s %s: %v", e.Status, e.Method, e.Path, e.cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.cause
}

func messageFrom(body []byte, status int) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return text
}
