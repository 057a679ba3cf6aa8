package client

import (
	"errors"
	"fmt"
)

const fallbackErrorMessage = "request failed"

var (
	// ErrTimeout is returned when a call exceeds its round-trip bound.
	ErrTimeout = errors.New("request timed out")
	// ErrCancelled is returned when the caller cancelled the call's context.
	ErrCancelled = errors.New("request cancelled")
	// ErrPushDisconnected is reported when the push channel drops.
	ErrPushDisconnected = errors.New("push channel disconnected")
)

// RequestFailedError is any failed call that was neither cancelled nor timed
// out. StatusCode is zero for transport failures.
type RequestFailedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func (e *RequestFailedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func AsRequestFailed(err error) *RequestFailedError {
	var reqErr *RequestFailedError
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return nil
}

// UserMessage is the text shown to the user for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return ErrCancelled.Error()
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	}
	if reqErr := AsRequestFailed(err); reqErr != nil && reqErr.Message != "" {
		return reqErr.Message
	}
	return fallbackErrorMessage
}
