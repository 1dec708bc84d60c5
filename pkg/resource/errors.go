package resource

import (
	"errors"
	"fmt"
)

// DefaultErrorMessage is used when a failure carries no message.
const DefaultErrorMessage = "An error occurred"

// ErrInvalidInterval is returned when a polling interval is not positive.
var ErrInvalidInterval = errors.New("resource: polling interval must be positive")

// PanicError wraps a value recovered from a panicking call function.
type PanicError struct {
	Value any
}

// Error returns the panic value's message.
func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// failureMessage resolves the message of a business failure:
// Message, else the first entry of Errors, else fallback.
func failureMessage[T any](res CallResult[T], fallback string) string {
	if res.Message != "" {
		return res.Message
	}
	if len(res.Errors) > 0 && res.Errors[0] != "" {
		return res.Errors[0]
	}
	return fallback
}

// errorMessage resolves the message of a transport failure.
func errorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
