package services

import "errors"

var ErrOrderNotFound = errors.New("order not found")

// ValidationError marks malformed caller input. Maps to HTTP 400 and is
// never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(msg string) error {
	return &ValidationError{Message: msg}
}
