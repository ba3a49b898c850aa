package order

import (
	"errors"
	"strings"
)

var (
	ErrMalformedRequest   = errors.New("required fields missing or invalid")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPersistenceFailure = errors.New("order storage failure")
)

// ValidationError lists the request fields that failed validation. It
// matches ErrMalformedRequest with errors.Is.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return ErrMalformedRequest.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrMalformedRequest
}
