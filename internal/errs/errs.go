// Package errs defines the error taxonomy shared by both services.
//
// ValidationError: malformed request or message payload; never retried.
// NotFoundError: referenced row absent; for bus handlers the message ends
// up dead-lettered since redelivery will not help.
// TransportError: bus send/receive failure.
// Integrity warnings (e.g. negative stock) are logged conditions, not errors.
package errs

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Entity, e.ID) }

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
