// Package services contains business logic layers.
// Services are called by handlers and interact with the database.
package services

import "errors"

// Error kinds. Handlers map these to HTTP statuses; anything not wrapping
// one of them is treated as an internal failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// svcError carries a user-facing message while remaining matchable with
// errors.Is against its kind.
type svcError struct {
	kind error
	msg  string
}

func (e *svcError) Error() string { return e.msg }
func (e *svcError) Unwrap() error { return e.kind }

func errInvalid(msg string) error   { return &svcError{kind: ErrInvalidInput, msg: msg} }
func errForbidden(msg string) error { return &svcError{kind: ErrForbidden, msg: msg} }
func errNotFound(msg string) error  { return &svcError{kind: ErrNotFound, msg: msg} }
func errConflict(msg string) error  { return &svcError{kind: ErrConflict, msg: msg} }
