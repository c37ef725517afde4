package services

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState means the stored match is inconsistent, e.g. the pointer is past the last question.
	ErrInvalidState = errors.New("invalid match state")
	ErrUnavailable  = errors.New("storage unavailable")
)
