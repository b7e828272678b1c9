package apperrors

import "errors"

// Business error taxonomy. Handlers map these onto HTTP statuses and the
// realtime gateway maps them onto scoped error events; everything else is
// treated as an internal failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)
