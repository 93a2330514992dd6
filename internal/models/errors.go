package models

import "errors"

// Typed failures surfaced by engine operations. Callers match these with
// errors.Is; everything else is a wrapped I/O failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotADirectory     = errors.New("not a directory")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrCancelled         = errors.New("cancelled")
)
