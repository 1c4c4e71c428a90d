// Package apperr defines the error kinds shared by the store, the mutation
// layer and the command surface.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrStoreFailure    = errors.New("store failure")
	ErrParseWarning    = errors.New("parse warning")
)

// Process exit codes, one per error kind.
const (
	ExitOK              = 0
	ExitInternal        = 1
	ExitInvalidArgument = 2
	ExitConflict        = 3
	ExitNotFound        = 4
	ExitStoreFailure    = 5
)

// ExitCode maps err to the exit status the command layer reports.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidArgument):
		return ExitInvalidArgument
	case errors.Is(err, ErrConflict):
		return ExitConflict
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrStoreFailure):
		return ExitStoreFailure
	default:
		return ExitInternal
	}
}

// Code names err's kind in snake case for machine-readable error bodies.
func Code(err error) string {
	switch ExitCode(err) {
	case ExitOK:
		return ""
	case ExitInvalidArgument:
		return "invalid_argument"
	case ExitConflict:
		return "conflict"
	case ExitNotFound:
		return "not_found"
	case ExitStoreFailure:
		return "store_failure"
	default:
		return "internal"
	}
}
