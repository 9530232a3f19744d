// Package errs holds the recoverable error kinds of the crew-facing core.
// Every kind is a sentinel matched with errors.Is; handlers map kinds to HTTP
// statuses without parsing messages.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConflict: duplicate start on a job that already has an active session.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: advancing a session that is neither active nor completed.
	ErrInvalidState = errors.New("invalid state")
	// ErrBlocked: verification/photo requirement unmet. Always carried by a
	// BlockedError so the caller learns which requirement failed.
	ErrBlocked = errors.New("blocked")
	// ErrAlreadyDecided: re-deciding an extra-item request.
	ErrAlreadyDecided = errors.New("already decided")
	ErrNotFound       = errors.New("not found")
	// ErrInvalidArgument: malformed caller input, not a state problem.
	ErrInvalidArgument = errors.New("invalid argument")
)

// BlockedError names the unmet requirement ("photo" | "inventory").
type BlockedError struct {
	Requirement string
	Detail      string
}

func (e *BlockedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("blocked: %s requirement unmet", e.Requirement)
	}
	return fmt.Sprintf("blocked: %s requirement unmet: %s", e.Requirement, e.Detail)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

func NewBlocked(requirement, detail string) error {
	return &BlockedError{Requirement: requirement, Detail: detail}
}

func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func Conflictf(format string, args ...any) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

func InvalidStatef(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidState, format, args...)
}

func Invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
