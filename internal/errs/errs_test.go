package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockedError_Unwrap(t *testing.T) {
	err := NewBlocked("photo", "need at least one photo at arrived")
	require.ErrorIs(t, err, ErrBlocked)

	var be *BlockedError
	require.True(t, errors.As(err, &be))
	require.Equal(t, "photo", be.Requirement)
	require.Contains(t, err.Error(), "photo requirement unmet")
}

func TestSentinelWrappers(t *testing.T) {
	require.ErrorIs(t, NotFoundf("session %s", "abc"), ErrNotFound)
	require.ErrorIs(t, Conflictf("job %s already has an active session", "M-1"), ErrConflict)
	require.ErrorIs(t, InvalidStatef("session %s is not active", "abc"), ErrInvalidState)

	// wrapped kinds stay matchable through another Wrap
	err := NotFoundf("session %s", "abc")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "session abc")
}
