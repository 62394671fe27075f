package store

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the custody operations. The API layer maps these to
// HTTP statuses; everything else is an internal error.
var (
	// ErrNotFound means the referenced item or claim does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDenied means the caller has no right to the operation (no
	// matching approved claim, already retrieved, not the requester).
	ErrDenied = errors.New("denied")
)

// ConflictError reports that a claim cannot be admitted because the item
// is locked by an active claim or has already been handed to its owner.
// LockedUntil is set when the conflict comes from a live claim lock, so
// the caller can display the remaining wait.
type ConflictError struct {
	LockedUntil *time.Time
}

func (e *ConflictError) Error() string {
	if e.LockedUntil != nil {
		return fmt.Sprintf("item locked by an active claim until %s", e.LockedUntil.Format(time.RFC3339))
	}
	return "item already claimed"
}

// IsConflict reports whether err is a claim admission conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
