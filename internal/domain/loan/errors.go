package loan

import "errors"

var (
	ErrNotFound          = errors.New("loan not found")
	ErrInvalidTransition = errors.New("invalid loan state transition")
	ErrNotDue            = errors.New("loan is not past its due date")
	// ErrVersionConflict is returned by SaveVersioned when another writer got
	// there first; callers re-fetch and retry against the new state.
	ErrVersionConflict = errors.New("loan version conflict")
)
