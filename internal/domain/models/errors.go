package models

import "errors"

// Domain error taxonomy. Services wrap these with context via fmt.Errorf and
// the HTTP layer maps them to statuses with errors.Is. Nothing is retried
// automatically; failures surface to the initiating action.
var (
	// ErrValidation indicates a bad input value (negative quantity, empty
	// order, malformed import row).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unknown product, order or log entry id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePeriod indicates an attempt to close a period that has
	// already been archived.
	ErrDuplicatePeriod = errors.New("period already archived")

	// ErrInvalidTransition indicates a disallowed requisition status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyUndone indicates the activity entry was reversed before.
	ErrAlreadyUndone = errors.New("entry already undone")

	// ErrStaleEntry indicates an undo against a row that was archived by a
	// later month close.
	ErrStaleEntry = errors.New("entry predates the current period")
)
