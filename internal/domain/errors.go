package domain

import "errors"

// Domain errors
var (
	// Lookup errors
	ErrEventNotFound    = errors.New("event not found")
	ErrEntryNotFound    = errors.New("waitlist entry not found")
	ErrAttendeeNotFound = errors.New("attendee record not found")

	// Admission errors. AtCapacity is the expected outcome of a join against
	// a full event, not a fault.
	ErrAtCapacity       = errors.New("event is at capacity")
	ErrWaitlistDisabled = errors.New("event is at capacity and the waitlist is disabled")
	ErrDuplicateEntry   = errors.New("registrant already holds a live waitlist entry")

	// State machine errors
	ErrInvalidTransition = errors.New("waitlist status transition not allowed")
	ErrEntryNotLive      = errors.New("waitlist entry is no longer live")

	// Validation errors
	ErrInvalidEventID    = errors.New("invalid event id")
	ErrInvalidEntryID    = errors.New("invalid waitlist entry id")
	ErrInvalidRegistrant = errors.New("registrant must be a user id or a guest name and email")
	ErrInvalidStatus     = errors.New("invalid rsvp status")
	ErrInvalidRecurrence = errors.New("recurrence type must be weekly, monthly, or yearly")
	ErrValidationFailed  = errors.New("form answers failed validation")
)

// ValidationError carries per-field messages from form answer evaluation.
// It unwraps to ErrValidationFailed so errors.Is classification still works.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrAttendeeNotFound)
}

// IsConflictError checks if the error is a conflict with current state
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAtCapacity) ||
		errors.Is(err, ErrWaitlistDisabled) ||
		errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEntryNotLive)
}

// IsValidationError checks if the error is a request validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidEntryID) ||
		errors.Is(err, ErrInvalidRegistrant) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidRecurrence) ||
		errors.Is(err, ErrValidationFailed)
}
