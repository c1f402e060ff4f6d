package repository

import (
	"context"
	"time"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// EventRepository defines storage operations for events
type EventRepository interface {
	// Create persists a new event
	Create(ctx context.Context, event *domain.Event) error

	// GetByID retrieves an event by its ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// ListByParent retrieves the generated instances of a recurring series,
	// ordered by start time
	ListByParent(ctx context.Context, parentEventID string) ([]*domain.Event, error)

	// ListParentsByCreator retrieves the recurring series roots owned by a user
	ListParentsByCreator(ctx context.Context, creatorID string) ([]*domain.Event, error)

	// DeleteSeries removes a series root and its future instances
	DeleteSeries(ctx context.Context, parentEventID string) error
}

// AttendeeRepository defines storage operations for attendee records.
// Records are keyed per event by the registrant's deduplication key.
type AttendeeRepository interface {
	// Upsert creates or updates the registrant's record for the event and
	// returns the stored record
	Upsert(ctx context.Context, eventID string, registrant domain.Registrant, status domain.RSVPStatus) (*domain.AttendeeRecord, error)

	// Get retrieves the registrant's record for the event
	Get(ctx context.Context, eventID string, registrant domain.Registrant) (*domain.AttendeeRecord, error)

	// CountConfirmed counts records with status "yes" for the event
	CountConfirmed(ctx context.Context, eventID string) (int, error)
}

// WaitlistRepository is the waitlist ledger: it owns position assignment and
// the dense-ordering invariant. Any operation that takes an entry out of the
// live set renumbers later live entries in the same atomic scope.
type WaitlistRepository interface {
	// Join appends the registrant at position (max live position)+1 with
	// status waiting. Fails with ErrDuplicateEntry if the registrant already
	// holds a live entry for the event.
	Join(ctx context.Context, eventID string, registrant domain.Registrant) (*domain.WaitlistEntry, error)

	// GetByID retrieves an entry by its ID
	GetByID(ctx context.Context, entryID string) (*domain.WaitlistEntry, error)

	// Remove hard-deletes the entry and renumbers later live entries
	Remove(ctx context.Context, entryID string) error

	// SetStatus transitions the entry per the state machine. Transitions
	// into converted or expired renumber later live entries atomically.
	// NotifiedAt is stamped on transitions into notified.
	SetStatus(ctx context.Context, entryID string, status domain.WaitlistStatus) (*domain.WaitlistEntry, error)

	// PositionOf returns the live position for the registrant, or ok=false
	// if the registrant is not queued
	PositionOf(ctx context.Context, eventID string, registrant domain.Registrant) (int, bool, error)

	// ListLive returns the event's live entries ascending by position
	ListLive(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error)

	// CountLive counts the event's live entries
	CountLive(ctx context.Context, eventID string) (int, error)

	// NextWaiting returns the lowest-position entry with status waiting,
	// or ErrEntryNotFound if none exists
	NextWaiting(ctx context.Context, eventID string) (*domain.WaitlistEntry, error)

	// ListOverdueNotified returns up to limit notified entries whose
	// notification is older than the cutoff, oldest first
	ListOverdueNotified(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WaitlistEntry, error)
}
