package domain

import (
	"strings"
	"time"
)

// RSVPStatus represents an attendee's response to an event
type RSVPStatus string

const (
	RSVPStatusYes   RSVPStatus = "yes"
	RSVPStatusNo    RSVPStatus = "no"
	RSVPStatusMaybe RSVPStatus = "maybe"
)

// String returns the string representation of the status
func (s RSVPStatus) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known responses
func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPStatusYes, RSVPStatusNo, RSVPStatusMaybe:
		return true
	}
	return false
}

// RecurrenceType represents how a recurring series repeats
type RecurrenceType string

const (
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// IsValid checks if the recurrence type is supported
func (r RecurrenceType) IsValid() bool {
	switch r {
	case RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Event represents an event with optional capacity management.
// A nil MaxCapacity means the event is unlimited and never gates admission.
// Instances generated from a recurring series are independent events, each
// with its own capacity and waitlist state.
type Event struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	Location          string         `json:"location,omitempty"`
	StartsAt          time.Time      `json:"starts_at"`
	CreatedBy         string         `json:"created_by"`
	MaxCapacity       *int           `json:"max_capacity,omitempty"`
	WaitlistEnabled   bool           `json:"waitlist_enabled"`
	RecurrenceType    RecurrenceType `json:"recurrence_type,omitempty"`
	RecurrenceEndDate *time.Time     `json:"recurrence_end_date,omitempty"`
	ParentEventID     *string        `json:"parent_event_id,omitempty"`
	FormFields        []FormField    `json:"custom_form_fields,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// HasCapacityLimit reports whether the event enforces a seat count
func (e *Event) HasCapacityLimit() bool {
	return e.MaxCapacity != nil
}

// Registrant identifies who is joining: a registered user or an
// unauthenticated guest. Exactly one of the two sides is set.
type Registrant struct {
	UserID     string `json:"user_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
}

// IsUser reports whether the registrant is a registered user
func (r Registrant) IsUser() bool {
	return r.UserID != ""
}

// Key returns the deduplication key for the registrant.
// Guest emails compare case-insensitively.
func (r Registrant) Key() string {
	if r.UserID != "" {
		return "user:" + r.UserID
	}
	return "guest:" + r.GuestName + ":" + strings.ToLower(r.GuestEmail)
}

// Validate checks that the registrant identifies exactly one party
func (r Registrant) Validate() error {
	if r.UserID != "" {
		if r.GuestName != "" || r.GuestEmail != "" {
			return ErrInvalidRegistrant
		}
		return nil
	}
	if r.GuestName == "" || r.GuestEmail == "" {
		return ErrInvalidRegistrant
	}
	return nil
}

// AttendeeRecord is an RSVP (user) or guest response to an event.
// Records with status "yes" count against the event's capacity.
type AttendeeRecord struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Registrant  Registrant `json:"registrant"`
	Status      RSVPStatus `json:"status"`
	RespondedAt time.Time  `json:"responded_at"`
}

// IsConfirmed reports whether the record holds a seat
func (a *AttendeeRecord) IsConfirmed() bool {
	return a.Status == RSVPStatusYes
}

// CapacitySnapshot is a consistent view of an event's admission state.
// AvailableSpots is nil when the event has no capacity limit.
type CapacitySnapshot struct {
	EventID          string `json:"event_id"`
	CurrentAttendees int    `json:"current_attendees"`
	MaxCapacity      *int   `json:"max_capacity,omitempty"`
	AvailableSpots   *int   `json:"available_spots,omitempty"`
	IsAtCapacity     bool   `json:"is_at_capacity"`
	WaitlistCount    int    `json:"waitlist_count"`
}
