package dto

import (
	"time"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// RegistrantPayload identifies the registrant in a request body. Either
// user_id or the guest pair must be present.
type RegistrantPayload struct {
	UserID     string `json:"user_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
}

// ToDomain converts the payload to a domain registrant
func (p RegistrantPayload) ToDomain() domain.Registrant {
	return domain.Registrant{
		UserID:     p.UserID,
		GuestName:  p.GuestName,
		GuestEmail: p.GuestEmail,
	}
}

// JoinRequest is the body of POST /events/:event_id/join
type JoinRequest struct {
	Registrant    RegistrantPayload `json:"registrant"`
	DesiredStatus string            `json:"desired_status" binding:"required"`
	Answers       map[string]any    `json:"answers,omitempty"`
}

// JoinResponse reports the outcome of a join request: either a granted seat
// (attendee set) or a created waitlist entry with its position.
type JoinResponse struct {
	Granted       bool                   `json:"granted"`
	Attendee      *AttendeeResponse      `json:"attendee,omitempty"`
	WaitlistEntry *WaitlistEntryResponse `json:"waitlist_entry,omitempty"`
	Position      int                    `json:"position,omitempty"`
	Message       string                 `json:"message"`
}

// ConvertRequest is the body of POST /waitlist/:entry_id/convert
type ConvertRequest struct {
	DesiredStatus string `json:"desired_status" binding:"required"`
}

// CancelRequest is the body of POST /events/:event_id/cancel
type CancelRequest struct {
	Registrant RegistrantPayload `json:"registrant"`
}

// AttendeeResponse is the wire form of an attendee record
type AttendeeResponse struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	Registrant  RegistrantPayload `json:"registrant"`
	Status      string            `json:"status"`
	RespondedAt time.Time         `json:"responded_at"`
}

// AttendeeFromDomain converts a domain attendee record to its wire form
func AttendeeFromDomain(record *domain.AttendeeRecord) *AttendeeResponse {
	if record == nil {
		return nil
	}
	return &AttendeeResponse{
		ID:      record.ID,
		EventID: record.EventID,
		Registrant: RegistrantPayload{
			UserID:     record.Registrant.UserID,
			GuestName:  record.Registrant.GuestName,
			GuestEmail: record.Registrant.GuestEmail,
		},
		Status:      record.Status.String(),
		RespondedAt: record.RespondedAt,
	}
}

// WaitlistEntryResponse is the wire form of a waitlist entry
type WaitlistEntryResponse struct {
	ID         string            `json:"id"`
	EventID    string            `json:"event_id"`
	Registrant RegistrantPayload `json:"registrant"`
	Position   int               `json:"position"`
	JoinedAt   time.Time         `json:"joined_at"`
	NotifiedAt *time.Time        `json:"notified_at,omitempty"`
	Status     string            `json:"status"`
}

// WaitlistEntryFromDomain converts a domain waitlist entry to its wire form
func WaitlistEntryFromDomain(entry *domain.WaitlistEntry) *WaitlistEntryResponse {
	if entry == nil {
		return nil
	}
	return &WaitlistEntryResponse{
		ID:      entry.ID,
		EventID: entry.EventID,
		Registrant: RegistrantPayload{
			UserID:     entry.Registrant.UserID,
			GuestName:  entry.Registrant.GuestName,
			GuestEmail: entry.Registrant.GuestEmail,
		},
		Position:   entry.Position,
		JoinedAt:   entry.JoinedAt,
		NotifiedAt: entry.NotifiedAt,
		Status:     entry.Status.String(),
	}
}

// WaitlistResponse is the ordered live waitlist for an event
type WaitlistResponse struct {
	EventID string                   `json:"event_id"`
	Entries []*WaitlistEntryResponse `json:"entries"`
}

// PositionResponse reports a registrant's live queue position
type PositionResponse struct {
	EventID  string `json:"event_id"`
	Queued   bool   `json:"queued"`
	Position int    `json:"position,omitempty"`
}

// CapacityResponse is the wire form of a capacity snapshot
type CapacityResponse struct {
	EventID          string `json:"event_id"`
	CurrentAttendees int    `json:"current_attendees"`
	MaxCapacity      *int   `json:"max_capacity,omitempty"`
	AvailableSpots   *int   `json:"available_spots,omitempty"`
	IsAtCapacity     bool   `json:"is_at_capacity"`
	WaitlistCount    int    `json:"waitlist_count"`
}

// CapacityFromDomain converts a domain capacity snapshot to its wire form
func CapacityFromDomain(snapshot *domain.CapacitySnapshot) *CapacityResponse {
	if snapshot == nil {
		return nil
	}
	return &CapacityResponse{
		EventID:          snapshot.EventID,
		CurrentAttendees: snapshot.CurrentAttendees,
		MaxCapacity:      snapshot.MaxCapacity,
		AvailableSpots:   snapshot.AvailableSpots,
		IsAtCapacity:     snapshot.IsAtCapacity,
		WaitlistCount:    snapshot.WaitlistCount,
	}
}

// RemoveResponse reports the outcome of a waitlist removal
type RemoveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the error body returned by all handlers
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
