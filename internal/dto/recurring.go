package dto

import (
	"time"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// CreateSeriesRequest is the body of POST /events/recurring
type CreateSeriesRequest struct {
	Title           string             `json:"title" binding:"required"`
	Description     string             `json:"description,omitempty"`
	Location        string             `json:"location,omitempty"`
	StartDate       time.Time          `json:"start_date" binding:"required"`
	EndDate         *time.Time         `json:"end_date,omitempty"`
	RecurrenceType  string             `json:"recurrence_type" binding:"required"`
	MaxCapacity     *int               `json:"max_capacity,omitempty"`
	WaitlistEnabled bool               `json:"waitlist_enabled"`
	FormFields      []FormFieldPayload `json:"custom_form_fields,omitempty"`
}

// EventResponse is the wire form of an event
type EventResponse struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Location          string     `json:"location,omitempty"`
	StartsAt          time.Time  `json:"starts_at"`
	MaxCapacity       *int       `json:"max_capacity,omitempty"`
	WaitlistEnabled   bool       `json:"waitlist_enabled"`
	RecurrenceType    string     `json:"recurrence_type,omitempty"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	ParentEventID     *string    `json:"parent_event_id,omitempty"`
}

// EventFromDomain converts a domain event to its wire form
func EventFromDomain(event *domain.Event) *EventResponse {
	if event == nil {
		return nil
	}
	return &EventResponse{
		ID:                event.ID,
		Title:             event.Title,
		Description:       event.Description,
		Location:          event.Location,
		StartsAt:          event.StartsAt,
		MaxCapacity:       event.MaxCapacity,
		WaitlistEnabled:   event.WaitlistEnabled,
		RecurrenceType:    string(event.RecurrenceType),
		RecurrenceEndDate: event.RecurrenceEndDate,
		ParentEventID:     event.ParentEventID,
	}
}

// SeriesResponse is a recurring series root with its generated instances
type SeriesResponse struct {
	Series    *EventResponse   `json:"series"`
	Instances []*EventResponse `json:"instances"`
}

// SeriesFromDomain converts a series root and instances to wire form
func SeriesFromDomain(parent *domain.Event, instances []*domain.Event) *SeriesResponse {
	out := &SeriesResponse{
		Series:    EventFromDomain(parent),
		Instances: make([]*EventResponse, len(instances)),
	}
	for i, instance := range instances {
		out.Instances[i] = EventFromDomain(instance)
	}
	return out
}

// SeriesListResponse is a creator's recurring series
type SeriesListResponse struct {
	Series []*SeriesResponse `json:"series"`
}
