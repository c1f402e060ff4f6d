package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// MemoryAttendeeRepository implements AttendeeRepository using in-memory storage.
// This is useful for testing and development.
type MemoryAttendeeRepository struct {
	byEvent map[string]map[string]*domain.AttendeeRecord // eventID -> registrantKey -> record
	mu      sync.RWMutex
}

// NewMemoryAttendeeRepository creates a new in-memory attendee repository
func NewMemoryAttendeeRepository() *MemoryAttendeeRepository {
	return &MemoryAttendeeRepository{
		byEvent: make(map[string]map[string]*domain.AttendeeRecord),
	}
}

// Upsert creates or updates the registrant's record for the event
func (r *MemoryAttendeeRepository) Upsert(ctx context.Context, eventID string, registrant domain.Registrant, status domain.RSVPStatus) (*domain.AttendeeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, exists := r.byEvent[eventID]
	if !exists {
		records = make(map[string]*domain.AttendeeRecord)
		r.byEvent[eventID] = records
	}

	key := registrant.Key()
	record, exists := records[key]
	if !exists {
		record = &domain.AttendeeRecord{
			ID:         uuid.New().String(),
			EventID:    eventID,
			Registrant: registrant,
		}
		records[key] = record
	}
	record.Status = status
	record.RespondedAt = time.Now()

	rec := *record
	return &rec, nil
}

// Get retrieves the registrant's record for the event
func (r *MemoryAttendeeRepository) Get(ctx context.Context, eventID string, registrant domain.Registrant) (*domain.AttendeeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, exists := r.byEvent[eventID]
	if !exists {
		return nil, domain.ErrAttendeeNotFound
	}
	record, exists := records[registrant.Key()]
	if !exists {
		return nil, domain.ErrAttendeeNotFound
	}

	rec := *record
	return &rec, nil
}

// CountConfirmed counts records with status "yes" for the event
func (r *MemoryAttendeeRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, record := range r.byEvent[eventID] {
		if record.Status == domain.RSVPStatusYes {
			count++
		}
	}
	return count, nil
}
