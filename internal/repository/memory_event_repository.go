package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// MemoryEventRepository implements EventRepository using in-memory storage.
// This is useful for testing and development.
type MemoryEventRepository struct {
	events map[string]*domain.Event
	mu     sync.RWMutex
}

// NewMemoryEventRepository creates a new in-memory event repository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: make(map[string]*domain.Event),
	}
}

// Create persists a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *event
	r.events[event.ID] = &e
	return nil
}

// GetByID retrieves an event by its ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, domain.ErrEventNotFound
	}

	e := *event
	return &e, nil
}

// ListByParent retrieves the generated instances of a recurring series
func (r *MemoryEventRepository) ListByParent(ctx context.Context, parentEventID string) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]*domain.Event, 0)
	for _, event := range r.events {
		if event.ParentEventID != nil && *event.ParentEventID == parentEventID {
			e := *event
			instances = append(instances, &e)
		}
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].StartsAt.Before(instances[j].StartsAt)
	})
	return instances, nil
}

// ListParentsByCreator retrieves the recurring series roots owned by a user
func (r *MemoryEventRepository) ListParentsByCreator(ctx context.Context, creatorID string) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parents := make([]*domain.Event, 0)
	for _, event := range r.events {
		if event.CreatedBy == creatorID && event.RecurrenceType != "" && event.ParentEventID == nil {
			e := *event
			parents = append(parents, &e)
		}
	}
	sort.Slice(parents, func(i, j int) bool {
		return parents[i].StartsAt.Before(parents[j].StartsAt)
	})
	return parents, nil
}

// DeleteSeries removes a series root and its future instances
func (r *MemoryEventRepository) DeleteSeries(ctx context.Context, parentEventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[parentEventID]; !exists {
		return domain.ErrEventNotFound
	}

	now := time.Now()
	delete(r.events, parentEventID)
	for id, event := range r.events {
		if event.ParentEventID != nil && *event.ParentEventID == parentEventID && event.StartsAt.After(now) {
			delete(r.events, id)
		}
	}
	return nil
}
