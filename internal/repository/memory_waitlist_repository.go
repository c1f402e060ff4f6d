package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

// MemoryWaitlistRepository implements WaitlistRepository using in-memory
// storage. All mutations take the repository lock, so the dense-position
// invariant holds under concurrent use. Useful for testing and development.
type MemoryWaitlistRepository struct {
	entries map[string]*domain.WaitlistEntry // entryID -> entry
	mu      sync.RWMutex
}

// NewMemoryWaitlistRepository creates a new in-memory waitlist repository
func NewMemoryWaitlistRepository() *MemoryWaitlistRepository {
	return &MemoryWaitlistRepository{
		entries: make(map[string]*domain.WaitlistEntry),
	}
}

// Join appends the registrant at (max live position)+1 with status waiting
func (r *MemoryWaitlistRepository) Join(ctx context.Context, eventID string, registrant domain.Registrant) (*domain.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registrant.Key()
	maxPosition := 0
	for _, entry := range r.entries {
		if entry.EventID != eventID || !entry.IsLive() {
			continue
		}
		if entry.Registrant.Key() == key {
			return nil, domain.ErrDuplicateEntry
		}
		if entry.Position > maxPosition {
			maxPosition = entry.Position
		}
	}

	entry := &domain.WaitlistEntry{
		ID:         uuid.New().String(),
		EventID:    eventID,
		Registrant: registrant,
		Position:   maxPosition + 1,
		JoinedAt:   time.Now(),
		Status:     domain.WaitlistStatusWaiting,
	}
	r.entries[entry.ID] = entry

	e := *entry
	return &e, nil
}

// GetByID retrieves an entry by its ID
func (r *MemoryWaitlistRepository) GetByID(ctx context.Context, entryID string) (*domain.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[entryID]
	if !exists {
		return nil, domain.ErrEntryNotFound
	}

	e := *entry
	return &e, nil
}

// Remove hard-deletes the entry and renumbers later live entries
func (r *MemoryWaitlistRepository) Remove(ctx context.Context, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[entryID]
	if !exists {
		return domain.ErrEntryNotFound
	}

	delete(r.entries, entryID)
	if entry.IsLive() {
		r.renumberAfter(entry.EventID, entry.Position)
	}
	return nil
}

// SetStatus transitions the entry per the state machine
func (r *MemoryWaitlistRepository) SetStatus(ctx context.Context, entryID string, status domain.WaitlistStatus) (*domain.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[entryID]
	if !exists {
		return nil, domain.ErrEntryNotFound
	}
	if !entry.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	wasLive := entry.IsLive()
	entry.Status = status
	if status == domain.WaitlistStatusNotified {
		now := time.Now()
		entry.NotifiedAt = &now
	}
	if wasLive && !status.IsLive() {
		r.renumberAfter(entry.EventID, entry.Position)
	}

	e := *entry
	return &e, nil
}

// PositionOf returns the live position for the registrant
func (r *MemoryWaitlistRepository) PositionOf(ctx context.Context, eventID string, registrant domain.Registrant) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := registrant.Key()
	for _, entry := range r.entries {
		if entry.EventID == eventID && entry.IsLive() && entry.Registrant.Key() == key {
			return entry.Position, true, nil
		}
	}
	return 0, false, nil
}

// ListLive returns the event's live entries ascending by position
func (r *MemoryWaitlistRepository) ListLive(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := make([]*domain.WaitlistEntry, 0)
	for _, entry := range r.entries {
		if entry.EventID == eventID && entry.IsLive() {
			e := *entry
			live = append(live, &e)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].Position < live[j].Position
	})
	return live, nil
}

// CountLive counts the event's live entries
func (r *MemoryWaitlistRepository) CountLive(ctx context.Context, eventID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.entries {
		if entry.EventID == eventID && entry.IsLive() {
			count++
		}
	}
	return count, nil
}

// NextWaiting returns the lowest-position entry with status waiting
func (r *MemoryWaitlistRepository) NextWaiting(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var next *domain.WaitlistEntry
	for _, entry := range r.entries {
		if entry.EventID != eventID || entry.Status != domain.WaitlistStatusWaiting {
			continue
		}
		if next == nil || entry.Position < next.Position {
			next = entry
		}
	}
	if next == nil {
		return nil, domain.ErrEntryNotFound
	}

	e := *next
	return &e, nil
}

// ListOverdueNotified returns notified entries whose notification is older than cutoff
func (r *MemoryWaitlistRepository) ListOverdueNotified(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	overdue := make([]*domain.WaitlistEntry, 0)
	for _, entry := range r.entries {
		if entry.Status == domain.WaitlistStatusNotified && entry.NotifiedAt != nil && entry.NotifiedAt.Before(cutoff) {
			e := *entry
			overdue = append(overdue, &e)
		}
	}
	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].NotifiedAt.Before(*overdue[j].NotifiedAt)
	})
	if len(overdue) > limit {
		overdue = overdue[:limit]
	}
	return overdue, nil
}

// renumberAfter closes the gap left at the given position. Caller holds the lock.
func (r *MemoryWaitlistRepository) renumberAfter(eventID string, position int) {
	for _, entry := range r.entries {
		if entry.EventID == eventID && entry.IsLive() && entry.Position > position {
			entry.Position--
		}
	}
}
