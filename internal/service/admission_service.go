package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/form"
	"github.com/gatherly/rsvp-admission/internal/lock"
	"github.com/gatherly/rsvp-admission/internal/metrics"
	"github.com/gatherly/rsvp-admission/internal/repository"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// PromotionPolicy controls what happens to the next waiting entry when a
// seat frees up
type PromotionPolicy string

const (
	// PromotionPolicyNotify moves the entry to notified and waits for an
	// explicit conversion
	PromotionPolicyNotify PromotionPolicy = "notify"
	// PromotionPolicyAutoConvert grants the seat immediately
	PromotionPolicyAutoConvert PromotionPolicy = "auto_convert"
)

// AdmissionService decides who holds a confirmed seat, who is queued, and how
// queued registrants are promoted as seats free up. It is the only component
// that mutates both attendee records and the waitlist ledger; every
// capacity-sensitive sequence runs under the per-event lock.
type AdmissionService interface {
	// Capacity returns a consistent snapshot of the event's admission state
	Capacity(ctx context.Context, eventID string) (*dto.CapacityResponse, error)

	// RequestJoin grants a seat directly or queues the registrant. When the
	// event defines form fields the answers are evaluated first.
	RequestJoin(ctx context.Context, eventID string, registrant domain.Registrant, desired domain.RSVPStatus, answers map[string]any) (*dto.JoinResponse, error)

	// Convert turns a live waitlist entry into an attendee record,
	// re-checking capacity at conversion time
	Convert(ctx context.Context, entryID string, desired domain.RSVPStatus) (*dto.AttendeeResponse, error)

	// CancelAttendance drops a registrant's response to "no" and promotes
	// the next waiting entry if a seat was freed
	CancelAttendance(ctx context.Context, eventID string, registrant domain.Registrant) (*dto.AttendeeResponse, error)

	// PromoteNext promotes the next waiting entry toward the freed seat.
	// No-op when the waitlist is empty or no seat is actually free.
	PromoteNext(ctx context.Context, eventID string) (*dto.WaitlistEntryResponse, error)

	// RemoveFromWaitlist hard-deletes an entry; queue slots close up but no
	// capacity slot is freed, so no promotion runs
	RemoveFromWaitlist(ctx context.Context, entryID string) error

	// Position returns the registrant's live queue position
	Position(ctx context.Context, eventID string, registrant domain.Registrant) (*dto.PositionResponse, error)

	// ListWaitlist returns the event's live entries ascending by position
	ListWaitlist(ctx context.Context, eventID string) (*dto.WaitlistResponse, error)

	// SetEntryStatus transitions an entry per the state machine
	SetEntryStatus(ctx context.Context, entryID string, status domain.WaitlistStatus) (*dto.WaitlistEntryResponse, error)

	// ExpireOverdueNotifications expires notified entries whose response
	// window has lapsed and attempts a promotion for each affected event.
	// Returns the number of entries expired.
	ExpireOverdueNotifications(ctx context.Context, limit int) (int, error)
}

// admissionService implements AdmissionService
type admissionService struct {
	events    repository.EventRepository
	attendees repository.AttendeeRepository
	waitlist  repository.WaitlistRepository
	publisher EventPublisher
	locks     *lock.KeyedMutex

	policy       PromotionPolicy
	notifyWindow time.Duration
}

// AdmissionServiceConfig contains configuration for the admission service
type AdmissionServiceConfig struct {
	// PromotionPolicy defaults to notify-then-convert
	PromotionPolicy PromotionPolicy
	// NotifyResponseWindow is how long a notified entry may stay unanswered
	// before the sweep expires it (default: 24h)
	NotifyResponseWindow time.Duration
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	events repository.EventRepository,
	attendees repository.AttendeeRepository,
	waitlist repository.WaitlistRepository,
	publisher EventPublisher,
	cfg *AdmissionServiceConfig,
) AdmissionService {
	policy := PromotionPolicyNotify
	window := 24 * time.Hour
	if cfg != nil {
		if cfg.PromotionPolicy != "" {
			policy = cfg.PromotionPolicy
		}
		if cfg.NotifyResponseWindow > 0 {
			window = cfg.NotifyResponseWindow
		}
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &admissionService{
		events:       events,
		attendees:    attendees,
		waitlist:     waitlist,
		publisher:    publisher,
		locks:        lock.NewKeyedMutex(),
		policy:       policy,
		notifyWindow: window,
	}
}

// Capacity returns a consistent snapshot of the event's admission state
func (s *admissionService) Capacity(ctx context.Context, eventID string) (*dto.CapacityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.capacity")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Hold the event lock so the snapshot cannot straddle a concurrent grant
	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	snapshot, err := s.snapshotLocked(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("current_attendees", snapshot.CurrentAttendees),
		attribute.Int("waitlist_count", snapshot.WaitlistCount),
	)
	span.SetStatus(codes.Ok, "")
	return dto.CapacityFromDomain(snapshot), nil
}

// RequestJoin grants a seat directly or queues the registrant
func (s *admissionService) RequestJoin(ctx context.Context, eventID string, registrant domain.Registrant, desired domain.RSVPStatus, answers map[string]any) (*dto.JoinResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.request_join")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if err := registrant.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid registrant")
		return nil, err
	}
	if !desired.IsValid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidStatus
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
		attribute.String("desired_status", desired.String()),
	)

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(event.FormFields) > 0 {
		result := form.Evaluate(event.FormFields, answers)
		if len(result.Errors) > 0 {
			span.SetStatus(codes.Error, "form validation failed")
			return nil, &domain.ValidationError{Fields: result.Errors}
		}
	}

	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	previous, err := s.attendees.Get(ctx, eventID, registrant)
	if err != nil && !errors.Is(err, domain.ErrAttendeeNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	hadSeat := previous != nil && previous.IsConfirmed()

	// Non-yes responses and unlimited events never gate on capacity
	if desired != domain.RSVPStatusYes || !event.HasCapacityLimit() {
		record, err := s.attendees.Upsert(ctx, eventID, registrant, desired)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		// Dropping a yes frees a seat for the queue
		if hadSeat && desired != domain.RSVPStatusYes {
			if _, err := s.promoteNextLocked(ctx, event); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
		}
		span.SetStatus(codes.Ok, "")
		return grantedResponse(record), nil
	}

	// A registrant who already holds a seat is reaffirming it, not taking
	// another one
	if hadSeat {
		record, err := s.attendees.Upsert(ctx, eventID, registrant, desired)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetStatus(codes.Ok, "")
		return grantedResponse(record), nil
	}

	snapshot, err := s.snapshotLocked(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !snapshot.IsAtCapacity {
		record, err := s.attendees.Upsert(ctx, eventID, registrant, desired)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		_ = s.publisher.PublishSeatGranted(ctx, record)
		metrics.RecordSeatGranted(ctx, eventID)
		span.AddEvent("seat_granted", trace.WithAttributes(
			attribute.String("attendee_id", record.ID),
		))
		span.SetStatus(codes.Ok, "")
		return grantedResponse(record), nil
	}

	if !event.WaitlistEnabled {
		span.SetStatus(codes.Error, "waitlist disabled")
		return nil, domain.ErrWaitlistDisabled
	}

	entry, err := s.waitlist.Join(ctx, eventID, registrant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	_ = s.publisher.PublishWaitlistJoined(ctx, entry)
	metrics.RecordWaitlistJoin(ctx, eventID)

	span.AddEvent("waitlist_joined", trace.WithAttributes(
		attribute.String("entry_id", entry.ID),
		attribute.Int("position", entry.Position),
	))
	span.SetAttributes(attribute.Int("position", entry.Position))
	span.SetStatus(codes.Ok, "")
	return &dto.JoinResponse{
		Granted:       false,
		WaitlistEntry: dto.WaitlistEntryFromDomain(entry),
		Position:      entry.Position,
		Message:       "Event is at capacity, added to waitlist",
	}, nil
}

// Convert turns a live waitlist entry into an attendee record
func (s *admissionService) Convert(ctx context.Context, entryID string, desired domain.RSVPStatus) (*dto.AttendeeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.convert")
	defer span.End()

	if entryID == "" {
		span.SetStatus(codes.Error, "invalid entry_id")
		return nil, domain.ErrInvalidEntryID
	}
	if !desired.IsValid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidStatus
	}
	span.SetAttributes(
		attribute.String("entry_id", entryID),
		attribute.String("desired_status", desired.String()),
	)

	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.locks.Lock(entry.EventID)
	defer s.locks.Unlock(entry.EventID)

	// Re-read under the lock: the entry may have been expired or removed
	// between the lookup and the lock acquisition
	entry, err = s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !entry.IsLive() {
		span.SetStatus(codes.Error, "entry not live")
		return nil, domain.ErrEntryNotLive
	}

	event, err := s.events.GetByID(ctx, entry.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// A seat can vanish between notification and conversion if another
	// promotion or direct grant got there first
	if desired == domain.RSVPStatusYes && event.HasCapacityLimit() {
		snapshot, err := s.snapshotLocked(ctx, event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if snapshot.IsAtCapacity {
			span.SetStatus(codes.Error, "at capacity")
			return nil, domain.ErrAtCapacity
		}
	}

	record, err := s.attendees.Upsert(ctx, entry.EventID, entry.Registrant, desired)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	converted, err := s.waitlist.SetStatus(ctx, entryID, domain.WaitlistStatusConverted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_ = s.publisher.PublishConverted(ctx, converted)
	metrics.RecordConversion(ctx, entry.EventID)

	span.AddEvent("entry_converted", trace.WithAttributes(
		attribute.String("entry_id", entryID),
		attribute.String("attendee_id", record.ID),
		attribute.String("status", desired.String()),
	))
	span.SetStatus(codes.Ok, "")
	return dto.AttendeeFromDomain(record), nil
}

// CancelAttendance drops a registrant's response to "no"
func (s *admissionService) CancelAttendance(ctx context.Context, eventID string, registrant domain.Registrant) (*dto.AttendeeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.cancel")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if err := registrant.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid registrant")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
	)

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	previous, err := s.attendees.Get(ctx, eventID, registrant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	record, err := s.attendees.Upsert(ctx, eventID, registrant, domain.RSVPStatusNo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if previous.IsConfirmed() {
		if _, err := s.promoteNextLocked(ctx, event); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetStatus(codes.Ok, "")
	return dto.AttendeeFromDomain(record), nil
}

// PromoteNext promotes the next waiting entry toward the freed seat
func (s *admissionService) PromoteNext(ctx context.Context, eventID string) (*dto.WaitlistEntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.promote_next")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	entry, err := s.promoteNextLocked(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.WaitlistEntryFromDomain(entry), nil
}

// promoteNextLocked runs the promotion while the caller holds the event lock.
// Returns nil without error when there is nothing to do: no capacity limit,
// no free seat, or no waiting entry. Already-notified entries are never
// re-promoted.
func (s *admissionService) promoteNextLocked(ctx context.Context, event *domain.Event) (*domain.WaitlistEntry, error) {
	if !event.HasCapacityLimit() {
		return nil, nil
	}

	snapshot, err := s.snapshotLocked(ctx, event)
	if err != nil {
		return nil, err
	}
	if snapshot.IsAtCapacity || snapshot.WaitlistCount == 0 {
		return nil, nil
	}

	next, err := s.waitlist.NextWaiting(ctx, event.ID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.policy == PromotionPolicyAutoConvert {
		if _, err := s.attendees.Upsert(ctx, event.ID, next.Registrant, domain.RSVPStatusYes); err != nil {
			return nil, err
		}
		converted, err := s.waitlist.SetStatus(ctx, next.ID, domain.WaitlistStatusConverted)
		if err != nil {
			return nil, err
		}
		_ = s.publisher.PublishConverted(ctx, converted)
		metrics.RecordPromotion(ctx, event.ID, time.Since(next.JoinedAt).Seconds())
		metrics.RecordConversion(ctx, event.ID)
		return converted, nil
	}

	notified, err := s.waitlist.SetStatus(ctx, next.ID, domain.WaitlistStatusNotified)
	if err != nil {
		return nil, err
	}
	_ = s.publisher.PublishPromoted(ctx, notified)
	metrics.RecordPromotion(ctx, event.ID, time.Since(next.JoinedAt).Seconds())
	return notified, nil
}

// RemoveFromWaitlist hard-deletes an entry
func (s *admissionService) RemoveFromWaitlist(ctx context.Context, entryID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.remove_from_waitlist")
	defer span.End()

	if entryID == "" {
		span.SetStatus(codes.Error, "invalid entry_id")
		return domain.ErrInvalidEntryID
	}
	span.SetAttributes(attribute.String("entry_id", entryID))

	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.locks.Lock(entry.EventID)
	defer s.locks.Unlock(entry.EventID)

	if err := s.waitlist.Remove(ctx, entryID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_ = s.publisher.PublishRemoved(ctx, entry)
	metrics.RecordWaitlistRemoval(ctx, entry.EventID)

	span.SetStatus(codes.Ok, "")
	return nil
}

// Position returns the registrant's live queue position
func (s *admissionService) Position(ctx context.Context, eventID string, registrant domain.Registrant) (*dto.PositionResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.position")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if err := registrant.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid registrant")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
	)

	position, queued, err := s.waitlist.PositionOf(ctx, eventID, registrant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("position", position))
	span.SetStatus(codes.Ok, "")
	return &dto.PositionResponse{
		EventID:  eventID,
		Queued:   queued,
		Position: position,
	}, nil
}

// ListWaitlist returns the event's live entries ascending by position
func (s *admissionService) ListWaitlist(ctx context.Context, eventID string) (*dto.WaitlistResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.list_waitlist")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entries, err := s.waitlist.ListLive(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := &dto.WaitlistResponse{
		EventID: eventID,
		Entries: make([]*dto.WaitlistEntryResponse, len(entries)),
	}
	for i, entry := range entries {
		out.Entries[i] = dto.WaitlistEntryFromDomain(entry)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// SetEntryStatus transitions an entry per the state machine
func (s *admissionService) SetEntryStatus(ctx context.Context, entryID string, status domain.WaitlistStatus) (*dto.WaitlistEntryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.set_entry_status")
	defer span.End()

	if entryID == "" {
		span.SetStatus(codes.Error, "invalid entry_id")
		return nil, domain.ErrInvalidEntryID
	}
	if !status.IsValid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidStatus
	}
	span.SetAttributes(
		attribute.String("entry_id", entryID),
		attribute.String("status", status.String()),
	)

	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.locks.Lock(entry.EventID)
	defer s.locks.Unlock(entry.EventID)

	updated, err := s.waitlist.SetStatus(ctx, entryID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.WaitlistEntryFromDomain(updated), nil
}

// ExpireOverdueNotifications expires notified entries whose response window
// has lapsed
func (s *admissionService) ExpireOverdueNotifications(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.expire_overdue")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	span.SetAttributes(attribute.Int("limit", limit))

	cutoff := time.Now().Add(-s.notifyWindow)
	overdue, err := s.waitlist.ListOverdueNotified(ctx, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	expired := 0
	for _, entry := range overdue {
		if err := s.expireEntry(ctx, entry); err != nil {
			// Keep sweeping: one stuck entry must not block the batch
			span.RecordError(err)
			continue
		}
		expired++
	}

	if expired > 0 {
		metrics.RecordExpiration(ctx, int64(expired))
	}

	span.SetAttributes(attribute.Int("expired_count", expired))
	span.SetStatus(codes.Ok, "")
	return expired, nil
}

// expireEntry expires one overdue entry under its event lock and attempts a
// follow-up promotion
func (s *admissionService) expireEntry(ctx context.Context, entry *domain.WaitlistEntry) error {
	s.locks.Lock(entry.EventID)
	defer s.locks.Unlock(entry.EventID)

	// Re-read under the lock: the registrant may have converted meanwhile
	current, err := s.waitlist.GetByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	if !current.NotificationOverdue(s.notifyWindow, time.Now()) {
		return nil
	}

	expired, err := s.waitlist.SetStatus(ctx, entry.ID, domain.WaitlistStatusExpired)
	if err != nil {
		return err
	}
	_ = s.publisher.PublishExpired(ctx, expired)

	event, err := s.events.GetByID(ctx, entry.EventID)
	if err != nil {
		return err
	}
	_, err = s.promoteNextLocked(ctx, event)
	return err
}

// snapshotLocked computes the capacity snapshot. Caller holds the event lock.
func (s *admissionService) snapshotLocked(ctx context.Context, event *domain.Event) (*domain.CapacitySnapshot, error) {
	confirmed, err := s.attendees.CountConfirmed(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	queued, err := s.waitlist.CountLive(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.CapacitySnapshot{
		EventID:          event.ID,
		CurrentAttendees: confirmed,
		MaxCapacity:      event.MaxCapacity,
		WaitlistCount:    queued,
	}
	if event.MaxCapacity != nil {
		available := *event.MaxCapacity - confirmed
		if available < 0 {
			available = 0
		}
		snapshot.AvailableSpots = &available
		snapshot.IsAtCapacity = available == 0
	}
	return snapshot, nil
}

// grantedResponse wraps a direct grant in the join response shape
func grantedResponse(record *domain.AttendeeRecord) *dto.JoinResponse {
	return &dto.JoinResponse{
		Granted:  true,
		Attendee: dto.AttendeeFromDomain(record),
		Message:  "RSVP recorded",
	}
}
