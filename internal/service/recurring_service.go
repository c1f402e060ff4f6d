package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/internal/dto"
	"github.com/gatherly/rsvp-admission/internal/repository"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// RecurringService manages recurring event series. The series root is the
// first occurrence; later occurrences are independent child events, each with
// its own capacity and waitlist state.
type RecurringService interface {
	// CreateSeries expands the recurrence into child events and returns the
	// series with its generated instances
	CreateSeries(ctx context.Context, creatorID string, req *dto.CreateSeriesRequest) (*dto.SeriesResponse, error)

	// ListSeries returns the creator's series roots with their instances
	ListSeries(ctx context.Context, creatorID string) (*dto.SeriesListResponse, error)

	// DeleteSeries removes a series root and its future instances
	DeleteSeries(ctx context.Context, seriesID string) error
}

type recurringService struct {
	events repository.EventRepository

	maxInstances   int
	defaultHorizon time.Duration
}

// RecurringServiceConfig contains configuration for the recurring service
type RecurringServiceConfig struct {
	// MaxInstances caps how many occurrences one series may generate
	// (default: 52)
	MaxInstances int
	// DefaultHorizon bounds expansion when no end date is given
	// (default: one year)
	DefaultHorizon time.Duration
}

// NewRecurringService creates a new recurring event service
func NewRecurringService(events repository.EventRepository, cfg *RecurringServiceConfig) RecurringService {
	maxInstances := 52
	horizon := 365 * 24 * time.Hour
	if cfg != nil {
		if cfg.MaxInstances > 0 {
			maxInstances = cfg.MaxInstances
		}
		if cfg.DefaultHorizon > 0 {
			horizon = cfg.DefaultHorizon
		}
	}
	return &recurringService{
		events:         events,
		maxInstances:   maxInstances,
		defaultHorizon: horizon,
	}
}

// CreateSeries expands the recurrence into child events
func (s *recurringService) CreateSeries(ctx context.Context, creatorID string, req *dto.CreateSeriesRequest) (*dto.SeriesResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.recurring.create_series")
	defer span.End()

	recurrence := domain.RecurrenceType(req.RecurrenceType)
	if !recurrence.IsValid() {
		span.SetStatus(codes.Error, "invalid recurrence type")
		return nil, domain.ErrInvalidRecurrence
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		span.SetStatus(codes.Error, "end date before start date")
		return nil, domain.ErrInvalidRecurrence
	}

	span.SetAttributes(
		attribute.String("recurrence_type", req.RecurrenceType),
		attribute.String("creator_id", creatorID),
	)

	end := req.EndDate
	if end == nil {
		horizon := req.StartDate.Add(s.defaultHorizon)
		end = &horizon
	}

	now := time.Now()
	fields := dto.FormFieldsToDomain(req.FormFields)

	parent := &domain.Event{
		ID:                uuid.New().String(),
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		StartsAt:          req.StartDate,
		CreatedBy:         creatorID,
		MaxCapacity:       req.MaxCapacity,
		WaitlistEnabled:   req.WaitlistEnabled,
		RecurrenceType:    recurrence,
		RecurrenceEndDate: req.EndDate,
		FormFields:        fields,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.events.Create(ctx, parent); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	instances := make([]*domain.Event, 0)
	startsAt := nextOccurrence(req.StartDate, recurrence)
	for len(instances) < s.maxInstances-1 && !startsAt.After(*end) {
		child := &domain.Event{
			ID:              uuid.New().String(),
			Title:           req.Title,
			Description:     req.Description,
			Location:        req.Location,
			StartsAt:        startsAt,
			CreatedBy:       creatorID,
			MaxCapacity:     req.MaxCapacity,
			WaitlistEnabled: req.WaitlistEnabled,
			RecurrenceType:  recurrence,
			ParentEventID:   &parent.ID,
			FormFields:      fields,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.events.Create(ctx, child); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		instances = append(instances, child)
		startsAt = nextOccurrence(startsAt, recurrence)
	}

	span.SetAttributes(attribute.Int("instance_count", len(instances)))
	span.SetStatus(codes.Ok, "")
	return dto.SeriesFromDomain(parent, instances), nil
}

// ListSeries returns the creator's series roots with their instances
func (s *recurringService) ListSeries(ctx context.Context, creatorID string) (*dto.SeriesListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.recurring.list_series")
	defer span.End()

	span.SetAttributes(attribute.String("creator_id", creatorID))

	parents, err := s.events.ListParentsByCreator(ctx, creatorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := &dto.SeriesListResponse{
		Series: make([]*dto.SeriesResponse, 0, len(parents)),
	}
	for _, parent := range parents {
		instances, err := s.events.ListByParent(ctx, parent.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out.Series = append(out.Series, dto.SeriesFromDomain(parent, instances))
	}

	span.SetAttributes(attribute.Int("series_count", len(out.Series)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// DeleteSeries removes a series root and its future instances
func (s *recurringService) DeleteSeries(ctx context.Context, seriesID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.recurring.delete_series")
	defer span.End()

	if seriesID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("series_id", seriesID))

	if _, err := s.events.GetByID(ctx, seriesID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.events.DeleteSeries(ctx, seriesID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// nextOccurrence steps one recurrence interval forward. Monthly and yearly
// steps use calendar arithmetic, so Jan 31 + 1 month normalizes per
// time.AddDate.
func nextOccurrence(t time.Time, recurrence domain.RecurrenceType) time.Time {
	switch recurrence {
	case domain.RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case domain.RecurrenceMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(1, 0, 0)
	}
}
