package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// PostgresEventRepository implements EventRepository using PostgreSQL with pgxpool
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

const eventColumns = `
	id, title, description, location, starts_at, created_by,
	max_capacity, waitlist_enabled, recurrence_type, recurrence_end_date,
	parent_event_id, form_fields, created_at, updated_at
`

// Create persists a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("created_by", event.CreatedBy),
	)

	fields, err := json.Marshal(event.FormFields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal form fields: %w", err)
	}

	query := `
		INSERT INTO events (
			id, title, description, location, starts_at, created_by,
			max_capacity, waitlist_enabled, recurrence_type, recurrence_end_date,
			parent_event_id, form_fields, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)
	`

	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Title,
		nullString(event.Description),
		nullString(event.Location),
		event.StartsAt,
		event.CreatedBy,
		event.MaxCapacity,
		event.WaitlistEnabled,
		nullString(string(event.RecurrenceType)),
		event.RecurrenceEndDate,
		event.ParentEventID,
		fields,
		event.CreatedAt,
		event.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an event by its ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "event not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// ListByParent retrieves the generated instances of a recurring series
func (r *PostgresEventRepository) ListByParent(ctx context.Context, parentEventID string) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list_by_parent")
	defer span.End()

	span.SetAttributes(attribute.String("parent_event_id", parentEventID))

	query := `SELECT ` + eventColumns + ` FROM events WHERE parent_event_id = $1 ORDER BY starts_at ASC`

	rows, err := r.pool.Query(ctx, query, parentEventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list series instances: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// ListParentsByCreator retrieves the recurring series roots owned by a user
func (r *PostgresEventRepository) ListParentsByCreator(ctx context.Context, creatorID string) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list_parents_by_creator")
	defer span.End()

	span.SetAttributes(attribute.String("created_by", creatorID))

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE created_by = $1 AND recurrence_type IS NOT NULL AND parent_event_id IS NULL
		ORDER BY starts_at ASC
	`

	rows, err := r.pool.Query(ctx, query, creatorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// DeleteSeries removes a series root and its future instances
func (r *PostgresEventRepository) DeleteSeries(ctx context.Context, parentEventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.delete_series")
	defer span.End()

	span.SetAttributes(attribute.String("parent_event_id", parentEventID))

	query := `
		DELETE FROM events
		WHERE id = $1
		   OR (parent_event_id = $1 AND starts_at > now())
	`

	tag, err := r.pool.Exec(ctx, query, parentEventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete series: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "event not found")
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// scanEvent scans one event row
func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	var (
		description    *string
		location       *string
		recurrenceType *string
		fields         []byte
		endDate        *time.Time
	)

	err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&location,
		&event.StartsAt,
		&event.CreatedBy,
		&event.MaxCapacity,
		&event.WaitlistEnabled,
		&recurrenceType,
		&endDate,
		&event.ParentEventID,
		&fields,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		event.Description = *description
	}
	if location != nil {
		event.Location = *location
	}
	if recurrenceType != nil {
		event.RecurrenceType = domain.RecurrenceType(*recurrenceType)
	}
	event.RecurrenceEndDate = endDate
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &event.FormFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal form fields: %w", err)
		}
	}

	return event, nil
}

func collectEvents(rows pgx.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// nullString returns nil for empty strings so they store as NULL
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
