package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

// PostgresAttendeeRepository implements AttendeeRepository using PostgreSQL.
// Attendee rows carry the registrant's dedup key so one registrant holds at
// most one record per event.
type PostgresAttendeeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAttendeeRepository creates a new PostgresAttendeeRepository
func NewPostgresAttendeeRepository(pool *pgxpool.Pool) *PostgresAttendeeRepository {
	return &PostgresAttendeeRepository{pool: pool}
}

// Upsert creates or updates the registrant's record for the event
func (r *PostgresAttendeeRepository) Upsert(ctx context.Context, eventID string, registrant domain.Registrant, status domain.RSVPStatus) (*domain.AttendeeRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.attendee.upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
		attribute.String("status", status.String()),
	)

	now := time.Now()
	record := &domain.AttendeeRecord{
		ID:          uuid.New().String(),
		EventID:     eventID,
		Registrant:  registrant,
		Status:      status,
		RespondedAt: now,
	}

	query := `
		INSERT INTO attendees (
			id, event_id, registrant_key, user_id, guest_name, guest_email,
			status, responded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id, registrant_key) DO UPDATE SET
			status = EXCLUDED.status,
			responded_at = EXCLUDED.responded_at
		RETURNING id, responded_at
	`

	err := r.pool.QueryRow(ctx, query,
		record.ID,
		eventID,
		registrant.Key(),
		nullString(registrant.UserID),
		nullString(registrant.GuestName),
		nullString(registrant.GuestEmail),
		status.String(),
		now,
	).Scan(&record.ID, &record.RespondedAt)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to upsert attendee: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return record, nil
}

// Get retrieves the registrant's record for the event
func (r *PostgresAttendeeRepository) Get(ctx context.Context, eventID string, registrant domain.Registrant) (*domain.AttendeeRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.attendee.get")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
	)

	query := `
		SELECT id, event_id, user_id, guest_name, guest_email, status, responded_at
		FROM attendees
		WHERE event_id = $1 AND registrant_key = $2
	`

	record := &domain.AttendeeRecord{}
	var (
		userID     *string
		guestName  *string
		guestEmail *string
		status     string
	)

	err := r.pool.QueryRow(ctx, query, eventID, registrant.Key()).Scan(
		&record.ID,
		&record.EventID,
		&userID,
		&guestName,
		&guestEmail,
		&status,
		&record.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "attendee not found")
			return nil, domain.ErrAttendeeNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}

	if userID != nil {
		record.Registrant.UserID = *userID
	}
	if guestName != nil {
		record.Registrant.GuestName = *guestName
	}
	if guestEmail != nil {
		record.Registrant.GuestEmail = *guestEmail
	}
	record.Status = domain.RSVPStatus(status)

	span.SetStatus(codes.Ok, "")
	return record, nil
}

// CountConfirmed counts records with status "yes" for the event
func (r *PostgresAttendeeRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.attendee.count_confirmed")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var count int
	query := `SELECT COUNT(*) FROM attendees WHERE event_id = $1 AND status = 'yes'`
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count confirmed attendees: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}
