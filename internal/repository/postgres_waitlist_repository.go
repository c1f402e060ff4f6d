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

// PostgresWaitlistRepository implements WaitlistRepository using PostgreSQL.
// Position assignment and renumbering run inside a transaction that locks the
// event row, so concurrent joins and removals on the same event serialize and
// the live position sequence stays dense.
type PostgresWaitlistRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWaitlistRepository creates a new PostgresWaitlistRepository
func NewPostgresWaitlistRepository(pool *pgxpool.Pool) *PostgresWaitlistRepository {
	return &PostgresWaitlistRepository{pool: pool}
}

const waitlistColumns = `
	id, event_id, user_id, guest_name, guest_email, position, joined_at, notified_at, status
`

// Join appends the registrant at (max live position)+1 with status waiting
func (r *PostgresWaitlistRepository) Join(ctx context.Context, eventID string, registrant domain.Registrant) (*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.join")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
	)

	entry := &domain.WaitlistEntry{
		ID:         uuid.New().String(),
		EventID:    eventID,
		Registrant: registrant,
		JoinedAt:   time.Now(),
		Status:     domain.WaitlistStatusWaiting,
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockEvent(ctx, tx, eventID); err != nil {
			return err
		}

		var live int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM waitlist_entries
			WHERE event_id = $1 AND registrant_key = $2 AND status IN ('waiting', 'notified')
		`, eventID, registrant.Key()).Scan(&live)
		if err != nil {
			return fmt.Errorf("failed to check existing entry: %w", err)
		}
		if live > 0 {
			return domain.ErrDuplicateEntry
		}

		err = tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist_entries
			WHERE event_id = $1 AND status IN ('waiting', 'notified')
		`, eventID).Scan(&entry.Position)
		if err != nil {
			return fmt.Errorf("failed to compute position: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO waitlist_entries (
				id, event_id, registrant_key, user_id, guest_name, guest_email,
				position, joined_at, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			entry.ID,
			eventID,
			registrant.Key(),
			nullString(registrant.UserID),
			nullString(registrant.GuestName),
			nullString(registrant.GuestEmail),
			entry.Position,
			entry.JoinedAt,
			entry.Status.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("position", entry.Position))
	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// GetByID retrieves an entry by its ID
func (r *PostgresWaitlistRepository) GetByID(ctx context.Context, entryID string) (*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("entry_id", entryID))

	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`

	entry, err := scanWaitlistEntry(r.pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "entry not found")
			return nil, domain.ErrEntryNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// Remove hard-deletes the entry and renumbers later live entries
func (r *PostgresWaitlistRepository) Remove(ctx context.Context, entryID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.remove")
	defer span.End()

	span.SetAttributes(attribute.String("entry_id", entryID))

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			eventID  string
			position int
			status   string
		)
		err := tx.QueryRow(ctx, `
			SELECT event_id, position, status FROM waitlist_entries WHERE id = $1 FOR UPDATE
		`, entryID).Scan(&eventID, &position, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load entry: %w", err)
		}

		if err := lockEvent(ctx, tx, eventID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, entryID); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		// Only a live entry occupied a slot in the dense sequence
		if domain.WaitlistStatus(status).IsLive() {
			return renumberAfter(ctx, tx, eventID, position)
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetStatus transitions the entry per the state machine
func (r *PostgresWaitlistRepository) SetStatus(ctx context.Context, entryID string, status domain.WaitlistStatus) (*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.set_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry_id", entryID),
		attribute.String("status", status.String()),
	)

	var entry *domain.WaitlistEntry
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanWaitlistEntry(tx.QueryRow(ctx,
			`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1 FOR UPDATE`, entryID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load entry: %w", err)
		}

		if !current.Status.CanTransitionTo(status) {
			return domain.ErrInvalidTransition
		}

		if err := lockEvent(ctx, tx, current.EventID); err != nil {
			return err
		}

		var notifiedAt *time.Time
		if status == domain.WaitlistStatusNotified {
			now := time.Now()
			notifiedAt = &now
		} else {
			notifiedAt = current.NotifiedAt
		}

		_, err = tx.Exec(ctx, `
			UPDATE waitlist_entries SET status = $2, notified_at = $3 WHERE id = $1
		`, entryID, status.String(), notifiedAt)
		if err != nil {
			return fmt.Errorf("failed to update entry status: %w", err)
		}

		// Leaving the live set frees a queue slot for everyone behind
		if current.Status.IsLive() && !status.IsLive() {
			if err := renumberAfter(ctx, tx, current.EventID, current.Position); err != nil {
				return err
			}
		}

		current.Status = status
		current.NotifiedAt = notifiedAt
		entry = current
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// PositionOf returns the live position for the registrant
func (r *PostgresWaitlistRepository) PositionOf(ctx context.Context, eventID string, registrant domain.Registrant) (int, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.position_of")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("registrant_key", registrant.Key()),
	)

	var position int
	err := r.pool.QueryRow(ctx, `
		SELECT position FROM waitlist_entries
		WHERE event_id = $1 AND registrant_key = $2 AND status IN ('waiting', 'notified')
	`, eventID, registrant.Key()).Scan(&position)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "")
		return 0, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, false, fmt.Errorf("failed to get position: %w", err)
	}

	span.SetAttributes(attribute.Int("position", position))
	span.SetStatus(codes.Ok, "")
	return position, true, nil
}

// ListLive returns the event's live entries ascending by position
func (r *PostgresWaitlistRepository) ListLive(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.list_live")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE event_id = $1 AND status IN ('waiting', 'notified')
		ORDER BY position ASC
	`, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.WaitlistEntry, 0)
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// CountLive counts the event's live entries
func (r *PostgresWaitlistRepository) CountLive(ctx context.Context, eventID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.count_live")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM waitlist_entries
		WHERE event_id = $1 AND status IN ('waiting', 'notified')
	`, eventID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// NextWaiting returns the lowest-position entry with status waiting
func (r *PostgresWaitlistRepository) NextWaiting(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.next_waiting")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	entry, err := scanWaitlistEntry(r.pool.QueryRow(ctx, `
		SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE event_id = $1 AND status = 'waiting'
		ORDER BY position ASC
		LIMIT 1
	`, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "no waiting entry")
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get next waiting entry: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// ListOverdueNotified returns notified entries whose notification is older than cutoff
func (r *PostgresWaitlistRepository) ListOverdueNotified(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.waitlist.list_overdue_notified")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE status = 'notified' AND notified_at < $1
		ORDER BY notified_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list overdue entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.WaitlistEntry, 0)
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// lockEvent takes the per-event row lock that serializes waitlist mutations
func lockEvent(ctx context.Context, tx pgx.Tx, eventID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock event: %w", err)
	}
	return nil
}

// renumberAfter closes the gap left at the given position by decrementing
// every later live entry. Caller must hold the event row lock.
func renumberAfter(ctx context.Context, tx pgx.Tx, eventID string, position int) error {
	_, err := tx.Exec(ctx, `
		UPDATE waitlist_entries
		SET position = position - 1
		WHERE event_id = $1 AND position > $2 AND status IN ('waiting', 'notified')
	`, eventID, position)
	if err != nil {
		return fmt.Errorf("failed to renumber entries: %w", err)
	}
	return nil
}

// scanWaitlistEntry scans one waitlist entry row
func scanWaitlistEntry(row pgx.Row) (*domain.WaitlistEntry, error) {
	entry := &domain.WaitlistEntry{}
	var (
		userID     *string
		guestName  *string
		guestEmail *string
		status     string
	)

	err := row.Scan(
		&entry.ID,
		&entry.EventID,
		&userID,
		&guestName,
		&guestEmail,
		&entry.Position,
		&entry.JoinedAt,
		&entry.NotifiedAt,
		&status,
	)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		entry.Registrant.UserID = *userID
	}
	if guestName != nil {
		entry.Registrant.GuestName = *guestName
	}
	if guestEmail != nil {
		entry.Registrant.GuestEmail = *guestEmail
	}
	entry.Status = domain.WaitlistStatus(status)

	return entry, nil
}
