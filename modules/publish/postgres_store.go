package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements ScheduleStore and ContentStore on a pgx
// connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a postgres-backed schedule store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrStoreNil
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateSchedule(ctx context.Context, schedule *Schedule) error {
	if schedule.Status == "" {
		schedule.Status = StatusPending
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedules (id, content_item_id, platform, scheduled_at, organization_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		schedule.ID, schedule.ContentItemID, schedule.Platform, schedule.ScheduledAt,
		schedule.OrganizationID, schedule.Status,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, content_item_id, platform, scheduled_at, organization_id, status, provider_id, last_error, created_at, updated_at
		FROM schedules WHERE id = $1`, id)

	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return schedule, nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*Schedule, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content_item_id, platform, scheduled_at, organization_id, status, provider_id, last_error, created_at, updated_at
		FROM schedules
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3`,
		StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, schedule)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkQueued(ctx context.Context, id uuid.UUID) error {
	// Guarded by status so a racing cycle that already advanced the
	// schedule turns this into a no-op.
	_, err := s.pool.Exec(ctx, `
		UPDATE schedules SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		StatusQueued, id, StatusPending)
	if err != nil {
		return fmt.Errorf("mark schedule queued: %w", err)
	}
	return nil
}

func (s *PostgresStore) CancelSchedule(ctx context.Context, id uuid.UUID) error {
	row := s.pool.QueryRow(ctx, `SELECT status FROM schedules WHERE id = $1`, id)

	var status ScheduleStatus
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("get schedule status: %w", err)
	}

	switch status {
	case StatusCancelled:
		return nil
	case StatusPending, StatusQueued:
	default:
		return ErrScheduleNotPending
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE schedules SET status = $1, updated_at = now()
		WHERE id = $2 AND status IN ($3, $4)`,
		StatusCancelled, id, StatusPending, StatusQueued)
	if err != nil {
		return fmt.Errorf("cancel schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	var tag pgconn.CommandTag
	var err error
	if outcome.Success {
		tag, err = s.pool.Exec(ctx, `
			UPDATE schedules SET status = $1, provider_id = $2, last_error = NULL, updated_at = now()
			WHERE id = $3`,
			StatusPublished, nullableString(outcome.ProviderID), id)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE schedules SET status = $1, last_error = $2, updated_at = now()
			WHERE id = $3`,
			StatusFailed, nullableString(outcome.Error), id)
	}
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (s *PostgresStore) GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, subject, body, created_at
		FROM content_items WHERE id = $1`, id)

	var item ContentItem
	if err := row.Scan(&item.ID, &item.OrganizationID, &item.Subject, &item.Body, &item.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("get content item: %w", err)
	}
	return &item, nil
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var schedule Schedule
	err := row.Scan(
		&schedule.ID, &schedule.ContentItemID, &schedule.Platform, &schedule.ScheduledAt,
		&schedule.OrganizationID, &schedule.Status, &schedule.ProviderID, &schedule.LastError,
		&schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
