package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/publora/publora/pkg/pg"
)

// PostgresStorage implements all queue repository interfaces on top of a
// pgx connection pool. Claim semantics rely on FOR UPDATE SKIP LOCKED so
// concurrent workers never observe the same pending job.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a postgres-backed queue storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrRepositoryNil
	}
	return &PostgresStorage{pool: pool}, nil
}

// CreateJob implements EnqueuerRepository. The primary key on the
// deterministic job id turns duplicate submissions into ErrDuplicateJob.
func (s *PostgresStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrPayloadNil
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO publish_jobs (id, name, payload, status, attempts, max_attempts, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		job.ID, job.Name, job.Payload, job.Status, job.Attempts, job.MaxAttempts, job.ScheduledAt, job.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateJob
		}
		return fmt.Errorf("insert job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateJob
	}

	return nil
}

// ClaimJob implements WorkerRepository. A processing row whose lock has
// expired belonged to a crashed worker and is claimable again, which is what
// makes delivery at-least-once.
func (s *PostgresStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Job, error) {
	lockUntil := time.Now().Add(lockDuration)

	row := s.pool.QueryRow(ctx, `
		UPDATE publish_jobs
		SET status = $1, locked_until = $2, locked_by = $3
		WHERE id = (
			SELECT id FROM publish_jobs
			WHERE (status = $4 AND scheduled_at <= now())
			   OR (status = $1 AND locked_until < now())
			ORDER BY scheduled_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, status, attempts, max_attempts, scheduled_at, locked_until, locked_by, last_error, created_at`,
		StatusProcessing, lockUntil, workerID, StatusPending,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobToClaim
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}

	return job, nil
}

// CompleteJob implements WorkerRepository.
func (s *PostgresStorage) CompleteJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM publish_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// RetryJob implements WorkerRepository.
func (s *PostgresStorage) RetryJob(ctx context.Context, jobID string, errMsg string, delay time.Duration) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE publish_jobs
		SET status = $1,
		    attempts = attempts + 1,
		    last_error = $2,
		    scheduled_at = $3,
		    locked_until = NULL,
		    locked_by = NULL
		WHERE id = $4`,
		StatusPending, errMsg, time.Now().Add(delay), jobID,
	)
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MoveToDLQ implements WorkerRepository. The move is transactional so a job
// is never both dead-lettered and claimable.
func (s *PostgresStorage) MoveToDLQ(ctx context.Context, jobID string, errMsg string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dlq move: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO publish_jobs_dlq (id, job_id, name, payload, attempts, error, failed_at, created_at)
		SELECT gen_random_uuid(), id, name, payload, attempts + 1, $1, now(), now()
		FROM publish_jobs WHERE id = $2`,
		errMsg, jobID,
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM publish_jobs WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("delete dead-lettered job: %w", err)
	}

	return tx.Commit(ctx)
}

// ListDeadLetters implements DLQRepository.
func (s *PostgresStorage) ListDeadLetters(ctx context.Context, limit int) ([]*DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, name, payload, attempts, error, failed_at, created_at
		FROM publish_jobs_dlq
		ORDER BY failed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []*DeadLetter
	for rows.Next() {
		var dl DeadLetter
		if err := rows.Scan(&dl.ID, &dl.JobID, &dl.Name, &dl.Payload, &dl.Attempts, &dl.Error, &dl.FailedAt, &dl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		out = append(out, &dl)
	}

	return out, rows.Err()
}

func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	err := row.Scan(
		&job.ID, &job.Name, &job.Payload, &job.Status, &job.Attempts, &job.MaxAttempts,
		&job.ScheduledAt, &job.LockedUntil, &job.LockedBy, &job.LastError, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
