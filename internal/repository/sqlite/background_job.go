package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
)

// Queue timestamps are unix seconds so they compare with the column defaults.

const defaultMaxAttempts = 5

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

func (r *SQLiteRepo) Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error) {
	if j == nil {
		return 0, errors.New("enqueue: nil job")
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = defaultMaxAttempts
	}
	now := time.Now().UTC()
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = now
	}

	res, err := r.conn.Exec(ctx,
		`INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Type, string(j.Payload), models.JobQueued, j.Attempts, j.MaxAttempts, j.Priority,
		j.ScheduledAt.Unix(), now.Unix(), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", j.Type, err)
	}
	return res.LastInsertId()
}

// FetchNext atomically claims the most urgent due job (lowest priority value
// first, then oldest) and marks it running. It returns nil, nil when nothing
// is due.
func (r *SQLiteRepo) FetchNext(ctx context.Context) (*models.BackgroundJob, error) {
	row := r.conn.QueryRow(ctx, `
UPDATE jobs SET status = ?2, updated = ?1
WHERE id = (
	SELECT id FROM jobs
	WHERE status IN (?3, ?4)
	  AND scheduled_at <= ?1
	  AND (next_try_at IS NULL OR next_try_at <= ?1)
	ORDER BY priority, scheduled_at, id
	LIMIT 1
)
RETURNING `+jobColumns,
		time.Now().UTC().Unix(), models.JobRunning, models.JobQueued, models.JobRetry)

	j, err := scanBackgroundJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

func scanBackgroundJob(s scanner) (*models.BackgroundJob, error) {
	var (
		j                       models.BackgroundJob
		payload, lastError      sql.NullString
		scheduled, created, upd int64
		nextTry                 sql.NullInt64
	)
	if err := s.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority,
		&scheduled, &nextTry, &lastError, &created, &upd); err != nil {
		return nil, err
	}
	j.Payload = []byte(payload.String)
	j.LastError = lastError.String
	j.ScheduledAt = time.Unix(scheduled, 0)
	j.Created = time.Unix(created, 0)
	j.Updated = time.Unix(upd, 0)
	if nextTry.Valid {
		t := time.Unix(nextTry.Int64, 0)
		j.NextTryAt = &t
	}
	return &j, nil
}

// UpdateJob persists the outcome of a run: status, attempts, retry time and error.
func (r *SQLiteRepo) UpdateJob(ctx context.Context, j *models.BackgroundJob) error {
	var nextTry sql.NullInt64
	if j.NextTryAt != nil {
		nextTry = sql.NullInt64{Int64: j.NextTryAt.Unix(), Valid: true}
	}
	_, err := r.conn.Exec(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().Unix(), j.ID)
	if err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, err)
	}
	return nil
}

// MoveToDeadLetter copies the job into dead_letter_jobs and removes it from
// the queue in one transaction.
func (r *SQLiteRepo) MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) (err error) {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?, ?, ?, ?, ?, ?)`,
		j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("dead-letter job %d: %w", j.ID, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		return fmt.Errorf("dequeue job %d: %w", j.ID, err)
	}
	return tx.Commit()
}

// QueueStats counts queued jobs per status; dead letters are reported under "dead".
func (r *SQLiteRepo) QueueStats(ctx context.Context) (map[string]int64, error) {
	rows, err := r.conn.QueryRows(ctx,
		`SELECT status, COUNT(1) FROM jobs GROUP BY status
		 UNION ALL
		 SELECT 'dead', COUNT(1) FROM dead_letter_jobs`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats[status] = n
	}
	return stats, rows.Err()
}
