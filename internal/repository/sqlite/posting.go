package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
)

const postingColumns = `id, title, description, categories, opens_at, closes_at, user_id, created, updated`

// CreateJob stores a job posting and returns its id. Embeddings are never persisted.
func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO job_postings (title, description, categories, opens_at, closes_at, user_id, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Title, j.Description, encodeList(j.Category), j.CreatedAt.UTC().Unix(), j.ClosedAt.UTC().Unix(), j.UserID, ts, ts)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	j.ID, j.Created, j.Updated = id, ts, ts

	return id, nil
}

func (r *SQLiteRepo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+postingColumns+` FROM job_postings WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// matchJob keeps rows whose title or description contains ?1, compared
// lower-case; an empty term keeps everything. instr avoids LIKE wildcards in
// user input.
const matchJob = `(?1 = '' OR instr(lower(title), ?1) > 0 OR instr(lower(description), ?1) > 0)`

func searchTerm(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// ListJobs returns postings matching q, newest first. The filter runs before
// LIMIT/OFFSET so every page is a page of matches. A non-positive limit
// returns every match.
func (r *SQLiteRepo) ListJobs(ctx context.Context, q string, limit, offset int) ([]models.Job, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT `+postingColumns+` FROM job_postings WHERE `+matchJob+`
		ORDER BY created DESC, id DESC LIMIT ?2 OFFSET ?3`, searchTerm(q), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// CountJobs counts the postings ListJobs would return for q without paging.
func (r *SQLiteRepo) CountJobs(ctx context.Context, q string) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM job_postings WHERE `+matchJob, searchTerm(q)).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) DeleteJob(ctx context.Context, id int64) (bool, error) {
	return r.deleteOne(ctx, `DELETE FROM job_postings WHERE id = ?`, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.Job, error) {
	var (
		j          models.Job
		categories string
		opens      int64
		closes     int64
	)
	if err := s.Scan(&j.ID, &j.Title, &j.Description, &categories, &opens, &closes, &j.UserID, &j.Created, &j.Updated); err != nil {
		return nil, err
	}

	list, err := decodeList(categories)
	if err != nil {
		return nil, fmt.Errorf("decode categories for job %d: %w", j.ID, err)
	}
	j.Category = list
	j.CreatedAt = time.Unix(opens, 0).UTC()
	j.ClosedAt = time.Unix(closes, 0).UTC()

	return &j, nil
}
