package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// seedRow inserts the contents of file unless the row already exists, so
// edits made through the admin API survive restarts.
type seedRow struct {
	file  string
	query string
	args  func(body string, ts int64) []any
}

var seeds = []seedRow{
	{
		file: "schema_questions_v1.json",
		query: `INSERT INTO prompt_schemas (version, description, document, created, updated)
			VALUES ('v1', 'interview question set', ?, ?, ?) ON CONFLICT(version) DO NOTHING`,
		args: func(body string, ts int64) []any { return []any{body, ts, ts} },
	},
	{
		file: "template_questions_v1.txt",
		query: `INSERT INTO prompt_templates (name, version, body, schema_version, created, updated)
			VALUES ('questions', 'v1', ?, 'v1', ?, ?) ON CONFLICT(name, version) DO NOTHING`,
		args: func(body string, ts int64) []any { return []any{body, ts, ts} },
	},
}

// Migrate applies every migrations/*.sql file not yet recorded in
// schema_migrations, in file name order, then applies the seed/ files that
// are present. Each migration runs in its own transaction.
func Migrate(ctx context.Context, d *DB, migrations fs.FS, seed fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, d)
	if err != nil {
		return err
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		if applied[version] {
			continue
		}
		b, err := fs.ReadFile(migrations, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if err := applyMigration(ctx, d, version, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return applySeeds(ctx, d, seed)
}

func appliedVersions(ctx context.Context, d *DB) (map[string]bool, error) {
	rows, err := d.QueryRows(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func applyMigration(ctx context.Context, d *DB, version, stmts string) error {
	tx, err := d.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmts); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, ?)`, version, time.Now().UTC().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

func applySeeds(ctx context.Context, d *DB, seed fs.FS) error {
	if seed == nil {
		return nil
	}
	ts := time.Now().UTC().UnixMilli()
	for _, s := range seeds {
		b, err := fs.ReadFile(seed, path.Join("seed", s.file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read seed %s: %w", s.file, err)
		}
		if _, err := d.Exec(ctx, s.query, s.args(string(b), ts)...); err != nil {
			return fmt.Errorf("seed %s: %w", s.file, err)
		}
	}
	return nil
}
