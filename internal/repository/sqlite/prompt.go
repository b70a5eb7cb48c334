package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/rojgar/internal/models"
)

const schemaColumns = `id, version, description, document, created, updated`

// SaveSchema inserts s or replaces the schema with the same version.
func (r *SQLiteRepo) SaveSchema(ctx context.Context, s *models.PromptSchema) error {
	ts := now()
	row := r.conn.QueryRow(ctx, `
		INSERT INTO prompt_schemas (version, description, document, created, updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			description = excluded.description,
			document = excluded.document,
			updated = excluded.updated
		RETURNING id, created, updated`,
		s.Version, s.Description, string(s.Document), ts, ts)
	if err := row.Scan(&s.ID, &s.Created, &s.Updated); err != nil {
		return fmt.Errorf("save schema %s: %w", s.Version, err)
	}
	return nil
}

func (r *SQLiteRepo) GetSchema(ctx context.Context, version string) (*models.PromptSchema, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+schemaColumns+` FROM prompt_schemas WHERE version = ?`, version)
	s, err := scanSchema(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SQLiteRepo) ListSchemas(ctx context.Context) ([]models.PromptSchema, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+schemaColumns+` FROM prompt_schemas ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PromptSchema{}
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteSchema(ctx context.Context, version string) (bool, error) {
	return r.deleteOne(ctx, `DELETE FROM prompt_schemas WHERE version = ?`, version)
}

func scanSchema(sc scanner) (*models.PromptSchema, error) {
	var s models.PromptSchema
	var doc string
	if err := sc.Scan(&s.ID, &s.Version, &s.Description, &doc, &s.Created, &s.Updated); err != nil {
		return nil, err
	}
	s.Document = []byte(doc)
	return &s, nil
}

const templateColumns = `id, name, version, body, schema_version, created, updated`

// SaveTemplate inserts t or replaces the template with the same name and version.
func (r *SQLiteRepo) SaveTemplate(ctx context.Context, t *models.PromptTemplate) error {
	ts := now()
	row := r.conn.QueryRow(ctx, `
		INSERT INTO prompt_templates (name, version, body, schema_version, created, updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, version) DO UPDATE SET
			body = excluded.body,
			schema_version = excluded.schema_version,
			updated = excluded.updated
		RETURNING id, created, updated`,
		t.Name, t.Version, t.Body, t.SchemaVersion, ts, ts)
	if err := row.Scan(&t.ID, &t.Created, &t.Updated); err != nil {
		return fmt.Errorf("save template %s:%s: %w", t.Name, t.Version, err)
	}
	return nil
}

func (r *SQLiteRepo) GetTemplate(ctx context.Context, name, version string) (*models.PromptTemplate, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+templateColumns+` FROM prompt_templates WHERE name = ? AND version = ?`, name, version)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *SQLiteRepo) ListTemplates(ctx context.Context) ([]models.PromptTemplate, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+templateColumns+` FROM prompt_templates ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PromptTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteTemplate(ctx context.Context, name, version string) (bool, error) {
	return r.deleteOne(ctx, `DELETE FROM prompt_templates WHERE name = ? AND version = ?`, name, version)
}

func scanTemplate(sc scanner) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	if err := sc.Scan(&t.ID, &t.Name, &t.Version, &t.Body, &t.SchemaVersion, &t.Created, &t.Updated); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SQLiteRepo) deleteOne(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
