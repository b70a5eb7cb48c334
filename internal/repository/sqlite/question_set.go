package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/rojgar/internal/models"
)

// SaveQuestionSet inserts or replaces the set stored for qs.Stack.
func (r *SQLiteRepo) SaveQuestionSet(ctx context.Context, qs *models.QuestionSet) error {
	if qs == nil {
		return fmt.Errorf("question set is nil")
	}
	if qs.Stack == "" {
		return fmt.Errorf("question set stack is empty")
	}

	if qs.Created == 0 {
		qs.Created = now()
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO question_sets (stack, technical, behavioral, technical_answers, behavioral_answers, model, template_version, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(stack) DO UPDATE SET technical=excluded.technical, behavioral=excluded.behavioral, technical_answers=excluded.technical_answers, behavioral_answers=excluded.behavioral_answers, model=excluded.model, template_version=excluded.template_version, created=excluded.created`,
		qs.Stack, encodeList(qs.Technical), encodeList(qs.Behavioral), encodeList(qs.TechnicalAnswers), encodeList(qs.BehavioralAnswers), qs.Model, qs.TemplateVersion, qs.Created)
	return err
}

func (r *SQLiteRepo) GetQuestionSet(ctx context.Context, stack string) (*models.QuestionSet, error) {
	row := r.conn.QueryRow(ctx, `SELECT stack, technical, behavioral, technical_answers, behavioral_answers, model, template_version, created FROM question_sets WHERE stack = ?`, stack)

	var (
		qs                     models.QuestionSet
		tech, beh, techA, behA string
	)
	if err := row.Scan(&qs.Stack, &tech, &beh, &techA, &behA, &qs.Model, &qs.TemplateVersion, &qs.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var err error
	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{tech, &qs.Technical},
		{beh, &qs.Behavioral},
		{techA, &qs.TechnicalAnswers},
		{behA, &qs.BehavioralAnswers},
	} {
		if *f.dst, err = decodeList(f.raw); err != nil {
			return nil, fmt.Errorf("decode question set %q: %w", stack, err)
		}
	}

	return &qs, nil
}

func (r *SQLiteRepo) DeleteQuestionSet(ctx context.Context, stack string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM question_sets WHERE stack = ?`, stack)
	return err
}
