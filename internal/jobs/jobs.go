package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
)

// Job types handled by the worker pool.
const (
	TypePregenerateQuestions = "questions.pregenerate"
)

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *models.BackgroundJob) error

// maxBackoff caps the retry delay.
const maxBackoff = 5 * time.Minute

// BackoffDuration is 2^attempt seconds, capped at five minutes.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt >= 9 {
		return maxBackoff
	}
	return min(time.Duration(1<<attempt)*time.Second, maxBackoff)
}

var errEmptyStack = errors.New("payload stack is empty")

// PregeneratePayload is the payload of a questions.pregenerate job.
type PregeneratePayload struct {
	Stack string `json:"stack"`
}

// Pregenerator is satisfied by ai.Service.
type Pregenerator interface {
	Pregenerate(ctx context.Context, stack string) error
}

// QuestionsHandler returns the handler for questions.pregenerate jobs.
func QuestionsHandler(p Pregenerator) Handler {
	return func(ctx context.Context, j *models.BackgroundJob) error {
		var payload PregeneratePayload
		if err := json.Unmarshal(j.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if strings.TrimSpace(payload.Stack) == "" {
			return errEmptyStack
		}
		return p.Pregenerate(ctx, payload.Stack)
	}
}
