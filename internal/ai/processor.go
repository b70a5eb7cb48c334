package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository"
)

var processorLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func SetProcessorLogger(l *slog.Logger) {
	if l != nil {
		processorLogger = l
	}
}

// QuestionGenerator produces a fresh question set for a normalised stack.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, stack string) (*models.QuestionSet, error)
}

// Cache is a fast lookaside store in front of the question repository.
// Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, stack string) (*models.QuestionSet, error)
	Set(ctx context.Context, qs *models.QuestionSet) error
}

// Service answers question lookups from the cache, then the repository, and
// only then asks the generator, storing what it produced.
type Service struct {
	gen   QuestionGenerator
	repo  repository.QuestionRepo
	cache Cache
}

// NewService wires a question service. cache may be nil.
func NewService(gen QuestionGenerator, repo repository.QuestionRepo, cache Cache) *Service {
	return &Service{gen: gen, repo: repo, cache: cache}
}

// Questions returns the question set for stack, generating it on a miss.
func (s *Service) Questions(ctx context.Context, stack string) (*models.QuestionSet, error) {
	stack = strings.ToLower(strings.TrimSpace(stack))
	if stack == "" {
		return nil, fmt.Errorf("stack is empty")
	}

	if qs := s.cached(ctx, stack); qs != nil {
		return qs, nil
	}

	qs, err := s.repo.GetQuestionSet(ctx, stack)
	if err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	if qs != nil {
		s.remember(ctx, qs)
		return qs, nil
	}

	return s.generate(ctx, stack)
}

// Pregenerate makes sure a question set exists for stack. It does nothing
// when one is already stored.
func (s *Service) Pregenerate(ctx context.Context, stack string) error {
	stack = strings.ToLower(strings.TrimSpace(stack))
	if stack == "" {
		return fmt.Errorf("stack is empty")
	}

	existing, err := s.repo.GetQuestionSet(ctx, stack)
	if err != nil {
		return fmt.Errorf("load question set: %w", err)
	}
	if existing != nil {
		processorLogger.Debug("question set already present", "stack", stack)
		return nil
	}

	_, err = s.generate(ctx, stack)
	return err
}

func (s *Service) generate(ctx context.Context, stack string) (*models.QuestionSet, error) {
	qs, err := s.gen.GenerateQuestions(ctx, stack)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveQuestionSet(ctx, qs); err != nil {
		// the caller still gets its answer; the next request regenerates
		processorLogger.Warn("save question set failed", "stack", stack, "err", err)
	} else {
		processorLogger.Info("question set stored", "stack", stack, "model", qs.Model)
	}
	s.remember(ctx, qs)

	return qs, nil
}

func (s *Service) cached(ctx context.Context, stack string) *models.QuestionSet {
	if s.cache == nil {
		return nil
	}
	qs, err := s.cache.Get(ctx, stack)
	if err != nil {
		processorLogger.Warn("question cache get failed", "stack", stack, "err", err)
		return nil
	}
	return qs
}

func (s *Service) remember(ctx context.Context, qs *models.QuestionSet) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, qs); err != nil {
		processorLogger.Warn("question cache set failed", "stack", qs.Stack, "err", err)
	}
}
