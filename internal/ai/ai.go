package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/ollama"
	"github.com/garnizeh/rojgar/pkg/repository"
)

// ErrNoQuestions is returned when the model produced no technical question.
var ErrNoQuestions = errors.New("model returned no technical questions")

// Generator is the part of ollama.Client the engine needs.
type Generator interface {
	Generate(ctx context.Context, model string, prompt string) (ollama.Result, error)
}

var _ Generator = (*ollama.Client)(nil)

// QuestionsResponse is the JSON object the prompt asks the model for.
type QuestionsResponse struct {
	Technical         []string `json:"technical"`
	Behavioral        []string `json:"behavioral"`
	TechnicalAnswers  []string `json:"technicalAnswers"`
	BehavioralAnswers []string `json:"behavioralAnswers"`

	// Raw captures the original model output for auditing/logging.
	Raw string `json:"-"`
}

// Engine renders the question prompt, calls the model and checks its output.
type Engine struct {
	gen       Generator
	cfg       config.EngineConfig
	schemas   *SchemaSet
	templates repository.TemplateRepo

	mu  sync.RWMutex
	tpl *models.PromptTemplate
}

var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger sets the logger used by internal/ai. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// NewEngine loads the answer schemas and the configured prompt template.
func NewEngine(ctx context.Context, gen Generator, cfg config.EngineConfig, sr repository.SchemaRepo, tr repository.TemplateRepo) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if sr == nil {
		return nil, fmt.Errorf("schema repo is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("template repo is required")
	}

	if cfg.TemplateName == "" {
		cfg.TemplateName = "questions"
	}
	if cfg.TemplateVersion == "" {
		cfg.TemplateVersion = "v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 5
	}

	schemas, err := NewSchemaSet(ctx, sr)
	if err != nil {
		return nil, err
	}

	e := &Engine{gen: gen, cfg: cfg, schemas: schemas, templates: tr}
	if err := e.ReloadTemplate(ctx); err != nil {
		return nil, err
	}

	return e, nil
}

// ReloadTemplate reads the configured prompt template from the repository.
func (e *Engine) ReloadTemplate(ctx context.Context) error {
	tpl, err := e.loadTemplate(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.tpl = tpl
	e.mu.Unlock()

	return nil
}

func (e *Engine) loadTemplate(ctx context.Context) (*models.PromptTemplate, error) {
	tpl, err := e.templates.GetTemplate(ctx, e.cfg.TemplateName, e.cfg.TemplateVersion)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tpl == nil || strings.TrimSpace(tpl.Body) == "" {
		return nil, fmt.Errorf("template %s:%s not found", e.cfg.TemplateName, e.cfg.TemplateVersion)
	}
	return tpl, nil
}

// Reload refreshes the schema cache and the prompt template together. Both
// are loaded before either is installed, so a failure leaves the engine
// exactly as it was.
func (e *Engine) Reload(ctx context.Context) error {
	compiled, err := e.schemas.compile(ctx)
	if err != nil {
		return err
	}
	tpl, err := e.loadTemplate(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.schemas.install(compiled)
	e.tpl = tpl
	e.mu.Unlock()

	return nil
}

// GenerateQuestions asks the model for interview questions about stack.
// stack is expected to be normalised already.
func (e *Engine) GenerateQuestions(ctx context.Context, stack string) (*models.QuestionSet, error) {
	e.mu.RLock()
	tpl := e.tpl
	e.mu.RUnlock()

	data := map[string]any{"Stack": stack, "Count": e.cfg.QuestionCount}
	prompt, err := ollama.RenderPrompt(tpl.Body, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	ctxReq, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := e.gen.Generate(ctxReq, e.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	resp, err := ParseQuestions(out.Text)
	if err != nil {
		logger.Warn("ai parse error", "err", err, "stack", stack, "raw", out.Text)
		return nil, fmt.Errorf("parse response: %w", err)
	}

	qs := resp.Normalize(stack)
	if len(qs.Technical) == 0 {
		return nil, ErrNoQuestions
	}

	if tpl.SchemaVersion != "" {
		if err := e.schemas.Validate(ctxReq, tpl.SchemaVersion, []byte(extractJSON(out.Text))); err != nil {
			return nil, err
		}
	}

	qs.Model = e.cfg.Model
	qs.TemplateVersion = tpl.Version
	qs.Created = time.Now().UTC().UnixMilli()

	logger.Info("questions generated", "stack", stack, "technical", len(qs.Technical), "behavioral", len(qs.Behavioral), "latency_ms", time.Since(start).Milliseconds())

	return qs, nil
}

// ParseQuestions extracts a JSON object from arbitrary model output and unmarshals it.
func ParseQuestions(s string) (*QuestionsResponse, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty response")
	}

	j := extractJSON(s)
	if j == "" {
		return nil, errors.New("no JSON object found in response")
	}

	var r QuestionsResponse
	if err := json.Unmarshal([]byte(j), &r); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	r.Raw = s

	return &r, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in the input.
// This is a pragmatic approach to handle model outputs that wrap JSON in text or markdown.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
