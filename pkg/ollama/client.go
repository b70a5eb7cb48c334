package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/rojgar/internal/config"
)

var (
	ErrCircuitOpen = errors.New("ollama circuit open")
	ErrNoModel     = errors.New("ollama: no model configured")
)

var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client talks to an Ollama server. Every call gets the configured timeout,
// generation is retried with linear backoff and a circuit breaker stops
// hammering a server that keeps failing.
type Client struct {
	api     *api.Client
	http    *http.Client
	cfg     config.OllamaConfig
	cb      *breaker
	format  json.RawMessage
	closeMu sync.Once
}

// Option customises a Client.
type Option func(*Client)

// WithJSONFormat asks the server to constrain output to valid JSON.
func WithJSONFormat() Option {
	return func(c *Client) { c.format = json.RawMessage(`"json"`) }
}

// Result is a finished generation.
type Result struct {
	Text     string
	Model    string
	Attempts int
	Latency  time.Duration

	// Final is the last streamed chunk, which carries the token counts.
	Final json.RawMessage
}

// ModelInfo is a model installed on the server.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// NewClient builds a Client for cfg.BaseURL using httpClient (a plain client
// with cfg.Timeout when nil).
func NewClient(cfg config.OllamaConfig, httpClient *http.Client, opts ...Option) (*Client, error) {
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.Retries = max(cfg.Retries, 0)

	c := &Client{
		api:  api.NewClient(u, httpClient),
		http: httpClient,
		cfg:  cfg,
		cb:   newBreaker(cfg.CircuitFailureThreshold, cfg.CircuitReset),
	}
	for _, opt := range opts {
		opt(c)
	}

	logger.Info("ollama client ready", "base_url", cfg.BaseURL, "timeout", cfg.Timeout, "retries", cfg.Retries)
	return c, nil
}

// NewDefaultClient uses a pooled transport without an overall client
// timeout, so long streams are bounded only by the per-call timeout.
func NewDefaultClient(cfg config.OllamaConfig, opts ...Option) (*Client, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return NewClient(cfg, &http.Client{Transport: tr}, opts...)
}

// Close drops idle connections. It is safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeMu.Do(func() {
		if tr, ok := c.http.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	})
	return nil
}

// Health succeeds when the server answers and has at least one model.
func (c *Client) Health(ctx context.Context) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(models) == 0 {
		c.cb.failure()
		return errors.New("health check failed: no models installed")
	}
	return nil
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if !c.cb.allow() {
		return nil, ErrCircuitOpen
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		c.cb.failure()
		return nil, err
	}
	c.cb.success()

	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, ModelInfo{Name: m.Name, Size: m.Size})
	}
	return out, nil
}

// Generate streams a completion of prompt and returns the fragments joined in
// order. An empty model falls back to the first configured default model.
func (c *Client) Generate(ctx context.Context, model, prompt string) (Result, error) {
	if model == "" {
		if len(c.cfg.DefaultModelNames) == 0 {
			return Result{}, ErrNoModel
		}
		model = c.cfg.DefaultModelNames[0]
	}

	var res Result
	start := time.Now()
	err := c.retry(ctx, func(attempt int) error {
		res = Result{Model: model, Attempts: attempt}
		return c.generateOnce(ctx, model, prompt, &res)
	})
	if err != nil {
		return Result{}, err
	}

	res.Latency = time.Since(start)
	logger.Debug("ollama generate ok", "model", model, "attempts", res.Attempts, "latency_ms", res.Latency.Milliseconds())
	return res, nil
}

func (c *Client) generateOnce(ctx context.Context, model, prompt string, res *Result) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &api.GenerateRequest{Model: model, Prompt: prompt, Format: c.format}
	var sb strings.Builder
	err := c.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		if r.Done {
			res.Final, _ = json.Marshal(r)
		}
		return nil
	})
	res.Text = sb.String()
	return err
}

// retry runs fn until it succeeds, the attempts run out, the breaker opens
// or ctx is done. Attempts are numbered from 1.
func (c *Client) retry(ctx context.Context, fn func(attempt int) error) error {
	if !c.cb.allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries+1; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			c.cb.success()
			return nil
		}
		c.cb.failure()
		logger.Warn("ollama call failed", "attempt", attempt, "err", lastErr)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > c.cfg.Retries {
			break
		}
		if !c.cb.allow() {
			return ErrCircuitOpen
		}

		select {
		case <-time.After(c.cfg.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("generate failed after %d attempts: %w", c.cfg.Retries+1, lastErr)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
