// Package client is a typed HTTP client for the rojgar API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
)

// ErrUnauthorized is matched by errors.Is for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithToken sets the bearer token sent on every request. A value that
// already starts with "Bearer " is used as is.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimPrefix(token, "Bearer ") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SignupRequest mirrors the signup form. UserTypes keeps the field name the
// API reads.
type SignupRequest struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	UserTypes string   `json:"userTypes"`
	Skills    []string `json:"skills"`
	Address   string   `json:"address"`
}

// LoginResponse carries the token in Data.
type LoginResponse struct {
	Data string          `json:"data"`
	Type models.UserType `json:"type"`
	ID   string          `json:"id"`
}

type CreateJobRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	ClosedAt    time.Time `json:"closedAt"`
	Category    []string  `json:"category"`
	Embeddings  []float64 `json:"embeddings"`
	UserID      string    `json:"userId,omitempty"`
}

// MaxPageSize is the largest page GET /jobs serves.
const MaxPageSize = 500

type ListOptions struct {
	Query  string
	Limit  int
	Offset int
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/users/signup", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var lr LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login", body, &lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/users/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListJobs(ctx context.Context, opts ListOptions) ([]models.Job, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	path := "/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []models.Job
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllJobs pages through every posting matching query, newest first.
func (c *Client) ListAllJobs(ctx context.Context, query string) ([]models.Job, error) {
	out := []models.Job{}
	for {
		page, err := c.ListJobs(ctx, ListOptions{Query: query, Limit: MaxPageSize, Offset: len(out)})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < MaxPageSize {
			return out, nil
		}
	}
}

func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	var j models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+strconv.FormatInt(id, 10), nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest) (*models.Job, error) {
	var j models.Job
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *Client) Questions(ctx context.Context, stack string) (*models.QuestionSet, error) {
	var qs models.QuestionSet
	if err := c.do(ctx, http.MethodGet, "/jobs/questions/"+url.PathEscape(stack), nil, &qs); err != nil {
		return nil, err
	}
	return &qs, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &APIError{Status: res.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
