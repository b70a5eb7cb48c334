package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/rojgar/api"
	"github.com/garnizeh/rojgar/internal/cache"
	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/models"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "Listing", status: http.StatusOK, wantLevel: "INFO"},
		{name: "MissingJob", status: http.StatusNotFound, wantLevel: "WARN"},
		{name: "GeneratorDown", status: http.StatusBadGateway, wantLevel: "ERROR"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			api.SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
			t.Cleanup(func() { api.SetLogger(slog.New(slog.DiscardHandler)) })

			h := api.RequestIDMiddleware(api.LoggingMiddleware(statusHandler(c.status)))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/7", nil))

			var line struct {
				Level     string `json:"level"`
				Path      string `json:"path"`
				Status    int    `json:"status"`
				Bytes     int    `json:"bytes"`
				RequestID string `json:"request_id"`
			}
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
			}
			if line.Level != c.wantLevel || line.Status != c.status || line.Path != "/jobs/7" {
				t.Fatalf("unexpected log line %+v", line)
			}
			if line.Bytes != len("body") {
				t.Fatalf("bytes = %d", line.Bytes)
			}
			if line.RequestID == "" || line.RequestID != w.Header().Get(api.RequestIDHeader) {
				t.Fatalf("request id %q not logged", w.Header().Get(api.RequestIDHeader))
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	cases := []struct {
		method     string
		wantStatus int
		wantBody   bool
	}{
		{method: http.MethodOptions, wantStatus: http.StatusNoContent},
		{method: http.MethodGet, wantStatus: http.StatusOK, wantBody: true},
		{method: http.MethodPost, wantStatus: http.StatusOK, wantBody: true},
	}
	for _, c := range cases {
		t.Run(c.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.CORSMiddleware(statusHandler(http.StatusOK)).ServeHTTP(w, httptest.NewRequest(c.method, "/jobs", nil))

			if w.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, c.wantStatus)
			}
			if (w.Body.Len() > 0) != c.wantBody {
				t.Fatalf("body %q, want body=%v", w.Body.String(), c.wantBody)
			}
			if w.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatalf("missing allow-origin")
			}
			if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
				t.Fatalf("Authorization not allowed: %q", w.Header().Get("Access-Control-Allow-Headers"))
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	api.SetLogger(slog.New(slog.DiscardHandler))

	cases := []struct {
		name       string
		next       http.Handler
		wantStatus int
	}{
		{
			name:       "Panic",
			next:       http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("nil posting") }),
			wantStatus: http.StatusInternalServerError,
		},
		{name: "PassThrough", next: statusHandler(http.StatusCreated), wantStatus: http.StatusCreated},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.RecoveryMiddleware(c.next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs", nil))
			if w.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, c.wantStatus)
			}
		})
	}
}

func signClaims(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTAuthMiddlewareWithSecret(t *testing.T) {
	const secret = "s3cr3t"
	poster := &models.User{ID: "user-1", Email: "p@example.com", UserType: models.UserTypePoster}
	valid, err := api.IssueToken(secret, poster, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	otherSecret, _ := api.IssueToken("other", poster, time.Hour)
	expired := signClaims(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	noExp := signClaims(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	hs512 := signClaims(t, secret, jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "MissingHeader", header: "", wantStatus: http.StatusUnauthorized},
		{name: "EmptyBearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "Garbage", header: "Bearer bad.token.here", wantStatus: http.StatusUnauthorized},
		{name: "Expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "NoExpiry", header: "Bearer " + noExp, wantStatus: http.StatusUnauthorized},
		{name: "WrongSecret", header: "Bearer " + otherSecret, wantStatus: http.StatusUnauthorized},
		{name: "WrongAlgorithm", header: "Bearer " + hs512, wantStatus: http.StatusUnauthorized},
		{name: "Valid", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "LowercaseScheme", header: "bearer " + valid, wantStatus: http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var gotID string
			var gotType models.UserType
			var gotEmail string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = api.UserIDFromContext(r.Context())
				gotType = api.UserTypeFromContext(r.Context())
				gotEmail, _ = r.Context().Value(api.CtxEmail).(string)
			})

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			w := httptest.NewRecorder()
			api.JWTAuthMiddlewareWithSecret(secret)(next).ServeHTTP(w, req)

			if w.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, c.wantStatus)
			}
			if c.wantStatus == http.StatusOK && (gotID != "user-1" || gotType != models.UserTypePoster || gotEmail != "p@example.com") {
				t.Fatalf("context = %q/%q/%q", gotID, gotType, gotEmail)
			}
		})
	}
}

func TestRequireUserType(t *testing.T) {
	handler := api.RequireUserType(models.UserTypePoster)(statusHandler(http.StatusOK))

	cases := []struct {
		name       string
		userType   models.UserType
		wantStatus int
	}{
		{name: "Poster", userType: models.UserTypePoster, wantStatus: http.StatusOK},
		{name: "Seeker", userType: models.UserTypeSeeker, wantStatus: http.StatusForbidden},
		{name: "Anonymous", userType: "", wantStatus: http.StatusForbidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
			if c.userType != "" {
				req = req.WithContext(context.WithValue(req.Context(), api.CtxUserType, c.userType))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != c.wantStatus {
				t.Fatalf("want %d got %d", c.wantStatus, w.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	cfg := &config.Config{AdminEmails: []string{" Ops@Example.com "}}

	cases := []struct {
		name       string
		isAdmin    func(string) bool
		email      string
		wantStatus int
	}{
		{name: "ConfiguredEmail", isAdmin: cfg.IsAdmin, email: "ops@example.com", wantStatus: http.StatusOK},
		{name: "OtherPoster", isAdmin: cfg.IsAdmin, email: "poster@example.com", wantStatus: http.StatusForbidden},
		{name: "NoEmail", isAdmin: cfg.IsAdmin, wantStatus: http.StatusForbidden},
		{name: "NoAdminsConfigured", isAdmin: (&config.Config{}).IsAdmin, email: "ops@example.com", wantStatus: http.StatusForbidden},
		{name: "NilCheck", email: "ops@example.com", wantStatus: http.StatusForbidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			handler := api.RequireAdmin(c.isAdmin)(statusHandler(http.StatusOK))
			req := httptest.NewRequest(http.MethodGet, "/admin/ai/schemas", nil)
			if c.email != "" {
				req = req.WithContext(context.WithValue(req.Context(), api.CtxEmail, c.email))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != c.wantStatus {
				t.Fatalf("want %d got %d", c.wantStatus, w.Code)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "Generated", incoming: ""},
		{name: "Kept", incoming: "abc-123", keep: true},
		{name: "TooLong", incoming: strings.Repeat("x", 200)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = r.Context().Value(api.CtxRequestID).(string)
			})
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if c.incoming != "" {
				req.Header.Set(api.RequestIDHeader, c.incoming)
			}
			w := httptest.NewRecorder()
			api.RequestIDMiddleware(next).ServeHTTP(w, req)

			got := w.Header().Get(api.RequestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if (got == c.incoming) != c.keep {
				t.Fatalf("incoming %q kept=%v, want %v", c.incoming, got == c.incoming, c.keep)
			}
		})
	}
}

type fakeLimiter struct {
	allow bool
	calls int
	ip    string
}

func (f *fakeLimiter) CheckIPRateLimit(ctx context.Context, ip string, rps, burst int) (*cache.RateLimitResult, error) {
	f.calls++
	f.ip = ip
	return &cache.RateLimitResult{Allowed: f.allow, RetryAfter: 3 * time.Second}, nil
}

func TestRateLimitMiddleware(t *testing.T) {
	cases := []struct {
		name       string
		limiter    *fakeLimiter
		rps        int
		wantStatus int
		wantRetry  string
		wantCalls  int
	}{
		{name: "Denied", limiter: &fakeLimiter{}, rps: 1, wantStatus: http.StatusTooManyRequests, wantRetry: "3", wantCalls: 1},
		{name: "Allowed", limiter: &fakeLimiter{allow: true}, rps: 1, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "ZeroRateDisables", limiter: &fakeLimiter{}, rps: 0, wantStatus: http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/jobs/questions/go", nil)
			req.RemoteAddr = "10.0.0.9:5555"
			w := httptest.NewRecorder()
			api.RateLimitMiddleware(c.limiter, c.rps, 5)(statusHandler(http.StatusOK)).ServeHTTP(w, req)

			if w.Code != c.wantStatus || w.Header().Get("Retry-After") != c.wantRetry {
				t.Fatalf("status %d retry %q", w.Code, w.Header().Get("Retry-After"))
			}
			if c.limiter.calls != c.wantCalls {
				t.Fatalf("calls = %d, want %d", c.limiter.calls, c.wantCalls)
			}
			if c.wantCalls > 0 && c.limiter.ip != "10.0.0.9" {
				t.Fatalf("limited on %q", c.limiter.ip)
			}
		})
	}

	t.Run("NilLimiter", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.RateLimitMiddleware(nil, 1, 5)(statusHandler(http.StatusOK)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 with nil limiter, got %d", w.Code)
		}
	})
}
