package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/client"
)

func TestClient_LoginAndToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "a@b.co" || body["password"] != "secret" {
				http.Error(w, "Credentials not found", http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"data":"tok","type":"POSTER","id":"u1"}`))
		case "/users/me":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"id":"u1","username":"alice","skills":["go"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	lr, err := client.New(srv.URL).Login(ctx, "a@b.co", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if lr.Data != "tok" || lr.Type != models.UserTypePoster || lr.ID != "u1" {
		t.Fatalf("unexpected login response %+v", lr)
	}

	_, err = client.New(srv.URL).Login(ctx, "a@b.co", "wrong")
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Credentials not found" {
		t.Fatalf("expected APIError with message, got %v", err)
	}

	// both raw tokens and stored "Bearer ..." values work
	for _, tok := range []string{"tok", "Bearer tok"} {
		u, err := client.New(srv.URL+"/", client.WithToken(tok)).Me(ctx)
		if err != nil {
			t.Fatalf("me: %v", err)
		}
		if u.Username != "alice" {
			t.Fatalf("unexpected user %+v", u)
		}
		if gotAuth != "Bearer tok" {
			t.Fatalf("unexpected Authorization header %q", gotAuth)
		}
	}
}

func TestClient_JobsAndQuestions(t *testing.T) {
	var posted map[string]any
	var gotQuery, gotStackPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/jobs":
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`[{"id":2,"title":"B"},{"id":1,"title":"A"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			_ = json.NewDecoder(r.Body).Decode(&posted)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":3,"title":"C"}`))
		case r.URL.Path == "/jobs/3":
			_, _ = w.Write([]byte(`{"id":3,"title":"C"}`))
		case strings.HasPrefix(r.URL.Path, "/jobs/questions/"):
			gotStackPath = r.URL.EscapedPath()
			_, _ = w.Write([]byte(`{"stack":"node js","technical":["q1"],"behavioral":["b1"],"technicalAnswers":["a1"],"behavioralAnswers":[""]}`))
		default:
			http.Error(w, "nope", http.StatusTeapot)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := client.New(srv.URL, client.WithToken("tok"), client.WithTimeout(time.Second))

	jobs, err := c.ListJobs(ctx, client.ListOptions{Query: "go dev", Limit: 10})
	if err != nil || len(jobs) != 2 {
		t.Fatalf("list: %v %v", jobs, err)
	}
	if gotQuery != "limit=10&q=go+dev" {
		t.Fatalf("unexpected query %q", gotQuery)
	}

	open := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	j, err := c.CreateJob(ctx, client.CreateJobRequest{
		Title: "C", Description: "d", Category: []string{"go"},
		CreatedAt: open, ClosedAt: open.Add(time.Hour),
	})
	if err != nil || j.ID != 3 {
		t.Fatalf("create: %v %v", j, err)
	}
	if posted["createdAt"] != "2025-05-01T09:00:00Z" || posted["embeddings"] != nil {
		t.Fatalf("unexpected posted body %v", posted)
	}

	if j, err := c.GetJob(ctx, 3); err != nil || j.Title != "C" {
		t.Fatalf("get: %v %v", j, err)
	}

	qs, err := c.Questions(ctx, "node js")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if gotStackPath != "/jobs/questions/node%20js" {
		t.Fatalf("unexpected path %q", gotStackPath)
	}
	if len(qs.Technical) != 1 || qs.BehavioralAnswers[0] != "" {
		t.Fatalf("unexpected set %+v", qs)
	}

	if _, err := c.GetUser(ctx, "x"); err == nil {
		t.Fatalf("expected error for 418")
	} else {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTeapot || errors.Is(err, client.ErrUnauthorized) {
			t.Fatalf("unexpected error %v", err)
		}
	}
}

func TestClient_ListAllJobsPages(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		wantCalls int
	}{
		{name: "Empty", total: 0, wantCalls: 1},
		{name: "ShortPage", total: 3, wantCalls: 1},
		{name: "ExactlyOnePage", total: client.MaxPageSize, wantCalls: 2},
		{name: "SeveralPages", total: 2*client.MaxPageSize + 7, wantCalls: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			var gotQ string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				gotQ = r.URL.Query().Get("q")
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
				page := []models.Job{}
				for i := offset; i < tt.total && i < offset+limit; i++ {
					page = append(page, models.Job{ID: int64(tt.total - i)})
				}
				_ = json.NewEncoder(w).Encode(page)
			}))
			defer srv.Close()

			c := client.New(srv.URL, client.WithTimeout(time.Second))
			jobs, err := c.ListAllJobs(context.Background(), "rust")
			if err != nil {
				t.Fatalf("ListAllJobs: %v", err)
			}
			if len(jobs) != tt.total {
				t.Fatalf("want %d jobs got %d", tt.total, len(jobs))
			}
			if n := atomic.LoadInt32(&calls); int(n) != tt.wantCalls {
				t.Fatalf("want %d requests got %d", tt.wantCalls, n)
			}
			if gotQ != "rust" {
				t.Fatalf("query not forwarded: %q", gotQ)
			}
			for i := 1; i < len(jobs); i++ {
				if jobs[i].ID >= jobs[i-1].ID {
					t.Fatalf("pages out of order at %d", i)
				}
			}
		})
	}
}

func TestClient_DeleteJob(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		if r.URL.Path == "/jobs/9" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))
	if err := c.DeleteJob(context.Background(), 4); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/jobs/4" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected request %s %s %q", gotMethod, gotPath, gotAuth)
	}
	var apiErr *client.APIError
	if err := c.DeleteJob(context.Background(), 9); !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
}

func TestClient_SignupAndHealth(t *testing.T) {
	var got client.SignupRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/users/signup":
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"new","userType":"SEEKER"}`))
		case "/users/logout":
			_, _ = w.Write([]byte(`{"message":"signed out"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := client.New(srv.URL)
	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	u, err := c.Signup(ctx, client.SignupRequest{FirstName: "Alice", UserTypes: "SEEKER", Skills: []string{"go"}})
	if err != nil || u.ID != "new" {
		t.Fatalf("signup: %v %v", u, err)
	}
	if got.UserTypes != "SEEKER" || got.FirstName != "Alice" {
		t.Fatalf("unexpected signup body %+v", got)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.New(srv.URL).Health(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
