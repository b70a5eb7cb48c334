package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/rojgar/api"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository/mock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func validSignup() map[string]any {
	return map[string]any{
		"firstName": "Alice",
		"lastName":  "Smith",
		"username":  "alice",
		"email":     "Alice@Example.com",
		"password":  "s3cret",
		"userTypes": "POSTER",
		"skills":    []string{"go", " ", "sql"},
		"address":   "Kathmandu",
	}
}

func with(m map[string]any, k string, v any) map[string]any {
	m[k] = v
	return m
}

func storeUser(m *mock.Mocks, id, email, pw string, ut models.UserType) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	m.UserRepo.Users[id] = &models.User{ID: id, Email: email, Username: id, UserType: ut, PasswordHash: string(hash)}
}

func TestAuthHandlers(t *testing.T) {
	secret := "testsecret"
	tokenDur := 1 * time.Hour

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		prepare    func(m *mock.Mocks)
		wantStatus int
		checkBody  func(t *testing.T, body []byte)
	}{
		{
			name:       "Signup_InvalidRequest",
			method:     http.MethodPost,
			path:       "/signup",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_ShortFirstName",
			method:     http.MethodPost,
			path:       "/signup",
			body:       with(validSignup(), "firstName", "Al"),
			wantStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte("First name must be at least 3 characters")) {
					t.Fatalf("unexpected body: %s", b)
				}
			},
		},
		{
			name:       "Signup_BadEmail",
			method:     http.MethodPost,
			path:       "/signup",
			body:       with(validSignup(), "email", "not-an-email"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_ShortPassword",
			method:     http.MethodPost,
			path:       "/signup",
			body:       with(validSignup(), "password", "12345"),
			wantStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte("Password must be at least 6 characters")) {
					t.Fatalf("unexpected body: %s", b)
				}
			},
		},
		{
			name:       "Signup_BadUserType",
			method:     http.MethodPost,
			path:       "/signup",
			body:       with(validSignup(), "userTypes", "ADMIN"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_Success",
			method:     http.MethodPost,
			path:       "/signup",
			body:       validSignup(),
			wantStatus: http.StatusCreated,
			checkBody: func(t *testing.T, b []byte) {
				var u models.User
				if err := json.Unmarshal(b, &u); err != nil {
					t.Fatalf("unmarshal user: %v", err)
				}
				if u.ID == "" || u.Email != "alice@example.com" || u.UserType != models.UserTypePoster {
					t.Fatalf("unexpected user: %+v", u)
				}
				if len(u.Skills) != 2 {
					t.Fatalf("expected blank skill dropped, got %v", u.Skills)
				}
				if bytes.Contains(b, []byte("password")) {
					t.Fatalf("password leaked in body: %s", b)
				}
			},
		},
		{
			name:       "Signup_DefaultsToSeeker",
			method:     http.MethodPost,
			path:       "/signup",
			body:       with(validSignup(), "userTypes", ""),
			wantStatus: http.StatusCreated,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte(`"userType":"SEEKER"`)) {
					t.Fatalf("expected SEEKER, got %s", b)
				}
			},
		},
		{
			name:   "Signup_DuplicateEmail",
			method: http.MethodPost,
			path:   "/signup",
			body:   validSignup(),
			prepare: func(m *mock.Mocks) {
				storeUser(m, "other", "alice@example.com", "whatever", models.UserTypeSeeker)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:   "Signup_StoreFailure",
			method: http.MethodPost,
			path:   "/signup",
			body:   validSignup(),
			prepare: func(m *mock.Mocks) {
				m.UserRepo.CreateErr = fmt.Errorf("disk full")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "Login_InvalidRequest",
			method:     http.MethodPost,
			path:       "/login",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Login_MissingFields_Password",
			method:     http.MethodPost,
			path:       "/login",
			body:       map[string]string{"email": "missing@example.com"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Login_MissingUser",
			method:     http.MethodPost,
			path:       "/login",
			body:       map[string]string{"email": "missing@example.com", "password": "nope12"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "Login_WrongPassword",
			method: http.MethodPost,
			path:   "/login",
			body:   map[string]string{"email": "c@example.com", "password": "wrongpw"},
			prepare: func(m *mock.Mocks) {
				storeUser(m, "u3", "c@example.com", "rightpw", models.UserTypeSeeker)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "Login_Success",
			method: http.MethodPost,
			path:   "/login",
			body:   map[string]string{"email": "Bob@example.com", "password": "hunter2"},
			prepare: func(m *mock.Mocks) {
				storeUser(m, "u2", "bob@example.com", "hunter2", models.UserTypePoster)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				var lr struct {
					Data string `json:"data"`
					Type string `json:"type"`
					ID   string `json:"id"`
				}
				if err := json.Unmarshal(b, &lr); err != nil {
					t.Fatalf("unmarshal login: %v", err)
				}
				if lr.Type != "POSTER" || lr.ID != "u2" {
					t.Fatalf("unexpected login response: %+v", lr)
				}
				tok, err := jwt.Parse(lr.Data, func(token *jwt.Token) (any, error) { return []byte(secret), nil })
				if err != nil {
					t.Fatalf("invalid token: %v", err)
				}
				claims := tok.Claims.(jwt.MapClaims)
				if claims["sub"] != "u2" || claims["user_type"] != "POSTER" || claims["email"] != "bob@example.com" {
					t.Fatalf("unexpected claims: %v", claims)
				}
				if expF, ok := claims["exp"].(float64); !ok || int64(expF) < time.Now().Unix() {
					t.Fatalf("invalid exp claim")
				}
			},
		},
		{
			name:       "Logout_OK",
			method:     http.MethodPost,
			path:       "/logout",
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte("signed out")) {
					t.Fatalf("unexpected body: %s", string(b))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := mock.NewMocks()
			if tt.prepare != nil {
				tt.prepare(mocks)
			}
			handler := api.NewAuthHandler(mocks.UserRepo, secret, tokenDur)

			var bodyReader io.Reader
			switch b := tt.body.(type) {
			case nil:
			case string:
				bodyReader = strings.NewReader(b)
			default:
				raw, _ := json.Marshal(b)
				bodyReader = bytes.NewReader(raw)
			}
			req := httptest.NewRequest(tt.method, tt.path, bodyReader)
			w := httptest.NewRecorder()

			switch tt.path {
			case "/signup":
				handler.Signup(w, req)
			case "/login":
				handler.Login(w, req)
			case "/logout":
				handler.Logout(w, req)
			default:
				t.Fatalf("unknown path %s", tt.path)
			}

			res := w.Result()
			defer res.Body.Close()
			data, _ := io.ReadAll(res.Body)
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("%s: expected status %d got %d body=%s", tt.name, tt.wantStatus, res.StatusCode, string(data))
			}
			if tt.checkBody != nil {
				tt.checkBody(t, data)
			}
		})
	}
}

func TestSignup_HashesPassword(t *testing.T) {
	mocks := mock.NewMocks()
	handler := api.NewAuthHandler(mocks.UserRepo, "s", time.Hour)

	raw, _ := json.Marshal(validSignup())
	w := httptest.NewRecorder()
	handler.Signup(w, httptest.NewRequest(http.MethodPost, "/users/signup", bytes.NewReader(raw)))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}

	var u models.User
	_ = json.Unmarshal(w.Body.Bytes(), &u)
	stored := mocks.UserRepo.Users[u.ID]
	if stored == nil {
		t.Fatalf("user %q not stored", u.ID)
	}
	if stored.PasswordHash == "s3cret" {
		t.Fatalf("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not match password: %v", err)
	}
}
