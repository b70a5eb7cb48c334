// Package web serves the server-rendered pages: landing, login, signup, the
// jobs feed, the profile and the interview-question chat. Every page talks to
// the API through pkg/client with the token kept in the session cookies.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/session"
	"github.com/garnizeh/rojgar/pkg/client"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// API is the part of *client.Client the pages use.
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Signup(ctx context.Context, req client.SignupRequest) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListAllJobs(ctx context.Context, query string) ([]models.Job, error)
	DeleteJob(ctx context.Context, id int64) error
	CreateJob(ctx context.Context, req client.CreateJobRequest) (*models.Job, error)
	Questions(ctx context.Context, stack string) (*models.QuestionSet, error)
}

var _ API = (*client.Client)(nil)

// ClientFunc returns an API client authorised with token ("" for anonymous).
type ClientFunc func(token string) API

// NewClientFunc builds API clients for baseURL with the given timeout.
func NewClientFunc(baseURL string, timeout time.Duration) ClientFunc {
	return func(token string) API {
		return client.New(baseURL, client.WithToken(token), client.WithTimeout(timeout))
	}
}

const chatCookie = "rojgar_chat"

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the web package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type Server struct {
	api   ClientFunc
	cfg   config.WebConfig
	chats *chatStore
	now   func() time.Time
}

func New(cfg config.WebConfig, api ClientFunc) *Server {
	return &Server{
		api:   api,
		cfg:   cfg,
		chats: newChatStore(cfg.ChatHistory, cfg.ChatSessions, cfg.ChatIdle, time.Now),
		now:   time.Now,
	}
}

// Routes mirrors the page paths of the single-page app.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recover)

	r.HandleFunc("/", s.landing).Methods("GET")
	r.HandleFunc("/login", s.loginPage).Methods("GET")
	r.HandleFunc("/login", s.login).Methods("POST")
	r.HandleFunc("/signup", s.signupPage).Methods("GET")
	r.HandleFunc("/signup", s.signup).Methods("POST")
	r.HandleFunc("/logout", s.logout).Methods("GET", "POST")

	user := r.PathPrefix("/user").Subrouter()
	user.Use(s.requireSession)
	user.HandleFunc("/home", s.home).Methods("GET")
	user.HandleFunc("/home/jobs", s.postJob).Methods("POST")
	user.HandleFunc("/profile", s.profile).Methods("GET")
	user.HandleFunc("/query", s.queryPage).Methods("GET")
	user.HandleFunc("/query", s.ask).Methods("POST")

	return r
}

type view struct {
	LoggedIn bool
	IsPoster bool
	Flash    string
	Error    string
	Data     any
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) *session.CookieStore {
	maxAge := s.cfg.Timeout
	if maxAge < 24*time.Hour {
		maxAge = 24 * time.Hour
	}
	return session.NewCookieStore(w, r, s.cfg.CookieSecure, maxAge)
}

func (s *Server) newView(st session.Store, data any) view {
	loggedIn := !session.Expired(st, s.now())
	return view{
		LoggedIn: loggedIn,
		IsPoster: loggedIn && session.UserType(st) == models.UserTypePoster,
		Data:     data,
	}
}

func (s *Server) render(w http.ResponseWriter, name string, status int, v view) {
	t, ok := pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "base.html", v); err != nil {
		logger.Error("render page", "page", name, "err", err)
	}
}

// ctx bounds one outgoing API call.
func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.cfg.Timeout)
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := s.store(w, r)
		if session.Expired(st, s.now()) {
			if st.Get(session.KeyAuthorization) != "" {
				_ = st.Clear()
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) landing(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)
	target := "/login"
	if !session.Expired(st, s.now()) {
		target = "/user/home"
	}
	s.render(w, "landing", http.StatusOK, s.newView(st, target))
}

type loginForm struct {
	Email string
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	v := s.newView(s.store(w, r), loginForm{})
	if r.URL.Query().Get("signup") == "ok" {
		v.Flash = "Signup successful"
	}
	s.render(w, "login", http.StatusOK, v)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	st := s.store(w, r)

	fail := func(status int, msg string) {
		v := s.newView(st, loginForm{Email: email})
		v.Error = msg
		s.render(w, "login", status, v)
	}

	if email == "" || password == "" {
		fail(http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()
	lr, err := s.api("").Login(ctx, email, password)
	if err != nil {
		logger.Warn("login failed", "err", err)
		if errors.Is(err, client.ErrUnauthorized) {
			fail(http.StatusUnauthorized, "Invalid email or password")
			return
		}
		fail(http.StatusBadGateway, "Login failed. Please try again.")
		return
	}

	if err := session.Save(st, lr.Data, lr.Type); err != nil {
		fail(http.StatusInternalServerError, "Login failed. Please try again.")
		return
	}
	http.Redirect(w, r, "/user/home", http.StatusSeeOther)
}

type signupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	UserType  string
	Skills    []string
	Address   string
}

func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "signup", http.StatusOK, s.newView(s.store(w, r), signupForm{UserType: string(models.UserTypeSeeker)}))
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	f := signupFormFromRequest(r)
	st := s.store(w, r)
	echo := signupForm{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Username:  f.Username,
		Email:     f.Email,
		UserType:  f.UserType,
		Skills:    f.Skills,
		Address:   f.Address,
	}
	fail := func(status int, msg string) {
		v := s.newView(st, echo)
		v.Error = msg
		s.render(w, "signup", status, v)
	}

	if msg := checkSignup(f); msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()
	_, err := s.api("").Signup(ctx, client.SignupRequest{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Username:  f.Username,
		Email:     f.Email,
		Password:  f.Password,
		UserTypes: f.UserType,
		Skills:    f.Skills,
		Address:   f.Address,
	})
	if err != nil {
		logger.Warn("signup failed", "err", err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			fail(http.StatusBadRequest, apiErr.Message)
			return
		}
		fail(http.StatusBadGateway, "Signup failed. Please try again.")
		return
	}

	http.Redirect(w, r, "/login?signup=ok", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)
	if tok := session.Token(st); tok != "" {
		ctx, cancel := s.ctx(r)
		if err := s.api(tok).Logout(ctx); err != nil {
			logger.Debug("api logout", "err", err)
		}
		cancel()
	}
	_ = st.Clear()

	if c, err := r.Cookie(chatCookie); err == nil {
		s.chats.clear(c.Value)
		http.SetCookie(w, &http.Cookie{Name: chatCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)
	api := s.api(session.Token(st))

	ctx, cancel := s.ctx(r)
	defer cancel()

	var (
		u   *models.User
		err error
	)
	if id := session.Subject(st); id != "" {
		u, err = api.GetUser(ctx, id)
	} else {
		u, err = api.Me(ctx)
	}
	if err != nil {
		logger.Warn("load profile", "err", err)
		v := s.newView(st, nil)
		v.Error = "Failed to load user profile"
		s.render(w, "profile", http.StatusBadGateway, v)
		return
	}

	s.render(w, "profile", http.StatusOK, s.newView(st, u))
}

// chatID returns the browser's chat id, issuing a cookie on first use.
func (s *Server) chatID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(chatCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     chatCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) queryPage(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)
	id := s.chatID(w, r)
	s.render(w, "query", http.StatusOK, s.newView(st, s.chats.history(id)))
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	raw := r.FormValue("stack")
	if strings.TrimSpace(raw) == "" {
		http.Redirect(w, r, "/user/query", http.StatusSeeOther)
		return
	}

	st := s.store(w, r)
	id := s.chatID(w, r)

	reply := FailedQuestionsMessage
	if stack, err := normaliseStack(raw); err == nil {
		ctx, cancel := s.ctx(r)
		qs, err := s.api(session.Token(st)).Questions(ctx, stack)
		cancel()
		if err != nil {
			logger.Warn("fetch questions", "stack", stack, "err", err)
		} else if text := FormatQuestions(qs); text != "" {
			reply = text
		}
	}

	s.chats.append(id, Message{Role: RoleUser, Content: raw}, Message{Role: RoleAI, Content: reply})
	http.Redirect(w, r, "/user/query", http.StatusSeeOther)
}
