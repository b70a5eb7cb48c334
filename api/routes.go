package api

import (
	"net/http"

	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository"
	"github.com/gorilla/mux"
)

// Deps groups what the routes need. Engine, Queue, Limiter and Probes may be nil.
type Deps struct {
	DB        Pinger
	Probes    map[string]Pinger
	Users     repository.UserRepo
	Jobs      repository.JobRepo
	Schemas   repository.SchemaRepo
	Templates repository.TemplateRepo
	Queue     Enqueuer
	Questions QuestionService
	Engine    Reloader
	Limiter   RateLimiter
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{DB: deps.DB, Probes: deps.Probes}
	authHandler := NewAuthHandler(deps.Users, cfg.JWTSecret, cfg.TokenDuration)
	usersHandler := NewUsersHandler(deps.Users)
	jobsHandler := NewJobsHandler(deps.Jobs, deps.Queue)
	questionsHandler := NewQuestionsHandler(deps.Questions)
	adminHandler := NewAdminHandler(deps.Engine, deps.Schemas, deps.Templates)

	auth := JWTAuthMiddlewareWithSecret(cfg.JWTSecret)

	var limiter RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = deps.Limiter
	}
	limited := RateLimitMiddleware(limiter, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/users/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/users/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	r.Handle("/jobs/questions/{stack}", limited(http.HandlerFunc(questionsHandler.GetQuestions))).Methods("GET")
	r.HandleFunc("/jobs/{id:[0-9]+}", jobsHandler.GetJob).Methods("GET")

	// Protected endpoints
	r.Handle("/users/logout", auth(http.HandlerFunc(authHandler.Logout))).Methods("POST")
	r.Handle("/users/me", auth(http.HandlerFunc(usersHandler.Me))).Methods("GET")
	r.Handle("/users/{id}", auth(http.HandlerFunc(usersHandler.GetUser))).Methods("GET")
	r.Handle("/jobs", auth(RequireUserType(models.UserTypePoster)(http.HandlerFunc(jobsHandler.CreateJob)))).Methods("POST")
	r.Handle("/jobs/{id:[0-9]+}", auth(RequireUserType(models.UserTypePoster)(http.HandlerFunc(jobsHandler.DeleteJob)))).Methods("DELETE")

	// AI admin endpoints
	admin := r.PathPrefix("/admin/ai").Subrouter()
	admin.Use(auth)
	admin.Use(RequireAdmin(cfg.IsAdmin))
	admin.HandleFunc("/reload", adminHandler.Reload).Methods("POST")
	admin.HandleFunc("/schemas", adminHandler.ListSchemas).Methods("GET")
	admin.HandleFunc("/schemas/{version}", adminHandler.GetSchema).Methods("GET")
	admin.HandleFunc("/schemas/{version}", adminHandler.PutSchema).Methods("PUT")
	admin.HandleFunc("/schemas/{version}", adminHandler.DeleteSchema).Methods("DELETE")
	admin.HandleFunc("/templates", adminHandler.ListTemplates).Methods("GET")
	admin.HandleFunc("/templates/{name}/{version}", adminHandler.GetTemplate).Methods("GET")
	admin.HandleFunc("/templates/{name}/{version}", adminHandler.PutTemplate).Methods("PUT")
	admin.HandleFunc("/templates/{name}/{version}", adminHandler.DeleteTemplate).Methods("DELETE")

	return r
}
