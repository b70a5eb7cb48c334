package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/session"
	"github.com/garnizeh/rojgar/internal/validate"
	"github.com/garnizeh/rojgar/pkg/client"
)

const (
	JobPostedMessage     = "Job posted successfully!"
	JobPostFailedMessage = "Failed to post job. Please try again."
)

// jobInput echoes the post-a-job form back on errors.
type jobInput struct {
	Title       string
	Description string
	Category    string
	OpensAt     string
	ClosesAt    string
}

type homeData struct {
	Query     string
	Jobs      []models.Job
	Form      jobInput
	FormError string
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	v := s.homeView(w, r, jobInput{})
	if r.URL.Query().Get("posted") == "ok" {
		v.Flash = JobPostedMessage
	}
	s.render(w, "home", http.StatusOK, v)
}

// homeView fetches every posting matching ?q=.
func (s *Server) homeView(w http.ResponseWriter, r *http.Request, form jobInput) view {
	st := s.store(w, r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	ctx, cancel := s.ctx(r)
	defer cancel()

	data := homeData{Query: q, Form: form}
	list, err := s.api(session.Token(st)).ListAllJobs(ctx, q)
	v := s.newView(st, &data)
	if err != nil {
		logger.Warn("list jobs", "err", err)
		v.Error = "Failed to load jobs"
		return v
	}
	data.Jobs = list
	return v
}

func (s *Server) postJob(w http.ResponseWriter, r *http.Request) {
	st := s.store(w, r)
	if session.UserType(st) != models.UserTypePoster {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	in := jobInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		OpensAt:     r.FormValue("opensAt"),
		ClosesAt:    r.FormValue("closesAt"),
	}
	fail := func(status int, msg string) {
		v := s.homeView(w, r, in)
		v.Data.(*homeData).FormError = msg
		s.render(w, "home", status, v)
	}

	form := validate.JobForm{
		Title:       in.Title,
		Description: in.Description,
		Category:    validate.SplitList(in.Category),
	}
	form.OpensAt, _ = validate.ParseDate(in.OpensAt)
	form.ClosesAt, _ = validate.ParseDate(in.ClosesAt)
	if err := validate.Job(&form); err != nil {
		fail(http.StatusBadRequest, firstMessage(err))
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()
	_, err := s.api(session.Token(st)).CreateJob(ctx, client.CreateJobRequest{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		CreatedAt:   form.OpensAt,
		ClosedAt:    form.ClosesAt,
		UserID:      session.Subject(st),
	})
	if err != nil {
		logger.Warn("post job", "err", err)
		status := http.StatusBadGateway
		if errors.Is(err, client.ErrUnauthorized) {
			status = http.StatusUnauthorized
		}
		fail(status, JobPostFailedMessage)
		return
	}

	http.Redirect(w, r, "/user/home?posted=ok", http.StatusSeeOther)
}
