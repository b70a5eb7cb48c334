package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/garnizeh/rojgar/internal/jobs"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/validate"
	"github.com/garnizeh/rojgar/pkg/repository"
	"github.com/gorilla/mux"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 500

	// TotalCountHeader carries the number of postings matching q on GET /jobs,
	// ignoring limit and offset.
	TotalCountHeader = "X-Total-Count"
)

// Enqueuer schedules background work; *jobs.WorkerPool satisfies it and wakes
// an idle worker on every call.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

type JobsHandler struct {
	jobRepo repository.JobRepo
	queue   Enqueuer
}

// NewJobsHandler wires the postings handler. queue may be nil, in which case
// no question pregeneration is scheduled.
func NewJobsHandler(jr repository.JobRepo, queue Enqueuer) *JobsHandler {
	return &JobsHandler{jobRepo: jr, queue: queue}
}

type createJobRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   string    `json:"createdAt"`
	ClosedAt    string    `json:"closedAt"`
	Category    []string  `json:"category"`
	Embeddings  []float64 `json:"embeddings"`
	UserID      string    `json:"userId"`
}

// ListJobs returns postings newest first. Query params: q, limit, offset.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultJobsLimit
	if l := q.Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if v > maxJobsLimit {
			v = maxJobsLimit
		}
		limit = v
	}

	offset := 0
	if o := q.Get("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		offset = v
	}

	term := q.Get("q")
	list, err := h.jobRepo.ListJobs(r.Context(), term, limit, offset)
	if err != nil {
		logger.Error("list jobs", "err", err)
		http.Error(w, "Error listing jobs", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Job{}
	}

	if total, err := h.jobRepo.CountJobs(r.Context(), term); err == nil {
		w.Header().Set(TotalCountHeader, strconv.FormatInt(total, 10))
	} else {
		logger.Warn("count jobs", "err", err)
	}

	writeJSON(w, list, http.StatusOK)
}

// GetJob returns one posting (expects URL /jobs/{id}).
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	j, err := h.jobRepo.GetJob(r.Context(), id)
	if err != nil {
		logger.Error("get job", "job_id", id, "err", err)
		http.Error(w, "Error loading job", http.StatusInternalServerError)
		return
	}
	if j == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, j, http.StatusOK)
}

// CreateJob stores a posting owned by the caller and schedules question
// pregeneration for each of its categories.
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	form := validate.JobForm{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	// unparseable dates stay zero and are reported by validate.Job
	if t, err := validate.ParseDate(req.CreatedAt); err == nil {
		form.OpensAt = t
	}
	if t, err := validate.ParseDate(req.ClosedAt); err == nil {
		form.ClosesAt = t
	}
	if err := validate.Job(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID != "" && req.UserID != userID {
		logger.Warn("ignoring userId in job body", "token_user", userID, "body_user", req.UserID)
	}

	job := &models.Job{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		CreatedAt:   form.OpensAt,
		ClosedAt:    form.ClosesAt,
		UserID:      userID,
	}
	if _, err := h.jobRepo.CreateJob(r.Context(), job); err != nil {
		logger.Error("create job", "err", err)
		http.Error(w, "Error creating job", http.StatusInternalServerError)
		return
	}

	h.schedulePregeneration(r, job)

	logger.Info("job posted", "job_id", job.ID, "user_id", userID)
	writeJSON(w, job, http.StatusCreated)
}

// DeleteJob removes a posting. Only the poster who owns it may delete it.
func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	j, err := h.jobRepo.GetJob(r.Context(), id)
	if err != nil {
		logger.Error("get job", "job_id", id, "err", err)
		http.Error(w, "Error loading job", http.StatusInternalServerError)
		return
	}
	if j == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if j.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	removed, err := h.jobRepo.DeleteJob(r.Context(), id)
	if err != nil {
		logger.Error("delete job", "job_id", id, "err", err)
		http.Error(w, "Error deleting job", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	logger.Info("job deleted", "job_id", id, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *JobsHandler) schedulePregeneration(r *http.Request, job *models.Job) {
	if h.queue == nil {
		return
	}
	for _, c := range job.Category {
		stack, err := validate.Stack(c)
		if err != nil {
			continue
		}
		payload := jobs.PregeneratePayload{Stack: stack}
		if _, err := h.queue.Enqueue(r.Context(), jobs.TypePregenerateQuestions, payload, 0, 0); err != nil {
			logger.Warn("enqueue question pregeneration", "stack", stack, "err", err)
		}
	}
}
