package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/garnizeh/rojgar/internal/ai"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/validate"
	"github.com/gorilla/mux"
)

// QuestionService is satisfied by *ai.Service.
type QuestionService interface {
	Questions(ctx context.Context, stack string) (*models.QuestionSet, error)
}

type QuestionsHandler struct {
	svc QuestionService
}

func NewQuestionsHandler(svc QuestionService) *QuestionsHandler {
	return &QuestionsHandler{svc: svc}
}

// GetQuestions returns the question set for a stack (expects URL /jobs/questions/{stack}).
func (h *QuestionsHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	stack, err := validate.Stack(mux.Vars(r)["stack"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	qs, err := h.svc.Questions(r.Context(), stack)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrNoQuestions):
			http.Error(w, "No questions generated", http.StatusBadGateway)
		case errors.Is(err, context.DeadlineExceeded):
			http.Error(w, "Question generation timed out", http.StatusGatewayTimeout)
		default:
			logger.Error("generate questions", "stack", stack, "err", err)
			http.Error(w, "Error generating questions", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, qs, http.StatusOK)
}
