package api

import (
	"net/http"

	"github.com/garnizeh/rojgar/pkg/repository"
	"github.com/gorilla/mux"
)

type UsersHandler struct {
	userRepo repository.UserRepo
}

func NewUsersHandler(ur repository.UserRepo) *UsersHandler {
	return &UsersHandler{userRepo: ur}
}

// Me returns the profile of the authenticated caller.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.writeUser(w, r, id)
}

// GetUser returns a profile by id (expects URL /users/{id}).
func (h *UsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	h.writeUser(w, r, id)
}

func (h *UsersHandler) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := h.userRepo.GetUserByID(r.Context(), id)
	if err != nil {
		logger.Error("get user", "user_id", id, "err", err)
		http.Error(w, "Error loading user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, u, http.StatusOK)
}
