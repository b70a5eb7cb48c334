package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/validate"
	"github.com/garnizeh/rojgar/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	UserTypes string   `json:"userTypes"`
	UserType  string   `json:"userType"`
	Skills    []string `json:"skills"`
	Address   string   `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse keeps the field names the view layer reads: data is the token.
type loginResponse struct {
	Data string          `json:"data"`
	Type models.UserType `json:"type"`
	ID   string          `json:"id"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	userType := req.UserTypes
	if userType == "" {
		userType = req.UserType
	}
	form := validate.SignupForm{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		UserType:  userType,
		Skills:    req.Skills,
		Address:   req.Address,
	}
	if err := validate.Signup(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Username:     form.Username,
		Email:        form.Email,
		Address:      form.Address,
		Skills:       form.Skills,
		UserType:     models.UserType(form.UserType),
		PasswordHash: string(hash),
	}

	if err := h.userRepo.CreateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken), errors.Is(err, repository.ErrUsernameTaken):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error("create user", "err", err)
			http.Error(w, "Error creating user", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user signed up", "user_id", user.ID, "user_type", user.UserType)
	writeJSON(w, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := validate.Login(req.Email, req.Password); err != nil {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user == nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	tokenStr, err := IssueToken(h.jwtSecret, user, h.tokenDuration)
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, loginResponse{Data: tokenStr, Type: user.UserType, ID: user.ID}, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"message":"signed out"}`)
}
