// Package session keeps the two values the views treat as "logged in":
// the Authorization string ("Bearer <token>") and the user type.
package session

import (
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	KeyAuthorization = "Authorization"
	KeyUserType      = "UserType"
)

// Store reads and writes session values. Get returns "" for a missing key.
type Store interface {
	Get(key string) string
	Set(key, value string) error
	Clear() error
}

// Save stores a freshly issued token and the caller's user type.
func Save(s Store, token string, t models.UserType) error {
	if err := s.Set(KeyAuthorization, "Bearer "+strings.TrimPrefix(token, "Bearer ")); err != nil {
		return err
	}
	return s.Set(KeyUserType, string(t))
}

// Token returns the raw JWT without the "Bearer " prefix.
func Token(s Store) string {
	return strings.TrimSpace(strings.TrimPrefix(s.Get(KeyAuthorization), "Bearer "))
}

func UserType(s Store) models.UserType {
	return models.UserType(s.Get(KeyUserType))
}

// Expired reports whether the stored token is missing, unreadable or past
// its exp claim. The signature is not checked; the API does that.
func Expired(s Store, now time.Time) bool {
	tok := Token(s)
	if tok == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Subject returns the sub claim of the stored token, if any.
func Subject(s Store) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(Token(s), claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
