// Package validate holds the form rules shared by the API, the web views and
// the CLI. Every check reports its failures as Errors, in form order.
package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/models"
)

const (
	MinNameLength     = 3
	MinPasswordLength = 6
	MaxStackLength    = 100

	// DateTimeLocalLayout is the value format of an HTML datetime-local input.
	DateTimeLocalLayout = "2006-01-02T15:04"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors lists failed rules in the order the form checks them.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// First returns the message of the first failed rule, or "".
func (e Errors) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

// Has reports whether field failed a rule.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *Errors) add(field, msg string) {
	*e = append(*e, FieldError{Field: field, Message: msg})
}

// err returns nil for an empty list so callers can use err != nil.
func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// SplitList splits comma-separated input, trimming entries and dropping blanks.
func SplitList(s string) []string {
	return CleanList(strings.Split(s, ","))
}

// CleanList trims entries and drops blanks. It never returns nil.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailRegex.MatchString(s)
}

// SignupForm is the input of the signup form.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	UserType  string
	Skills    []string
	Address   string
}

// Signup checks the signup rules. It also normalises f in place: names are
// trimmed, an empty user type becomes SEEKER and skills are cleaned.
func Signup(f *SignupForm) error {
	var errs Errors

	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.Skills = CleanList(f.Skills)

	if len([]rune(f.FirstName)) < MinNameLength {
		errs.add("firstName", "First name must be at least 3 characters")
	}
	if len([]rune(f.LastName)) < MinNameLength {
		errs.add("lastName", "Last name must be at least 3 characters")
	}
	if len([]rune(f.Username)) < MinNameLength {
		errs.add("username", "Username must be at least 3 characters")
	}
	if !Email(f.Email) {
		errs.add("email", "Please enter a valid email")
	}
	if len(f.Password) < MinPasswordLength {
		errs.add("password", "Password must be at least 6 characters")
	}

	ut := strings.ToUpper(strings.TrimSpace(f.UserType))
	if ut == "" {
		ut = string(models.UserTypeSeeker)
	}
	if !models.UserType(ut).Valid() {
		errs.add("userTypes", "User type must be SEEKER or POSTER")
	}
	f.UserType = ut

	return errs.err()
}

// Login checks that both credentials are present.
func Login(email, password string) error {
	var errs Errors
	if strings.TrimSpace(email) == "" {
		errs.add("email", "Email is required")
	}
	if password == "" {
		errs.add("password", "Password is required")
	}
	return errs.err()
}

// JobForm is the input of the post-a-job form.
type JobForm struct {
	Title       string
	Description string
	Category    []string
	OpensAt     time.Time
	ClosesAt    time.Time
}

// Job checks the job posting rules and cleans f in place.
func Job(f *JobForm) error {
	var errs Errors

	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = CleanList(f.Category)

	if f.Title == "" {
		errs.add("title", "Title is required")
	}
	if f.Description == "" {
		errs.add("description", "Description is required")
	}
	if len(f.Category) == 0 {
		errs.add("category", "At least one category is required")
	}
	if f.OpensAt.IsZero() {
		errs.add("createdAt", "Opening date is required")
	}
	if f.ClosesAt.IsZero() {
		errs.add("closedAt", "Closing date is required")
	}
	if !f.OpensAt.IsZero() && !f.ClosesAt.IsZero() && !f.ClosesAt.After(f.OpensAt) {
		errs.add("closedAt", "Closing date must be after opening date")
	}

	return errs.err()
}

// ParseDate accepts RFC 3339 or the datetime-local layout (read as UTC).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(DateTimeLocalLayout, s)
}

// Stack normalises a tech stack query: trimmed and lower-cased.
func Stack(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var errs Errors
	switch {
	case s == "":
		errs.add("stack", "Tech stack is required")
	case len([]rune(s)) > MaxStackLength:
		errs.add("stack", "Tech stack must be at most 100 characters")
	}
	return s, errs.err()
}
