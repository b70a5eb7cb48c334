package models

import (
	"encoding/json"
	"time"
)

type UserType string

const (
	UserTypeSeeker UserType = "SEEKER"
	UserTypePoster UserType = "POSTER"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	return t == UserTypeSeeker || t == UserTypePoster
}

type User struct {
	ID           string   `json:"id" db:"id"`
	FirstName    string   `json:"firstName" db:"first_name"`
	LastName     string   `json:"lastName" db:"last_name"`
	Username     string   `json:"username" db:"username"`
	Email        string   `json:"email" db:"email"`
	Address      string   `json:"address" db:"address"`
	Skills       []string `json:"skills" db:"skills"`
	UserType     UserType `json:"userType" db:"user_type"`
	PasswordHash string   `json:"-" db:"password_hash"`
	Created      int64    `json:"created" db:"created"`
	Updated      int64    `json:"updated" db:"updated"`
}

// Job is a job posting. Embeddings is accepted on input and always returned empty.
type Job struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    []string  `json:"category" db:"categories"`
	CreatedAt   time.Time `json:"createdAt" db:"opens_at"`
	ClosedAt    time.Time `json:"closedAt" db:"closes_at"`
	UserID      string    `json:"userId" db:"user_id"`
	Embeddings  []float64 `json:"embeddings"`
	Created     int64     `json:"created" db:"created"`
	Updated     int64     `json:"updated" db:"updated"`
}

// QuestionSet is a generated set of mock interview questions for one tech stack.
type QuestionSet struct {
	Stack             string   `json:"stack" db:"stack"`
	Technical         []string `json:"technical" db:"technical"`
	Behavioral        []string `json:"behavioral" db:"behavioral"`
	TechnicalAnswers  []string `json:"technicalAnswers" db:"technical_answers"`
	BehavioralAnswers []string `json:"behavioralAnswers" db:"behavioral_answers"`
	Model             string   `json:"model,omitempty" db:"model"`
	TemplateVersion   string   `json:"templateVersion,omitempty" db:"template_version"`
	Created           int64    `json:"created" db:"created"`
}

// PromptSchema is a versioned JSON schema that model answers must match.
type PromptSchema struct {
	ID          int64           `json:"id" db:"id"`
	Version     string          `json:"version" db:"version"`
	Description string          `json:"description,omitempty" db:"description"`
	Document    json.RawMessage `json:"document" db:"document"`
	Created     int64           `json:"created" db:"created"`
	Updated     int64           `json:"updated" db:"updated"`
}

// PromptTemplate is a versioned text/template prompt. SchemaVersion names the
// PromptSchema its answers are checked against; empty means unchecked.
type PromptTemplate struct {
	ID            int64  `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	Version       string `json:"version" db:"version"`
	Body          string `json:"body" db:"body"`
	SchemaVersion string `json:"schemaVersion,omitempty" db:"schema_version"`
	Created       int64  `json:"created" db:"created"`
	Updated       int64  `json:"updated" db:"updated"`
}

// Background job states as stored in the jobs table.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobRetry   = "retry"
	JobDone    = "done"
	JobFailed  = "failed"
)

type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
