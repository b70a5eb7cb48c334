package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/rojgar/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Getters return nil, nil when the row does not exist.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// JobRepo stores postings. ListJobs and CountJobs match q case-insensitively
// against title and description before paging; an empty q matches all.
// DeleteJob reports whether a row was removed.
type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (int64, error)
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	ListJobs(ctx context.Context, q string, limit, offset int) ([]models.Job, error)
	CountJobs(ctx context.Context, q string) (int64, error)
	DeleteJob(ctx context.Context, id int64) (bool, error)
}

type QuestionRepo interface {
	GetQuestionSet(ctx context.Context, stack string) (*models.QuestionSet, error)
	SaveQuestionSet(ctx context.Context, qs *models.QuestionSet) error
	DeleteQuestionSet(ctx context.Context, stack string) error
}

// SchemaRepo stores prompt answer schemas. Save upserts by version and fills
// ID, Created and Updated; Delete reports whether a row was removed.
type SchemaRepo interface {
	SaveSchema(ctx context.Context, s *models.PromptSchema) error
	GetSchema(ctx context.Context, version string) (*models.PromptSchema, error)
	ListSchemas(ctx context.Context) ([]models.PromptSchema, error)
	DeleteSchema(ctx context.Context, version string) (bool, error)
}

// TemplateRepo stores prompt templates keyed by name and version.
type TemplateRepo interface {
	SaveTemplate(ctx context.Context, t *models.PromptTemplate) error
	GetTemplate(ctx context.Context, name, version string) (*models.PromptTemplate, error)
	ListTemplates(ctx context.Context) ([]models.PromptTemplate, error)
	DeleteTemplate(ctx context.Context, name, version string) (bool, error)
}

type BackgroundJobRepo interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
}

// Errors returned by UserRepo.CreateUser when a unique field is already in use.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)
