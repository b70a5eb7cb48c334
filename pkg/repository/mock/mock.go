package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	UserRepo     *mockUserRepo
	JobRepo      *mockJobRepo
	QuestionRepo *mockQuestionRepo
	QueueRepo    *mockQueueRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		UserRepo:     &mockUserRepo{Users: map[string]*models.User{}},
		JobRepo:      &mockJobRepo{},
		QuestionRepo: &mockQuestionRepo{Sets: map[string]*models.QuestionSet{}},
		QueueRepo:    &mockQueueRepo{},
	}
}

var (
	_ repository.UserRepo          = (*mockUserRepo)(nil)
	_ repository.JobRepo           = (*mockJobRepo)(nil)
	_ repository.QuestionRepo      = (*mockQuestionRepo)(nil)
	_ repository.BackgroundJobRepo = (*mockQueueRepo)(nil)
)

type mockUserRepo struct {
	mu        sync.Mutex
	Users     map[string]*models.User
	CreateErr error
	GetErr    error
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	email := strings.ToLower(u.Email)
	for _, existing := range m.Users {
		if existing.Email == email {
			return repository.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	stored := *u
	stored.Email = email
	u.Email = email
	m.Users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if u, ok := m.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type mockJobRepo struct {
	mu        sync.Mutex
	Jobs      []models.Job
	CreateErr error
	ListErr   error
	DeleteErr error
	lastID    int64
}

func (m *mockJobRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.lastID++
	j.ID = m.lastID
	j.Created = j.ID
	stored := *j
	stored.Embeddings = nil
	m.Jobs = append(m.Jobs, stored)
	return j.ID, nil
}

func (m *mockJobRepo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.Jobs {
		if j.ID == id {
			cp := j
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockJobRepo) matching(q string) []models.Job {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []models.Job{}
	for _, j := range m.Jobs {
		if q == "" || strings.Contains(strings.ToLower(j.Title), q) || strings.Contains(strings.ToLower(j.Description), q) {
			out = append(out, j)
		}
	}
	return out
}

func (m *mockJobRepo) ListJobs(ctx context.Context, q string, limit, offset int) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := m.matching(q)
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	if offset > len(out) {
		return []models.Job{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockJobRepo) CountJobs(ctx context.Context, q string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matching(q))), nil
}

func (m *mockJobRepo) DeleteJob(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	for i, j := range m.Jobs {
		if j.ID == id {
			m.Jobs = append(m.Jobs[:i], m.Jobs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockQuestionRepo struct {
	mu      sync.Mutex
	Sets    map[string]*models.QuestionSet
	SaveErr error
}

func (m *mockQuestionRepo) GetQuestionSet(ctx context.Context, stack string) (*models.QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qs, ok := m.Sets[stack]; ok {
		cp := *qs
		return &cp, nil
	}
	return nil, nil
}

func (m *mockQuestionRepo) SaveQuestionSet(ctx context.Context, qs *models.QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *qs
	m.Sets[qs.Stack] = &cp
	return nil
}

func (m *mockQuestionRepo) DeleteQuestionSet(ctx context.Context, stack string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sets, stack)
	return nil
}

// mockQueueRepo records enqueued jobs; FetchNext hands them out in order.
type mockQueueRepo struct {
	mu         sync.Mutex
	Enqueued   []*models.BackgroundJob
	Updated    []*models.BackgroundJob
	Dead       []*models.BackgroundJob
	EnqueueErr error
	next       int
}

func (m *mockQueueRepo) Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return 0, m.EnqueueErr
	}
	cp := *j
	cp.ID = int64(len(m.Enqueued) + 1)
	m.Enqueued = append(m.Enqueued, &cp)
	return cp.ID, nil
}

func (m *mockQueueRepo) FetchNext(ctx context.Context) (*models.BackgroundJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.Enqueued) {
		return nil, nil
	}
	j := m.Enqueued[m.next]
	m.next++
	return j, nil
}

func (m *mockQueueRepo) UpdateJob(ctx context.Context, j *models.BackgroundJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.Updated = append(m.Updated, &cp)
	return nil
}

func (m *mockQueueRepo) MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.Dead = append(m.Dead, &cp)
	return nil
}

// Lock and Unlock guard the exported slices for readers in other goroutines.
func (m *mockQueueRepo) Lock()   { m.mu.Lock() }
func (m *mockQueueRepo) Unlock() { m.mu.Unlock() }

// Types returns the job types enqueued so far.
func (m *mockQueueRepo) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Enqueued))
	for _, j := range m.Enqueued {
		out = append(out, j.Type)
	}
	return out
}

// Payloads returns the raw payloads enqueued so far.
func (m *mockQueueRepo) Payloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Enqueued))
	for _, j := range m.Enqueued {
		out = append(out, string(j.Payload))
	}
	return out
}
