package training

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps jobs in process memory. It backs the service
// when Postgres is disabled.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]JobModel
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[uuid.UUID]JobModel)}
}

func (r *MemoryRepository) Create(_ context.Context, job *JobModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, jobID uuid.UUID, status string, metrics map[string]interface{}, artifactID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = status
	job.ArtifactID = artifactID
	job.ErrorMessage = errorMessage
	job.UpdatedAt = time.Now().UTC()
	if metrics != nil {
		job.Metrics = metrics
	}
	r.jobs[jobID] = job
	return nil
}

func (r *MemoryRepository) SetTimestamps(_ context.Context, jobID uuid.UUID, startedAt, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.UpdatedAt = time.Now().UTC()
	if startedAt != nil {
		job.StartedAt = startedAt
	}
	if completedAt != nil {
		job.CompletedAt = completedAt
	}
	r.jobs[jobID] = job
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, jobID uuid.UUID) (*JobModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]JobModel, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	jobs := make([]JobModel, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
