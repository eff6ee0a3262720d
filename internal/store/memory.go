package store

import (
	"context"
	"sync"

	"github.com/teacherflow/api/internal/model"
)

// MemoryStore is an in-process job table. It backs the service when Redis
// is unavailable and the unit tests. Values are copied on the way in and
// out so callers never share a Job pointer with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]model.Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return &job, nil
}

func (s *MemoryStore) Update(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return model.ErrJobNotFound
	}
	s.jobs[job.ID] = *job
	return nil
}
