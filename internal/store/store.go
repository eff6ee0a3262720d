// Package store holds job records behind a small interface so the
// orchestrator does not care whether jobs live in Redis or in memory.
package store

import (
	"context"

	"github.com/teacherflow/api/internal/model"
)

// JobStore persists job records. Implementations must return
// model.ErrJobNotFound for unknown ids.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
}
