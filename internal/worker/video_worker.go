package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/teacherflow/api/internal/model"
	"github.com/teacherflow/api/internal/pipeline"
)

// VideoWorker processes video generation tasks off the queue.
type VideoWorker struct {
	orchestrator *pipeline.Orchestrator
}

// NewVideoWorker creates a new video worker
func NewVideoWorker(orchestrator *pipeline.Orchestrator) *VideoWorker {
	return &VideoWorker{orchestrator: orchestrator}
}

// ProcessTask handles one queued video generation job. The pipeline owns
// all retry semantics, so tasks are enqueued with MaxRetry(0) and a
// returned error is terminal.
func (w *VideoWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	var payload model.VideoJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal video payload: %w", err)
	}

	log.Printf("Dequeued video job: %s", taskPayload.JobID)
	return w.orchestrator.Run(ctx, taskPayload.JobID, payload)
}
