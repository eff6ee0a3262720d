package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/teacherflow/api/internal/artifact"
	"github.com/teacherflow/api/internal/model"
	"github.com/teacherflow/api/internal/pipeline"
	"github.com/teacherflow/api/internal/store"
)

const TaskTypeVideo = "video:generate"

// VideoService accepts video generation jobs and answers status and
// artifact queries. Jobs normally flow through the asynq queue; when no
// queue client is configured the pipeline runs on a plain goroutine so
// the service still works without Redis.
type VideoService struct {
	store        store.JobStore
	asynqClient  *asynq.Client
	orchestrator *pipeline.Orchestrator
	artifacts    *artifact.Store
}

func NewVideoService(jobStore store.JobStore, asynqClient *asynq.Client, orchestrator *pipeline.Orchestrator, artifacts *artifact.Store) *VideoService {
	return &VideoService{
		store:        jobStore,
		asynqClient:  asynqClient,
		orchestrator: orchestrator,
		artifacts:    artifacts,
	}
}

// StartGeneration creates a pending job and dispatches the pipeline.
// The request only fails synchronously when the job record or dispatch
// itself cannot be created; all later failures surface via polling.
func (s *VideoService) StartGeneration(ctx context.Context, req *model.GenerateVideoRequest) (*model.GenerateVideoResponse, error) {
	jobID := uuid.New().String()
	job := &model.Job{
		ID:        jobID,
		Status:    model.JobStatusPending,
		Progress:  0,
		CreatedAt: time.Now(),
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	payload := model.VideoJobPayload{Query: req.Query, IsPro: req.IsPro}

	if s.asynqClient != nil {
		task, err := newVideoTask(jobID, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		_, err = s.asynqClient.Enqueue(task,
			asynq.Queue("video"),
			asynq.MaxRetry(0),
			asynq.Retention(24*time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue task: %w", err)
		}
	} else {
		// In-process dispatch. The request context ends with the HTTP
		// request, so the pipeline gets its own.
		go s.orchestrator.Run(context.Background(), jobID, payload)
	}

	return &model.GenerateVideoResponse{JobID: jobID}, nil
}

// GetStatus returns the polling view of a job.
func (s *VideoService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		VideoURL: job.VideoURL,
	}, nil
}

// DeleteVideos removes published videos by filename, reporting a
// per-filename outcome. Names containing path separators are rejected
// without touching disk.
func (s *VideoService) DeleteVideos(filenames []string) []model.DeleteResult {
	results := make([]model.DeleteResult, 0, len(filenames))
	for _, filename := range filenames {
		if err := artifact.ValidateFilename(filename); err != nil {
			results = append(results, model.DeleteResult{
				Filename: filename,
				Status:   "error",
				Message:  "Invalid filename",
			})
			continue
		}

		err := s.artifacts.DeleteVideo(filename)
		switch {
		case err == nil:
			results = append(results, model.DeleteResult{Filename: filename, Status: "success", Message: "Deleted"})
		case errors.Is(err, fs.ErrNotExist):
			results = append(results, model.DeleteResult{Filename: filename, Status: "error", Message: "File not found"})
		default:
			results = append(results, model.DeleteResult{Filename: filename, Status: "error", Message: err.Error()})
		}
	}
	return results
}

// ResolveVideo maps a public filename to its on-disk path for streaming.
func (s *VideoService) ResolveVideo(filename string) (string, error) {
	return s.artifacts.ResolveVideo(filename)
}

func newVideoTask(jobID string, payload model.VideoJobPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payloadBytes),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeVideo, data), nil
}
