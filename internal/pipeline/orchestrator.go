// Package pipeline drives a video generation job through its stages:
// plan, narrate, synthesize speech, generate renderer code, render each
// scene with self-healing retries, and assemble the final video.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/teacherflow/api/internal/codegen"
	"github.com/teacherflow/api/internal/model"
	"github.com/teacherflow/api/internal/renderer"
	"github.com/teacherflow/api/internal/store"
)

// ContentPlanner produces the structured plan and narration for a query.
type ContentPlanner interface {
	PlanDesign(ctx context.Context, query string) (*model.SystemDesign, string, error)
	PlanScript(ctx context.Context, query string) (*model.NarrationScript, error)
}

// SpeechSynthesizer produces one audio artifact per narration scene.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, sceneIndex int, text, outPath string) (model.AudioArtifact, error)
}

// CodeGenerator produces renderer programs for all scenes.
type CodeGenerator interface {
	Generate(ctx context.Context, params codegen.GenerateParams) ([]model.SceneCode, error)
}

// SceneRenderer renders every scene, retrying failed ones with
// regenerated code, and returns segments ordered by scene index.
type SceneRenderer interface {
	RenderAll(ctx context.Context, scratchDir string, codes []model.SceneCode, archive renderer.AttemptArchiver) ([]model.RenderedSegment, error)
}

// VideoAssembler concatenates ordered segments into one video.
type VideoAssembler interface {
	Assemble(ctx context.Context, scratchDir string, segments []model.RenderedSegment, outName string) (string, error)
}

// ArtifactStore manages the filesystem side of a job's artifacts.
type ArtifactStore interface {
	NewScratchDir(videoID string) (string, error)
	RemoveScratchDir(dir string)
	AudioScenePath(videoID string, sceneIndex int) string
	RemoveJobAudio(videoID string)
	PublishVideo(src, filename string) (string, error)
	SaveDebugPlan(videoID, planJSON string)
	SaveDebugAttempt(videoID string, sceneIndex, attempt int, code, errMsg string, ok bool)
}

// Progress checkpoints after each major pipeline step.
const (
	progressDesign    = 10
	progressScript    = 20
	progressAudio     = 40
	progressCode      = 60
	progressRendered  = 80
	progressAssembled = 90
)

// Orchestrator owns the job state machine: PENDING → IN_PROGRESS →
// COMPLETED | FAILED. It is the only mutator of its job's record.
type Orchestrator struct {
	store     store.JobStore
	planner   ContentPlanner
	speech    SpeechSynthesizer
	codegen   CodeGenerator
	renderer  SceneRenderer
	assembler VideoAssembler
	artifacts ArtifactStore
	stepPause time.Duration
}

func New(
	jobStore store.JobStore,
	planner ContentPlanner,
	speech SpeechSynthesizer,
	codeGen CodeGenerator,
	sceneRenderer SceneRenderer,
	videoAssembler VideoAssembler,
	artifacts ArtifactStore,
	stepPause time.Duration,
) *Orchestrator {
	return &Orchestrator{
		store:     jobStore,
		planner:   planner,
		speech:    speech,
		codegen:   codeGen,
		renderer:  sceneRenderer,
		assembler: videoAssembler,
		artifacts: artifacts,
		stepPause: stepPause,
	}
}

// Run executes the whole pipeline for one job. Every exit path,
// including panics, removes the job's scratch directory and audio
// artifacts and leaves no partially published video; the final video
// appears at its public path only after the full pipeline succeeded.
// Run never lets an error escape uncaught: failures land in the job
// record as failed with progress reset to 0.
func (o *Orchestrator) Run(ctx context.Context, jobID string, payload model.VideoJobPayload) (err error) {
	videoID := uuid.New().String()
	var scratch string

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
		}
		o.artifacts.RemoveScratchDir(scratch)
		o.artifacts.RemoveJobAudio(videoID)
		if err != nil {
			log.Printf("Video job %s failed: %v", jobID, err)
			o.failJob(jobID, err)
		}
	}()

	log.Printf("Starting video job %s (video %s)", jobID, videoID)

	// Step 1: system design breakdown
	design, designJSON, err := o.planner.PlanDesign(ctx, payload.Query)
	if err != nil {
		return err
	}
	o.artifacts.SaveDebugPlan(videoID, designJSON)
	log.Printf("Job %s: design ready (%d components, %d relationships)",
		jobID, len(design.Components), len(design.Relationships))
	o.checkpoint(ctx, jobID, progressDesign)

	// Step 2: narration script
	script, err := o.planner.PlanScript(ctx, payload.Query)
	if err != nil {
		return err
	}
	o.checkpoint(ctx, jobID, progressScript)

	// Step 3: speech synthesis, one artifact per scene. Any scene
	// failing fails the job: partial audio sets are not accepted.
	audio := make([]model.AudioArtifact, len(script.Scenes))
	for i, scene := range script.Scenes {
		artifact, synthErr := o.speech.Synthesize(ctx, i, scene.Script, o.artifacts.AudioScenePath(videoID, i))
		if synthErr != nil {
			return synthErr
		}
		audio[i] = artifact
	}
	o.checkpoint(ctx, jobID, progressAudio)

	// Step 4: renderer code, one program per scene
	prompts := make([]codegen.ScenePrompt, len(script.Scenes))
	for i, scene := range script.Scenes {
		prompts[i] = codegen.ScenePrompt{
			Index:         i,
			Name:          scene.Name,
			Script:        scene.Script,
			AudioPath:     audio[i].Path,
			AudioDuration: audio[i].Duration,
		}
	}
	codes, err := o.codegen.Generate(ctx, codegen.GenerateParams{
		Query:      payload.Query,
		DesignJSON: designJSON,
		Scenes:     prompts,
	})
	if err != nil {
		return err
	}
	o.checkpoint(ctx, jobID, progressCode)

	// Step 5: render all scenes with per-scene retries
	scratch, err = o.artifacts.NewScratchDir(videoID)
	if err != nil {
		return err
	}
	segments, err := o.renderer.RenderAll(ctx, scratch, codes, func(sceneIndex, attempt int, code, errMsg string, ok bool) {
		o.artifacts.SaveDebugAttempt(videoID, sceneIndex, attempt, code, errMsg, ok)
	})
	if err != nil {
		return err
	}
	o.checkpoint(ctx, jobID, progressRendered)

	// Step 6: ordered assembly
	videoFilename := videoID + ".mp4"
	finalPath, err := o.assembler.Assemble(ctx, scratch, segments, videoFilename)
	if err != nil {
		return err
	}
	o.checkpoint(ctx, jobID, progressAssembled)

	// Step 7: publish and complete
	if _, err = o.artifacts.PublishVideo(finalPath, videoFilename); err != nil {
		return err
	}
	if err = o.completeJob(jobID, videoFilename); err != nil {
		return err
	}

	log.Printf("Video job %s completed: %s", jobID, videoFilename)
	return nil
}

// checkpoint raises the job's progress and pauses briefly so polling
// clients observe forward motion between long steps. Progress never
// decreases while the job is in progress.
func (o *Orchestrator) checkpoint(ctx context.Context, jobID string, progress float64) {
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		log.Printf("Job %s: progress update failed: %v", jobID, err)
		return
	}

	if job.Status == model.JobStatusPending {
		job.Status = model.JobStatusInProgress
		now := time.Now()
		job.StartedAt = &now
	}
	if progress > job.Progress {
		job.Progress = progress
	}

	if err := o.store.Update(ctx, job); err != nil {
		log.Printf("Job %s: progress update failed: %v", jobID, err)
	}

	if o.stepPause > 0 {
		select {
		case <-time.After(o.stepPause):
		case <-ctx.Done():
		}
	}
}

func (o *Orchestrator) completeJob(jobID, videoFilename string) error {
	ctx := context.Background()
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.VideoURL = &videoFilename
	job.CompletedAt = &now

	return o.store.Update(ctx, job)
}

func (o *Orchestrator) failJob(jobID string, cause error) {
	// A fresh context: the job's own context may already be cancelled.
	ctx := context.Background()
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		log.Printf("Job %s: could not load job to mark failed: %v", jobID, err)
		return
	}

	now := time.Now()
	msg := cause.Error()
	job.Status = model.JobStatusFailed
	job.Progress = 0
	job.Error = &msg
	job.CompletedAt = &now

	if err := o.store.Update(ctx, job); err != nil {
		log.Printf("Job %s: could not mark failed: %v", jobID, err)
	}
}
