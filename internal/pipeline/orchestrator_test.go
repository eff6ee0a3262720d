package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/teacherflow/api/internal/codegen"
	"github.com/teacherflow/api/internal/model"
	"github.com/teacherflow/api/internal/renderer"
	"github.com/teacherflow/api/internal/store"
)

type fakePlanner struct {
	designErr error
	scriptErr error
}

func (f *fakePlanner) PlanDesign(_ context.Context, _ string) (*model.SystemDesign, string, error) {
	if f.designErr != nil {
		return nil, "", f.designErr
	}
	design := &model.SystemDesign{Components: []model.Component{{ID: "api", Name: "API"}}}
	return design, `{"components": [{"id": "api"}]}`, nil
}

func (f *fakePlanner) PlanScript(_ context.Context, _ string) (*model.NarrationScript, error) {
	if f.scriptErr != nil {
		return nil, f.scriptErr
	}
	return &model.NarrationScript{Scenes: []model.NarrationScene{
		{Name: "Intro", Script: "First scene."},
		{Name: "Detail", Script: "Second scene."},
	}}, nil
}

type fakeSpeech struct {
	err   error
	calls int
}

func (f *fakeSpeech) Synthesize(_ context.Context, sceneIndex int, _, outPath string) (model.AudioArtifact, error) {
	f.calls++
	if f.err != nil {
		return model.AudioArtifact{}, f.err
	}
	return model.AudioArtifact{Path: outPath, Duration: 3.5}, nil
}

type fakeCodegen struct {
	err   error
	panic bool
}

func (f *fakeCodegen) Generate(_ context.Context, params codegen.GenerateParams) ([]model.SceneCode, error) {
	if f.panic {
		panic("codegen blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	codes := make([]model.SceneCode, len(params.Scenes))
	for i, sc := range params.Scenes {
		codes[i] = model.SceneCode{Index: sc.Index, Source: "print('scene')"}
	}
	return codes, nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) RenderAll(_ context.Context, scratchDir string, codes []model.SceneCode, _ renderer.AttemptArchiver) ([]model.RenderedSegment, error) {
	if f.err != nil {
		return nil, f.err
	}
	segments := make([]model.RenderedSegment, len(codes))
	for i, code := range codes {
		p := filepath.Join(scratchDir, fmt.Sprintf("seg_%d.mp4", code.Index))
		if err := os.WriteFile(p, []byte("segment"), 0644); err != nil {
			return nil, err
		}
		segments[i] = model.RenderedSegment{Path: p, SceneIndex: code.Index}
	}
	return segments, nil
}

type fakeAssembler struct {
	err error
}

func (f *fakeAssembler) Assemble(_ context.Context, scratchDir string, _ []model.RenderedSegment, outName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(scratchDir, outName)
	if err := os.WriteFile(out, []byte("final"), 0644); err != nil {
		return "", err
	}
	return out, nil
}

// fakeArtifacts tracks filesystem lifecycle calls.
type fakeArtifacts struct {
	mu             sync.Mutex
	audioDir       string
	scratchRemoved []string
	audioRemoved   []string
	published      []string
	scratchCreated []string
	debugPlanSaves int
	debugCodeSaves int
	publishFails   bool
}

func newFakeArtifacts(t *testing.T) *fakeArtifacts {
	return &fakeArtifacts{audioDir: t.TempDir()}
}

func (f *fakeArtifacts) NewScratchDir(videoID string) (string, error) {
	dir, err := os.MkdirTemp("", "test-render-"+videoID+"-")
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.scratchCreated = append(f.scratchCreated, dir)
	f.mu.Unlock()
	return dir, nil
}

func (f *fakeArtifacts) RemoveScratchDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dir != "" {
		os.RemoveAll(dir)
		f.scratchRemoved = append(f.scratchRemoved, dir)
	}
}

func (f *fakeArtifacts) AudioScenePath(videoID string, sceneIndex int) string {
	return filepath.Join(f.audioDir, fmt.Sprintf("%s_scene_%d.mp3", videoID, sceneIndex+1))
}

func (f *fakeArtifacts) RemoveJobAudio(videoID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioRemoved = append(f.audioRemoved, videoID)
}

func (f *fakeArtifacts) PublishVideo(src, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishFails {
		return "", errors.New("publish refused")
	}
	f.published = append(f.published, filename)
	return src, nil
}

func (f *fakeArtifacts) SaveDebugPlan(_, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugPlanSaves++
}

func (f *fakeArtifacts) SaveDebugAttempt(_ string, _, _ int, _, _ string, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugCodeSaves++
}

type fixture struct {
	store     *store.MemoryStore
	planner   *fakePlanner
	speech    *fakeSpeech
	codegen   *fakeCodegen
	renderer  *fakeRenderer
	assembler *fakeAssembler
	artifacts *fakeArtifacts
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     store.NewMemoryStore(),
		planner:   &fakePlanner{},
		speech:    &fakeSpeech{},
		codegen:   &fakeCodegen{},
		renderer:  &fakeRenderer{},
		assembler: &fakeAssembler{},
		artifacts: newFakeArtifacts(t),
	}
	f.orch = New(f.store, f.planner, f.speech, f.codegen, f.renderer, f.assembler, f.artifacts, 0)
	return f
}

func (f *fixture) createJob(t *testing.T, jobID string) {
	t.Helper()
	err := f.store.Create(context.Background(), &model.Job{ID: jobID, Status: model.JobStatusPending})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
}

func TestRun_SuccessCompletesJob(t *testing.T) {
	f := newFixture(t)
	f.createJob(t, "job-1")

	err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "How does DNS work?"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	job, err := f.store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %v", job.Progress)
	}
	if job.VideoURL == nil || !strings.HasSuffix(*job.VideoURL, ".mp4") {
		t.Errorf("expected mp4 filename video url, got %v", job.VideoURL)
	}
	if job.VideoURL != nil && strings.ContainsAny(*job.VideoURL, `/\`) {
		t.Errorf("video url must be a bare filename, got %q", *job.VideoURL)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("expected started and completed timestamps")
	}

	if f.speech.calls != 2 {
		t.Errorf("expected 2 synthesis calls, got %d", f.speech.calls)
	}
	if len(f.artifacts.published) != 1 {
		t.Fatalf("expected 1 published video, got %d", len(f.artifacts.published))
	}
	if f.artifacts.published[0] != *job.VideoURL {
		t.Errorf("published filename %q does not match job url %q", f.artifacts.published[0], *job.VideoURL)
	}
	if len(f.artifacts.scratchRemoved) != 1 {
		t.Errorf("expected scratch dir removed, got %v", f.artifacts.scratchRemoved)
	}
	if len(f.artifacts.audioRemoved) != 1 {
		t.Errorf("expected job audio cleanup, got %v", f.artifacts.audioRemoved)
	}
	if f.artifacts.debugPlanSaves != 1 {
		t.Errorf("expected one debug plan save call, got %d", f.artifacts.debugPlanSaves)
	}
}

func TestRun_RenderFailureMarksJobFailed(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = &model.RenderError{SceneIndex: 1, Attempt: 3, Stderr: "boom", Err: errors.New("renderer exited")}
	f.createJob(t, "job-1")

	if err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "q"}); err == nil {
		t.Fatal("expected error from failing renderer")
	}

	job, _ := f.store.Get(context.Background(), "job-1")
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress reset to 0, got %v", job.Progress)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "render failed") {
		t.Errorf("expected render failure message, got %v", job.Error)
	}
	if job.VideoURL != nil {
		t.Error("failed job must not carry a video url")
	}

	if len(f.artifacts.published) != 0 {
		t.Error("nothing may be published on failure")
	}
	if len(f.artifacts.scratchRemoved) != 1 {
		t.Error("scratch dir must be removed on failure")
	}
	if len(f.artifacts.audioRemoved) != 1 {
		t.Error("job audio must be removed on failure")
	}
}

func TestRun_PlanFailureFailsEarly(t *testing.T) {
	f := newFixture(t)
	f.planner.designErr = &model.GenerationError{Stage: "design", Err: errors.New("no client")}
	f.createJob(t, "job-1")

	if err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "q"}); err == nil {
		t.Fatal("expected error from failing planner")
	}

	job, _ := f.store.Get(context.Background(), "job-1")
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if f.speech.calls != 0 {
		t.Error("no synthesis may run after a planning failure")
	}
	if len(f.artifacts.published) != 0 {
		t.Error("nothing may be published after a planning failure")
	}
}

func TestRun_SpeechFailureFailsJob(t *testing.T) {
	f := newFixture(t)
	f.speech.err = &model.SpeechSynthesisError{SceneIndex: 0, Err: errors.New("tts down")}
	f.createJob(t, "job-1")

	if err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "q"}); err == nil {
		t.Fatal("expected error from failing synthesizer")
	}

	job, _ := f.store.Get(context.Background(), "job-1")
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "speech synthesis failed") {
		t.Errorf("expected synthesis failure message, got %v", job.Error)
	}
}

func TestRun_PublishFailureFailsJob(t *testing.T) {
	f := newFixture(t)
	f.artifacts.publishFails = true
	f.createJob(t, "job-1")

	if err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "q"}); err == nil {
		t.Fatal("expected error from failing publish")
	}

	job, _ := f.store.Get(context.Background(), "job-1")
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.VideoURL != nil {
		t.Error("failed publish must not leave a video url")
	}
}

func TestRun_PanicIsRecoveredAndFailsJob(t *testing.T) {
	f := newFixture(t)
	f.codegen.panic = true
	f.createJob(t, "job-1")

	if err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "q"}); err == nil {
		t.Fatal("expected error from panicking stage")
	}

	job, _ := f.store.Get(context.Background(), "job-1")
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "panic") {
		t.Errorf("expected panic message in job error, got %v", job.Error)
	}
	if len(f.artifacts.audioRemoved) != 1 {
		t.Error("cleanup must still run after a panic")
	}
}

func TestRun_ProgressAdvancesThroughCheckpoints(t *testing.T) {
	f := newFixture(t)
	f.createJob(t, "job-1")

	// Fail at assembly, after several checkpoints have advanced.
	f.assembler.err = &model.AssemblyError{Err: errors.New("concat broke")}

	if err := f.orch.Run(context.Background(), "job-1", model.VideoJobPayload{Query: "q"}); err == nil {
		t.Fatal("expected assembly error")
	}

	job, _ := f.store.Get(context.Background(), "job-1")
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	// Progress had reached 80 before the failure; failure resets it.
	if job.Progress != 0 {
		t.Errorf("expected progress reset on failure, got %v", job.Progress)
	}
	if job.StartedAt == nil {
		t.Error("expected StartedAt set once the job left pending")
	}
}
