// Package renderer executes generated scene programs through the external
// animation engine, with a bounded per-scene retry that feeds the render
// error back into code regeneration.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/teacherflow/api/internal/model"
)

// CodeRepairer regenerates a failing scene program from its previous
// code and the captured renderer error.
type CodeRepairer interface {
	Repair(ctx context.Context, previousCode, previousError string) (string, error)
}

// AttemptArchiver records a generated code attempt for postmortem
// inspection. May be nil.
type AttemptArchiver func(sceneIndex, attempt int, code, errMsg string, ok bool)

// Renderer runs scene programs through the renderer binary. Each scene
// retries independently up to maxRetries times; scenes render in
// parallel bounded by concurrency, each in its own scratch arena.
type Renderer struct {
	repairer    CodeRepairer
	bin         string
	quality     string
	maxRetries  int
	concurrency int
}

func New(repairer CodeRepairer, bin, quality string, maxRetries, concurrency int) *Renderer {
	if bin == "" {
		bin = "manim"
	}
	if quality == "" {
		quality = "720p30"
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Renderer{
		repairer:    repairer,
		bin:         bin,
		quality:     quality,
		maxRetries:  maxRetries,
		concurrency: concurrency,
	}
}

// RenderAll renders every scene, collecting tagged results and re-sorting
// them by scene index so assembly order never depends on completion order.
// Any scene exhausting its retries fails the whole batch.
func (r *Renderer) RenderAll(ctx context.Context, scratchDir string, codes []model.SceneCode, archive AttemptArchiver) ([]model.RenderedSegment, error) {
	results := make([]model.RenderedSegment, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			arena := filepath.Join(scratchDir, fmt.Sprintf("scene_%d", code.Index))
			if err := os.MkdirAll(arena, 0755); err != nil {
				return fmt.Errorf("create scene arena: %w", err)
			}
			seg, err := r.RenderScene(gctx, arena, code, archive)
			if err != nil {
				return err
			}
			results[i] = seg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SceneIndex < results[j].SceneIndex
	})
	return results, nil
}

// RenderScene drives one scene through the attempt state machine:
// render, and on failure regenerate the code from the captured error
// until the retry bound is hit.
func (r *Renderer) RenderScene(ctx context.Context, arena string, code model.SceneCode, archive AttemptArchiver) (model.RenderedSegment, error) {
	state := attemptState{lastCode: code.Source}

	for {
		outPath, renderErr := r.runOnce(ctx, arena, code.Index, state.attempt, state.lastCode)
		if renderErr == nil {
			if archive != nil {
				archive(code.Index, state.attempt+1, state.lastCode, "", true)
			}
			return model.RenderedSegment{Path: outPath, SceneIndex: code.Index}, nil
		}

		if archive != nil {
			archive(code.Index, state.attempt+1, state.lastCode, renderErr.Stderr, false)
		}

		next, done := nextAttempt(state, outcome{errMsg: renderErr.Stderr}, r.maxRetries)
		if done {
			return model.RenderedSegment{}, renderErr
		}

		repaired, err := r.repairer.Repair(ctx, next.lastCode, next.lastErr)
		if err != nil {
			return model.RenderedSegment{}, err
		}
		next.lastCode = repaired
		state = next
	}
}

// runOnce executes the renderer for a single attempt in a fresh
// directory and locates the produced video file.
func (r *Renderer) runOnce(ctx context.Context, arena string, sceneIndex, attempt int, source string) (string, *model.RenderError) {
	dir := filepath.Join(arena, fmt.Sprintf("attempt_%d", attempt+1))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &model.RenderError{SceneIndex: sceneIndex, Attempt: attempt + 1, Err: err}
	}

	srcFile := filepath.Join(dir, "scene.py")
	if err := os.WriteFile(srcFile, []byte(source), 0644); err != nil {
		return "", &model.RenderError{SceneIndex: sceneIndex, Attempt: attempt + 1, Err: err}
	}

	outName := fmt.Sprintf("scene_%d.mp4", sceneIndex+1)

	cmd := exec.CommandContext(ctx, r.bin, "-qm", "-a", "scene.py", "-o", outName)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errText := stderr.String()
		if errText == "" {
			errText = stdout.String()
		}
		return "", &model.RenderError{
			SceneIndex: sceneIndex,
			Attempt:    attempt + 1,
			Stderr:     errText,
			Err:        fmt.Errorf("renderer exited: %w", err),
		}
	}

	// The renderer exiting cleanly does not guarantee output: a missing
	// file is its own explicitly-checked failure.
	matches := r.findOutputs(dir, outName)
	if len(matches) == 0 {
		return "", &model.RenderError{
			SceneIndex: sceneIndex,
			Attempt:    attempt + 1,
			Stderr:     stdout.String(),
			Err:        fmt.Errorf("renderer produced no output matching media/videos/**/%s/%s", r.quality, outName),
		}
	}
	if len(matches) > 1 {
		return "", &model.RenderError{
			SceneIndex: sceneIndex,
			Attempt:    attempt + 1,
			Err:        fmt.Errorf("renderer produced %d outputs named %s, expected exactly one", len(matches), outName),
		}
	}

	return matches[0], nil
}

// findOutputs walks the attempt's media tree for videos with the expected
// name under the configured quality directory.
func (r *Renderer) findOutputs(dir, outName string) []string {
	var matches []string
	root := filepath.Join(dir, "media", "videos")
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == outName && filepath.Base(filepath.Dir(path)) == r.quality {
			matches = append(matches, path)
		}
		return nil
	})
	sort.Strings(matches)
	return matches
}
