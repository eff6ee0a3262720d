// Package assembler concatenates rendered per-scene segments into the
// final deliverable video.
package assembler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/teacherflow/api/internal/media"
	"github.com/teacherflow/api/internal/model"
)

// Assembler joins segments in scene order with lossless stream copy.
type Assembler struct{}

func New() *Assembler {
	return &Assembler{}
}

// Assemble produces a single video at scratchDir/outName from the given
// segments, ordered by scene index. A single segment is renamed rather
// than re-encoded. Mixed audio presence is reconciled by padding silent
// segments with a matching-duration silence track so the merged audio
// stays aligned with the merged video; if no segment has audio the
// concat stays video-only. A concat tool failure is fatal and never
// retried: every scene already rendered, so it indicates an environment
// problem.
func (a *Assembler) Assemble(ctx context.Context, scratchDir string, segments []model.RenderedSegment, outName string) (string, error) {
	if len(segments) == 0 {
		return "", &model.AssemblyError{Err: fmt.Errorf("no segments to assemble")}
	}

	ordered := make([]model.RenderedSegment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SceneIndex < ordered[j].SceneIndex
	})

	outPath := filepath.Join(scratchDir, outName)

	if len(ordered) == 1 {
		if err := os.Rename(ordered[0].Path, outPath); err != nil {
			return "", &model.AssemblyError{Err: fmt.Errorf("relocate single segment: %w", err)}
		}
		return outPath, nil
	}

	files, err := a.reconcileAudio(ctx, scratchDir, ordered)
	if err != nil {
		return "", err
	}

	stderr, err := media.Concat(ctx, files, scratchDir, outPath)
	if err != nil {
		return "", &model.AssemblyError{Stderr: stderr, Err: err}
	}

	return outPath, nil
}

// reconcileAudio returns the segment paths to concatenate, replacing
// silent segments with silence-padded copies when the set mixes voiced
// and unvoiced scenes.
func (a *Assembler) reconcileAudio(ctx context.Context, scratchDir string, ordered []model.RenderedSegment) ([]string, error) {
	hasAudio := make([]bool, len(ordered))
	anyAudio := false
	for i, seg := range ordered {
		ok, err := media.HasAudioStream(ctx, seg.Path)
		if err != nil {
			return nil, &model.AssemblyError{Err: fmt.Errorf("probe segment %d: %w", seg.SceneIndex, err)}
		}
		hasAudio[i] = ok
		anyAudio = anyAudio || ok
	}

	files := make([]string, len(ordered))
	for i, seg := range ordered {
		files[i] = seg.Path
		if anyAudio && !hasAudio[i] {
			padded := filepath.Join(scratchDir, fmt.Sprintf("padded_%d.mp4", seg.SceneIndex))
			if err := media.PadWithSilence(ctx, seg.Path, padded); err != nil {
				return nil, &model.AssemblyError{Err: err}
			}
			files[i] = padded
		}
	}
	return files, nil
}
