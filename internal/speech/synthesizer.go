// Package speech turns narration text into audio artifacts via the
// text-to-speech capability, with a small bounded retry.
package speech

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/teacherflow/api/internal/media"
	"github.com/teacherflow/api/internal/model"
)

// SpeechClient is the slice of the AI client the synthesizer needs.
type SpeechClient interface {
	Speech(ctx context.Context, text string) ([]byte, error)
}

// Synthesizer converts one scene's narration to an audio file. The
// synthesis call retries up to maxRetries times with a fixed short
// backoff; a disk-write failure after a successful call is terminal
// for the attempt and does not consume further synthesis retries.
type Synthesizer struct {
	client     SpeechClient
	maxRetries int
	retryDelay time.Duration
}

func New(client SpeechClient, maxRetries int) *Synthesizer {
	return &Synthesizer{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: 200 * time.Millisecond,
	}
}

// Synthesize generates speech for text and writes it to outPath,
// returning the artifact with its probed duration.
func (s *Synthesizer) Synthesize(ctx context.Context, sceneIndex int, text, outPath string) (model.AudioArtifact, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return model.AudioArtifact{}, &model.SpeechSynthesisError{SceneIndex: sceneIndex, Err: ctx.Err()}
			}
		}

		audio, err := s.client.Speech(ctx, text)
		if err != nil {
			lastErr = err
			continue
		}

		if err := os.WriteFile(outPath, audio, 0644); err != nil {
			// Synthesis succeeded but streaming to disk did not. This is a
			// different failure class and is not retried.
			return model.AudioArtifact{}, &model.SpeechSynthesisError{
				SceneIndex: sceneIndex,
				Err:        fmt.Errorf("write audio file: %w", err),
			}
		}

		return model.AudioArtifact{
			Path:     outPath,
			Duration: media.Duration(ctx, outPath),
		}, nil
	}

	return model.AudioArtifact{}, &model.SpeechSynthesisError{
		SceneIndex: sceneIndex,
		Err:        fmt.Errorf("synthesis failed after %d attempts: %w", s.maxRetries+1, lastErr),
	}
}
