package model

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned by job stores for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// GenerationError covers failed LLM calls: planning, narration and code
// generation. Planning failures are fatal to the job; code generation
// failures are retryable only when a renderer error is available to seed
// a repair attempt.
type GenerationError struct {
	Stage string // "design", "script", "code"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SpeechSynthesisError is a failed narration-to-audio conversion after
// the synthesizer exhausted its local retries.
type SpeechSynthesisError struct {
	SceneIndex int
	Err        error
}

func (e *SpeechSynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed for scene %d: %v", e.SceneIndex, e.Err)
}

func (e *SpeechSynthesisError) Unwrap() error { return e.Err }

// RenderError is a failed renderer execution for one scene. Stderr holds
// the captured tool output that seeds the next code repair attempt.
type RenderError struct {
	SceneIndex int
	Attempt    int
	Stderr     string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for scene %d (attempt %d): %v", e.SceneIndex, e.Attempt, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// AssemblyError is a failed concatenation of rendered segments. By the
// time assembly runs every scene succeeded individually, so this points
// at an environment or tooling problem and is never retried.
type AssemblyError struct {
	Stderr string
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("video assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
