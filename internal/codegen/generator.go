// Package codegen produces renderer source code for video scenes,
// including self-correcting regeneration seeded with a failed attempt
// and its renderer error.
package codegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teacherflow/api/internal/model"
)

// TextGenerator is the slice of the LLM client the generator needs.
type TextGenerator interface {
	ChatCompletion(ctx context.Context, system, user string) (string, error)
	StructuredCompletion(ctx context.Context, system, user, schemaName string, schema json.RawMessage, out interface{}) error
	IsConfigured() bool
}

// ScenePrompt carries the per-scene context baked into the generation
// prompt: the narration and where its audio lives.
type ScenePrompt struct {
	Index         int
	Name          string
	Script        string
	AudioPath     string
	AudioDuration float64
}

// GenerateParams is the input for a full multi-scene generation pass.
type GenerateParams struct {
	Query      string
	DesignJSON string
	Scenes     []ScenePrompt
}

type videoCode struct {
	Scenes []struct {
		Code string `json:"code"`
	} `json:"scenes"`
}

// Generator calls the text-generation capability for renderer code.
type Generator struct {
	ai TextGenerator
}

func New(ai TextGenerator) *Generator {
	return &Generator{ai: ai}
}

// Generate produces one program per scene, tagged with the scene index.
func (g *Generator) Generate(ctx context.Context, params GenerateParams) ([]model.SceneCode, error) {
	if !g.ai.IsConfigured() {
		return nil, &model.GenerationError{Stage: "code", Err: fmt.Errorf("text generation client not configured")}
	}

	var sceneLines strings.Builder
	for _, sc := range params.Scenes {
		fmt.Fprintf(&sceneLines, "Scene %d (%s):\n  narration: %s\n  audio path: %s\n  audio duration: %.1f seconds\n",
			sc.Index+1, sc.Name, sc.Script, sc.AudioPath, sc.AudioDuration)
	}

	prompt := fmt.Sprintf(scenePromptTemplate, params.Query, params.DesignJSON, len(params.Scenes), sceneLines.String())

	var out videoCode
	if err := g.ai.StructuredCompletion(ctx, "", prompt, "video_code", videoCodeSchema, &out); err != nil {
		return nil, &model.GenerationError{Stage: "code", Err: err}
	}

	if len(out.Scenes) != len(params.Scenes) {
		return nil, &model.GenerationError{
			Stage: "code",
			Err:   fmt.Errorf("expected %d scene programs, got %d", len(params.Scenes), len(out.Scenes)),
		}
	}

	codes := make([]model.SceneCode, len(out.Scenes))
	for i, sc := range out.Scenes {
		src := stripFences(sc.Code)
		if src == "" {
			return nil, &model.GenerationError{Stage: "code", Err: fmt.Errorf("scene %d program is empty", i+1)}
		}
		codes[i] = model.SceneCode{Index: params.Scenes[i].Index, Source: src}
	}

	return codes, nil
}

// Repair regenerates a single failing scene program, round-tripping the
// renderer's error output into the prompt so the model can fix only the
// broken portion while preserving working code verbatim.
func (g *Generator) Repair(ctx context.Context, previousCode, previousError string) (string, error) {
	if !g.ai.IsConfigured() {
		return "", &model.GenerationError{Stage: "code", Err: fmt.Errorf("text generation client not configured")}
	}

	prompt := fmt.Sprintf(repairPrompt, previousCode, previousError)
	content, err := g.ai.ChatCompletion(ctx, "", prompt)
	if err != nil {
		return "", &model.GenerationError{Stage: "code", Err: err}
	}

	src := stripFences(content)
	if src == "" {
		return "", &model.GenerationError{Stage: "code", Err: fmt.Errorf("repair returned empty program")}
	}
	return src, nil
}

// stripFences removes a surrounding markdown code fence if the model
// added one despite instructions.
func stripFences(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "```") {
		return code
	}
	code = strings.TrimPrefix(code, "```python")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(strings.TrimSpace(code), "```")
	return strings.TrimSpace(code)
}
