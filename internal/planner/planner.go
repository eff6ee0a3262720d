// Package planner turns a user query into a structured content plan:
// a component/relationship system design and an ordered narration script.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teacherflow/api/internal/model"
)

// StructuredGenerator is the slice of the LLM client the planner needs.
type StructuredGenerator interface {
	StructuredCompletion(ctx context.Context, system, user, schemaName string, schema json.RawMessage, out interface{}) error
	IsConfigured() bool
}

// Planner produces content plans. Planning failures are fatal to the
// enclosing job: there is no previous attempt to repair against, so no
// retry happens at this layer.
type Planner struct {
	ai StructuredGenerator
}

func New(ai StructuredGenerator) *Planner {
	return &Planner{ai: ai}
}

// PlanDesign generates and validates the system design breakdown for a
// query. The raw JSON is returned alongside the parsed design so it can
// be fed verbatim into code generation and the debug archive.
func (p *Planner) PlanDesign(ctx context.Context, query string) (*model.SystemDesign, string, error) {
	if !p.ai.IsConfigured() {
		return nil, "", &model.GenerationError{Stage: "design", Err: fmt.Errorf("text generation client not configured")}
	}

	var design model.SystemDesign
	system := fmt.Sprintf(designSystemPrompt, query)
	if err := p.ai.StructuredCompletion(ctx, system, query, "system_design", designSchema, &design); err != nil {
		return nil, "", &model.GenerationError{Stage: "design", Err: err}
	}

	if err := design.Validate(); err != nil {
		return nil, "", &model.GenerationError{Stage: "design", Err: err}
	}

	raw, err := json.MarshalIndent(&design, "", "  ")
	if err != nil {
		return nil, "", &model.GenerationError{Stage: "design", Err: err}
	}

	return &design, string(raw), nil
}

// PlanScript generates the ordered narration scenes for a query.
func (p *Planner) PlanScript(ctx context.Context, query string) (*model.NarrationScript, error) {
	if !p.ai.IsConfigured() {
		return nil, &model.GenerationError{Stage: "script", Err: fmt.Errorf("text generation client not configured")}
	}

	var script model.NarrationScript
	if err := p.ai.StructuredCompletion(ctx, scriptSystemPrompt, query, "narration_script", scriptSchema, &script); err != nil {
		return nil, &model.GenerationError{Stage: "script", Err: err}
	}

	if len(script.Scenes) == 0 {
		return nil, &model.GenerationError{Stage: "script", Err: fmt.Errorf("narration script has no scenes")}
	}
	for i, scene := range script.Scenes {
		if scene.Script == "" {
			return nil, &model.GenerationError{Stage: "script", Err: fmt.Errorf("scene %d has empty script", i+1)}
		}
	}

	return &script, nil
}
