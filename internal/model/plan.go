package model

import "fmt"

// Direction of a relationship between two system components.
type Direction string

const (
	DirectionForward       Direction = "forward"
	DirectionBidirectional Direction = "bidirectional"
)

// Component is one node in a system design breakdown
type Component struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Relationship is an edge between two components
type Relationship struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Label     string    `json:"label"`
	Direction Direction `json:"direction"`
}

// SystemDesign is the structured breakdown of a topic into components
// and their relationships. Produced once per job and immutable after.
type SystemDesign struct {
	Components    []Component    `json:"components"`
	Relationships []Relationship `json:"relationships"`
}

// Validate checks structural integrity of a parsed design: component ids
// must be unique and non-empty, relationships must reference known ids
// and carry a valid direction.
func (d *SystemDesign) Validate() error {
	if len(d.Components) == 0 {
		return fmt.Errorf("design has no components")
	}
	seen := make(map[string]bool, len(d.Components))
	for _, comp := range d.Components {
		if comp.ID == "" {
			return fmt.Errorf("component %q has empty id", comp.Name)
		}
		if seen[comp.ID] {
			return fmt.Errorf("duplicate component id %q", comp.ID)
		}
		seen[comp.ID] = true
	}
	for i, rel := range d.Relationships {
		if !seen[rel.Source] {
			return fmt.Errorf("relationship %d references unknown source %q", i, rel.Source)
		}
		if !seen[rel.Target] {
			return fmt.Errorf("relationship %d references unknown target %q", i, rel.Target)
		}
		if rel.Direction != DirectionForward && rel.Direction != DirectionBidirectional {
			return fmt.Errorf("relationship %d has invalid direction %q", i, rel.Direction)
		}
	}
	return nil
}

// NarrationScene is one narration segment of the video
type NarrationScene struct {
	Name   string `json:"name"`
	Script string `json:"script"`
}

// NarrationScript is the ordered scene outline for the voiceover
type NarrationScript struct {
	Scenes []NarrationScene `json:"scenes"`
}

// AudioArtifact is a synthesized narration track for one scene
type AudioArtifact struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
}

// SceneCode is generated renderer source for one scene. Index ties the
// code to its narration scene and drives final assembly order.
type SceneCode struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
}

// RenderedSegment is a successfully rendered per-scene video file
type RenderedSegment struct {
	Path       string `json:"path"`
	SceneIndex int    `json:"sceneIndex"`
}
