package planner

import "encoding/json"

const designSystemPrompt = `You are a systems architect who explains technical topics through clean component diagrams.
Break the topic below into a system design: a list of components and the relationships between them.
Each component needs an "id", a short "name" and a one-sentence "description".
Each relationship connects two existing component ids ("source", "target"), carries a short "label",
and a "direction" that is either "forward" for a one-way connection or "bidirectional" for a two-way connection.
Use 3-8 components. Keep names short enough to fit inside a diagram box.

Topic: %s`

const scriptSystemPrompt = `You are an educational video writer. Write the voiceover for a short explainer video
about the topic the user asks about. Split the narration into an ordered list of scenes; each scene has a short
"name" and a conversational "script" of 2-4 sentences. Start with a hook, build concepts progressively and end
with a practical takeaway. Use 1-4 scenes depending on topic complexity.`

// designSchema constrains the structured design completion.
var designSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["components", "relationships"],
  "properties": {
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["id", "name", "description"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["source", "target", "label", "direction"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "label": {"type": "string"},
          "direction": {"type": "string", "enum": ["forward", "bidirectional"]}
        }
      }
    }
  }
}`)

// scriptSchema constrains the structured narration completion.
var scriptSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["scenes"],
  "properties": {
    "scenes": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "script"],
        "properties": {
          "name": {"type": "string"},
          "script": {"type": "string"}
        }
      }
    }
  }
}`)
