package codegen

import "encoding/json"

const scenePromptTemplate = `You are an expert in building educational animations with the Manim library.
Generate Manim Python code for a video that explains the topic below, driven by the system design JSON.

Topic: %s

System design JSON:
%s

The video has %d scene(s). For each scene, produce one complete, self-contained Python program:
- A single class inheriting from Scene, named Scene_%%02d_<ShortName> where %%02d is the scene number.
- Include the standard imports (from manim import *, import numpy as np) in every program.
- Add the narration audio at the start of construct() with self.add_sound("<audio path>") using the exact
  path given for that scene, and make the scene last at least the audio duration in seconds with wait() calls.
- Keep visuals minimal: built-in shapes and Text() only, no image files, readable sizes, clean spacing.
- Sync animation timing loosely with the narration and add short pauses between elements.

Scenes:
%s

Return one code entry per scene, in scene order.`

const repairPrompt = `You generated Python Manim code for an animated educational video, but it failed to render.
Identify the source of the error, then output a fixed version of the code.
Change only what is needed to fix the failure; keep working code and any referenced
file paths (such as the audio file path) exactly as they are.

Return ONLY the Python Manim code, ready to execute. Do not wrap it in markdown fences
and do not output any other text.

Your previous code:
%s

Error message:
%s`

// videoCodeSchema constrains the structured multi-scene code completion.
var videoCodeSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["scenes"],
  "properties": {
    "scenes": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["code"],
        "properties": {
          "code": {"type": "string"}
        }
      }
    }
  }
}`)
