// Package llmschema holds the response schema shared by the mood analyzer
// adapters.
package llmschema

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Name identifies the schema in structured-output requests.
const Name = "vibe_analysis"

// Analysis returns the JSON schema every analyzer reply must follow. All
// objects are closed and every property is required.
func Analysis() jsonschema.Definition {
	score := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.Number, Description: desc + " (0-100)"}
	}
	text := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.String, Description: desc}
	}

	song := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title":  text("Song title"),
			"artist": text("Artist name"),
			"genre":  text("Musical genre"),
			"reason": text("Why this fits the mood"),
		},
		Required:             []string{"title", "artist", "genre", "reason"},
		AdditionalProperties: false,
	}

	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"detectedEmotion":  text("The primary emotion detected (e.g., Joyful, Melancholic, Focused, Chill)"),
			"emoji":            text("A single emoji representing the mood"),
			"confidence":       score("Confidence score"),
			"shortDescription": text("A poetic 1-sentence description of the current vibe"),
			"vibeMetrics": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"energy":       score("Energy level"),
					"valence":      score("Positivity/Happiness"),
					"danceability": score("How suitable for dancing"),
					"calmness":     score("How relaxing"),
					"intensity":    score("Emotional intensity"),
				},
				Required:             []string{"energy", "valence", "danceability", "calmness", "intensity"},
				AdditionalProperties: false,
			},
			"playlist": {
				Type:        jsonschema.Array,
				Description: "15 to 20 songs matching the mood",
				Items:       &song,
			},
		},
		Required:             []string{"detectedEmotion", "emoji", "confidence", "shortDescription", "vibeMetrics", "playlist"},
		AdditionalProperties: false,
	}
}
