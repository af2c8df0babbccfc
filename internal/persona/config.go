package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tuningFile is the on-disk shape for persona overrides. Fields absent from
// the file keep the built-in defaults; personas are matched by name. The
// share-of-voice flag is a pointer so an entry that only tunes budgets does
// not silently clear it.
type tuningFile struct {
	Personas []personaOverride `yaml:"personas"`
}

type personaOverride struct {
	Name             string `yaml:"name"`
	ChatInstructions string `yaml:"chat_instructions"`
	GameInstructions string `yaml:"game_instructions"`
	ChatTokens       int    `yaml:"chat_tokens"`
	GameTokens       int    `yaml:"game_tokens"`
	ChatWords        int    `yaml:"chat_words"`
	GameWords        int    `yaml:"game_words"`
	ShareOfVoiceCap  *bool  `yaml:"share_of_voice_cap"`
}

// LoadTuning applies a YAML tuning file on top of the built-in personas.
// Unknown persona names in the file are ignored; the two identities are
// fixed by design.
func LoadTuning(path string) ([]Persona, error) {
	personas := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return personas, fmt.Errorf("failed to read persona tuning: %w", err)
	}
	var tf tuningFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return personas, fmt.Errorf("failed to parse persona tuning: %w", err)
	}
	for i := range personas {
		for _, o := range tf.Personas {
			if o.Name != personas[i].Name {
				continue
			}
			if o.ChatInstructions != "" {
				personas[i].ChatInstructions = o.ChatInstructions
			}
			if o.GameInstructions != "" {
				personas[i].GameInstructions = o.GameInstructions
			}
			if o.ChatTokens > 0 {
				personas[i].ChatTokens = o.ChatTokens
			}
			if o.GameTokens > 0 {
				personas[i].GameTokens = o.GameTokens
			}
			if o.ChatWords > 0 {
				personas[i].ChatWords = o.ChatWords
			}
			if o.GameWords > 0 {
				personas[i].GameWords = o.GameWords
			}
			if o.ShareOfVoiceCap != nil {
				personas[i].ShareOfVoiceCap = *o.ShareOfVoiceCap
			}
		}
	}
	return personas, nil
}
