package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"squadchat/internal/room"
)

// Keywords holds the per-game notable-event keyword sets. Keyword sets are
// data, not logic: operators can replace them wholesale from a YAML file.
type Keywords struct {
	Ludo     []string `yaml:"ludo"`
	Chess    []string `yaml:"chess"`
	Scribble []string `yaml:"scribble"`
}

// DefaultKeywords returns the built-in notable-event keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Ludo:     []string{"captured", "cut", "rolled 6", "goal", "home", "won", "wins", "started", "six"},
		Chess:    []string{"check", "checkmate", "stalemate", "capture", "castle", "promot", "won", "wins"},
		Scribble: []string{"game_start", "round_guessed", "game_over", "won", "wins"},
	}
}

// For returns the keyword set for a game kind.
func (k Keywords) For(kind room.GameKind) []string {
	switch kind {
	case room.KindLudo:
		return k.Ludo
	case room.KindChess:
		return k.Chess
	case room.KindScribble:
		return k.Scribble
	}
	return nil
}

// LoadKeywords reads keyword sets from a YAML file. Game kinds omitted from
// the file keep their defaults.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	data, err := os.ReadFile(path)
	if err != nil {
		return kw, fmt.Errorf("failed to read keywords file: %w", err)
	}
	var loaded Keywords
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return kw, fmt.Errorf("failed to parse keywords file: %w", err)
	}
	if len(loaded.Ludo) > 0 {
		kw.Ludo = loaded.Ludo
	}
	if len(loaded.Chess) > 0 {
		kw.Chess = loaded.Chess
	}
	if len(loaded.Scribble) > 0 {
		kw.Scribble = loaded.Scribble
	}
	return kw, nil
}
