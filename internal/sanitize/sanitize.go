// Package sanitize projects raw room history into a model-ready transcript.
//
// Personas must never see raw structured game payloads: a turn carrying a
// recognized game prefix is replaced by a short human-readable gloss, and a
// turn that claims to be structured but fails to parse is dropped entirely.
package sanitize

import (
	"encoding/json"
	"fmt"
	"strings"

	"squadchat/internal/room"
)

var prefixKinds = map[string]room.GameKind{
	"__LUDO__:":     room.KindLudo,
	"__CHESS__:":    room.KindChess,
	"__SCRIBBLE__:": room.KindScribble,
}

type payloadTag struct {
	Event string `json:"event"`
}

// Transcript returns the room history with game-payload turns replaced by
// their one-line gloss, preserving sender and order. Pure given the room's
// current state.
func Transcript(r *room.Room) []room.Turn {
	history := r.History()
	out := make([]room.Turn, 0, len(history))
	for _, t := range history {
		gloss, drop := glossTurn(t.Body)
		if drop {
			continue
		}
		if gloss != "" {
			out = append(out, room.Turn{Sender: t.Sender, Body: gloss})
			continue
		}
		out = append(out, t)
	}
	return out
}

// glossTurn returns a synthetic body for game-payload turns. drop is true
// when the body claims a structured type but does not parse as it.
func glossTurn(body string) (gloss string, drop bool) {
	for prefix, kind := range prefixKinds {
		if !strings.HasPrefix(body, prefix) {
			continue
		}
		var tag payloadTag
		if err := json.Unmarshal([]byte(body[len(prefix):]), &tag); err != nil {
			return "", true
		}
		event := tag.Event
		if event == "" {
			event = "update"
		}
		return fmt.Sprintf("[%s update: %s]", strings.ToUpper(string(kind)), event), false
	}
	return "", false
}

// GameContext synthesizes the single board-state sentence appended to a
// persona's system instructions. Returns "" when the room has seen no game
// update. This is the only game-context injection point; history is never
// spliced.
func GameContext(r *room.Room) string {
	snap := r.Snapshot()
	if snap == nil {
		return ""
	}
	kind := strings.ToUpper(string(snap.Kind))
	if snap.Winner != "" {
		return fmt.Sprintf("[%s: %s WON!]", kind, snap.Winner)
	}
	return fmt.Sprintf("[%s | Last: %s | Turn: %s]", kind, snap.EventTag, snap.TurnOwner)
}
