package classify

import (
	"encoding/json"
	"strings"

	"squadchat/internal/room"
)

// EventType discriminates the decoded inbound message variants.
type EventType int

const (
	// PlainChat is ordinary human text (including malformed game payloads,
	// which fall back here rather than erroring).
	PlainChat EventType = iota
	// GameUpdate is a structured game payload recognized by prefix.
	GameUpdate
	// ImageUpload takes priority over text content when an image payload
	// is present.
	ImageUpload
)

// Event is the result of classifying one inbound message. Decoded once at
// the transport boundary; downstream components consume the fields and
// never re-parse the raw body.
type Event struct {
	Type     EventType
	Sender   string
	Body     string
	Snapshot *room.GameSnapshot // set for GameUpdate only
	Notable  bool               // GameUpdate worth an unsolicited AI reaction
	// Malformed is set when the body carried a game prefix but its payload
	// did not parse. The message is still relayed verbatim for client sync
	// but must never reach a persona transcript.
	Malformed bool
}

// gamePrefixes maps the wire prefix convention to a game kind.
var gamePrefixes = []struct {
	prefix string
	kind   room.GameKind
}{
	{"__LUDO__:", room.KindLudo},
	{"__CHESS__:", room.KindChess},
	{"__SCRIBBLE__:", room.KindScribble},
}

// gamePayload is the JSON shape carried after a game prefix. Only the
// fields below are read structurally; everything else is opaque.
type gamePayload struct {
	Event   string `json:"event"`
	Winner  string `json:"winner"`
	Turn    string `json:"turn"`
	Summary string `json:"summary"`
}

// Classifier maps raw inbound messages to semantic events. Pure and total;
// it holds only keyword data, no mutable state.
type Classifier struct {
	keywords Keywords
}

// New creates a classifier with the default notable-keyword sets.
func New() *Classifier {
	return &Classifier{keywords: DefaultKeywords()}
}

// NewWithKeywords creates a classifier with custom keyword sets (e.g.
// loaded from a tuning file).
func NewWithKeywords(kw Keywords) *Classifier {
	return &Classifier{keywords: kw}
}

// Classify decodes one inbound message. hasImage forces ImageUpload
// regardless of the text content.
func (c *Classifier) Classify(sender, body string, hasImage bool) Event {
	if hasImage {
		return Event{Type: ImageUpload, Sender: sender, Body: body}
	}

	for _, gp := range gamePrefixes {
		if !strings.HasPrefix(body, gp.prefix) {
			continue
		}
		var payload gamePayload
		if err := json.Unmarshal([]byte(body[len(gp.prefix):]), &payload); err != nil {
			// Malformed game payload: relay verbatim, keep out of transcripts.
			return Event{Type: PlainChat, Sender: sender, Body: body, Malformed: true}
		}
		snap := &room.GameSnapshot{
			Kind:      gp.kind,
			EventTag:  payload.Event,
			Winner:    payload.Winner,
			TurnOwner: payload.Turn,
			Summary:   payload.Summary,
		}
		return Event{
			Type:     GameUpdate,
			Sender:   sender,
			Body:     body,
			Snapshot: snap,
			Notable:  c.notable(snap),
		}
	}

	return Event{Type: PlainChat, Sender: sender, Body: body}
}

// IsGameMessage reports whether a body carries one of the game prefixes,
// without decoding it. Used by the transcript replay path.
func IsGameMessage(body string) bool {
	for _, gp := range gamePrefixes {
		if strings.HasPrefix(body, gp.prefix) {
			return true
		}
	}
	return false
}

// notable reports whether a game update warrants an unsolicited AI
// reaction: a winner always does, otherwise the case-folded event tag must
// contain one of the kind's keywords.
func (c *Classifier) notable(s *room.GameSnapshot) bool {
	if s.Winner != "" {
		return true
	}
	tag := strings.ToLower(s.EventTag)
	for _, kw := range c.keywords.For(s.Kind) {
		if strings.Contains(tag, kw) {
			return true
		}
	}
	return false
}
