// Package provider wraps the external completion and vision services behind
// small interfaces. Every failure mode — missing credential, non-2xx,
// timeout, malformed response — degrades to an abstain, never to an error
// surfaced to room members.
package provider

import (
	"context"
	"strings"

	"squadchat/internal/room"
)

// AbstainToken is the literal a model outputs when it has nothing to add.
const AbstainToken = "SKIP"

// Completer produces a reply for a persona, or abstains.
type Completer interface {
	// Complete returns the model's reply text. Callers treat any error,
	// and any reply matching IsAbstain, as an abstain.
	Complete(ctx context.Context, system string, transcript []room.Turn, selfName string, maxTokens int) (string, error)
	// Configured reports whether the backend has a usable credential.
	// Unconfigured completers are never called.
	Configured() bool
}

// Describer turns an uploaded image into a short text line for the room.
type Describer interface {
	// Describe returns a one-line description such as "[Image: a cat in a
	// hat]". It always returns usable text; on failure it falls back to a
	// generic placeholder.
	Describe(ctx context.Context, imageDataURL string) string
	// Guess returns a single lowercase word guess for a drawing, or ""
	// when the model abstains or the call fails.
	Guess(ctx context.Context, imageDataURL, hint string, wordLength int, terse bool) string
}

// IsAbstain reports whether a reply is the abstain sentinel: the trimmed
// reply starts with the token and is at most 8 characters, so close
// punctuation variants ("SKIP.", "skip!!") count. An empty reply abstains
// too.
func IsAbstain(reply string) bool {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return true
	}
	upper := strings.ToUpper(trimmed)
	return strings.HasPrefix(upper, AbstainToken) && len(trimmed) <= 8
}

// ChatMessage is one entry of an OpenAI-style messages array.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages converts a sanitized transcript into the messages array for
// a persona: its own prior turns become assistant messages, everyone else's
// (humans, the other persona, System notices) become user messages prefixed
// with the sender name.
func BuildMessages(system string, transcript []room.Turn, selfName string) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(transcript)+1)
	msgs = append(msgs, ChatMessage{Role: "system", Content: system})
	for _, t := range transcript {
		if t.Sender == selfName {
			msgs = append(msgs, ChatMessage{Role: "assistant", Content: t.Body})
		} else {
			msgs = append(msgs, ChatMessage{Role: "user", Content: t.Sender + ": " + t.Body})
		}
	}
	return msgs
}
