package scribble

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"squadchat/internal/logging"
	"squadchat/internal/provider"
	"squadchat/internal/room"
)

// Prefix marks a scribble event payload on the wire.
const Prefix = "__SCRIBBLE__:"

// Notify delivers a scribble event message authored by sender to the room.
type Notify func(roomKey, sender, body string)

// Event encodes a scribble payload as its wire body.
func Event(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return Prefix + "{}"
	}
	return Prefix + string(data)
}

// Director runs the AI side of a scribble round: guessing at canvas
// snapshots and taking drawing turns.
type Director struct {
	gen      *Generator
	vision   provider.Describer
	leader   string
	reactive string
	notify   Notify

	rand  *rand.Rand
	sleep func(ctx context.Context, d time.Duration)
}

// NewDirector wires the AI round participants. leader and reactive are the
// persona names guesses and drawings are attributed to.
func NewDirector(gen *Generator, vision provider.Describer, leader, reactive string, notify Notify) *Director {
	return &Director{
		gen:      gen,
		vision:   vision,
		leader:   leader,
		reactive: reactive,
		notify:   notify,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
			}
		},
	}
}

// GuessRound has both personas guess at a canvas snapshot, leader first.
// The second guess is paced a few seconds behind and suppressed when it
// duplicates the first. Blocks; callers run it on its own goroutine.
func (d *Director) GuessRound(ctx context.Context, roomKey, canvasImage, hint string, wordLength int) {
	first := d.vision.Guess(ctx, canvasImage, hint, wordLength, false)
	if first != "" {
		d.emitGuess(roomKey, d.leader, first)
	}

	d.sleep(ctx, time.Duration(2500+d.rand.Intn(2000))*time.Millisecond)
	if ctx.Err() != nil {
		return
	}

	second := d.vision.Guess(ctx, canvasImage, hint, wordLength, true)
	if second != "" && second != first {
		d.emitGuess(roomKey, d.reactive, second)
	}
}

func (d *Director) emitGuess(roomKey, guesser, guess string) {
	logging.Debug("scribble", "%s guesses %q", guesser, guess)
	d.notify(roomKey, guesser, Event(map[string]any{
		"event":   "ai_guess",
		"guesser": guesser,
		"guess":   guess,
	}))
}

// DrawTurn runs one AI drawing turn: picks a word, records it on the room's
// game snapshot, and broadcasts the animated drawing with its clues. drawer
// is the frontend persona slot ("groq" or "router").
func (d *Director) DrawTurn(ctx context.Context, r *room.Room, drawer string) {
	word := d.gen.PickWord()
	name := d.leader
	if drawer != "groq" {
		name = d.reactive
	}

	r.SetSnapshot(room.GameSnapshot{
		Kind:      room.KindScribble,
		EventTag:  "ai_draw_start",
		TurnOwner: name,
		Summary:   word,
	})

	clues := Clues(word)
	strokes, source := d.gen.Generate(ctx, word)
	logging.Info("scribble", "drawing %q via %s: %d commands", word, source, len(strokes))

	d.notify(r.Key, name, Event(map[string]any{
		"event":   "ai_draw_start",
		"word":    word,
		"clues":   clues,
		"strokes": strokes,
		"drawer":  drawer,
		"source":  source,
	}))
}
