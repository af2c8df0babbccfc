// Package trigger decides when the AI personas speak. It is the only writer
// of persona turns: every reply passes through its eligibility gates, its
// per-room round lock, and its acceptance normalization before reaching
// history or the wire.
package trigger

import (
	"context"
	"strings"
	"time"

	"squadchat/internal/logging"
	"squadchat/internal/persona"
	"squadchat/internal/provider"
	"squadchat/internal/room"
	"squadchat/internal/sanitize"
)

// MaxChain is the hard ceiling on AI-to-AI chaining: a round caused by a
// persona reply never causes another chained round.
const MaxChain = 1

// Config tunes the engine's timing. Zero values take the defaults.
type Config struct {
	// SettleChat / SettleGame delay evaluation after the provoking event so
	// rapid-fire messages coalesce into one round.
	SettleChat time.Duration
	SettleGame time.Duration

	// RoundWait bounds how long an invocation waits for the room's round
	// slot. On timeout the invocation is dropped, never queued.
	RoundWait time.Duration

	// Pacing is the pause between persona evaluations within one round.
	Pacing time.Duration

	// PersonaMinInterval is the per-persona floor between successful replies
	// in one room. GlobalCooldown is the any-persona floor.
	PersonaMinInterval time.Duration
	GlobalCooldown     time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettleChat <= 0 {
		c.SettleChat = 1500 * time.Millisecond
	}
	if c.SettleGame <= 0 {
		c.SettleGame = 2 * time.Second
	}
	if c.RoundWait <= 0 {
		c.RoundWait = 3 * time.Second
	}
	if c.Pacing <= 0 {
		c.Pacing = 1500 * time.Millisecond
	}
	if c.PersonaMinInterval <= 0 {
		c.PersonaMinInterval = 10 * time.Second
	}
	if c.GlobalCooldown <= 0 {
		c.GlobalCooldown = 3 * time.Second
	}
	return c
}

// Notify delivers an accepted persona reply to the room's members. The turn
// is already appended to history when this fires.
type Notify func(roomKey string, t room.Turn)

// Engine evaluates the personas in fixed order against a room's state.
type Engine struct {
	cfg        Config
	personas   []persona.Persona
	completers map[string]provider.Completer
	notify     Notify

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an engine. completers maps persona name to its backend; a
// persona with no entry (or an unconfigured one) is silently skipped.
func New(cfg Config, personas []persona.Persona, completers map[string]provider.Completer, notify Notify) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		personas:   personas,
		completers: completers,
		notify:     notify,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Trigger runs rounds for the room as a bounded loop: acquire the round
// slot, settle, evaluate each persona in order, release, then loop into at
// most one chained round. chainDepth is 0 for human/game-provoked rounds and
// increments per chained round.
//
// The slot is claimed before the settle delay, so a burst of invocations
// coalesces into the in-flight round: the others time out on the slot and
// drop instead of lining up behind it.
//
// Callers run Trigger on its own goroutine; it blocks for the settle delay
// and the provider calls.
func (e *Engine) Trigger(ctx context.Context, r *room.Room, chainDepth int, isGameEvent bool) {
	settle := e.cfg.SettleChat
	if isGameEvent {
		settle = e.cfg.SettleGame
	}

	for depth := chainDepth; depth <= MaxChain; depth++ {
		if !r.TryAcquireRound(e.cfg.RoundWait) {
			logging.Debug("trigger", "room %s: round slot busy, dropping invocation", r.Key)
			return
		}
		e.sleep(ctx, settle)
		if ctx.Err() != nil {
			r.ReleaseRound()
			return
		}
		spoke := e.runRound(ctx, r, isGameEvent, depth > 0)
		r.ReleaseRound()

		// A persona reply can provoke at most one more chat round. Game
		// rounds never chain: commentary must not feed commentary.
		if !spoke || isGameEvent {
			return
		}
	}
}

// runRound evaluates every persona once, in order. Returns whether any
// persona spoke. Caller holds the round slot.
//
// The global cooldown is checked against the timestamp captured here, so a
// reply accepted earlier in this same round does not gate the next persona:
// the cooldown staggers rounds, not siblings within one. Chained rounds are
// exempt from it entirely, since their whole purpose is an AI-to-AI reply.
func (e *Engine) runRound(ctx context.Context, r *room.Room, isGameEvent, chained bool) bool {
	var anyAt time.Time
	if !chained {
		anyAt = r.AnyBotSpokeAt()
	}
	spoke := false
	for i, p := range e.personas {
		if i > 0 {
			e.sleep(ctx, e.cfg.Pacing)
		}
		if ctx.Err() != nil {
			return spoke
		}
		if e.evaluate(ctx, r, p, isGameEvent, anyAt) {
			spoke = true
		}
	}
	return spoke
}

// evaluate runs the eligibility gates for one persona and, if it passes,
// invokes its backend and accepts or discards the reply.
func (e *Engine) evaluate(ctx context.Context, r *room.Room, p persona.Persona, isGameEvent bool, anyAt time.Time) bool {
	c, ok := e.completers[p.Name]
	if !ok || !c.Configured() {
		return false
	}
	if reason := e.ineligible(r, p, anyAt); reason != "" {
		logging.Debug("trigger", "room %s: %s skipped (%s)", r.Key, p.Name, reason)
		return false
	}

	system := p.Instructions(isGameEvent)
	if gc := sanitize.GameContext(r); gc != "" {
		system += "\nCurrent game state: " + gc
	}
	transcript := sanitize.Transcript(r)

	reply, err := c.Complete(ctx, system, transcript, p.Name, p.MaxTokens(isGameEvent))
	if err != nil {
		logging.Debug("trigger", "room %s: %s completion failed: %v", r.Key, p.Name, err)
		return false
	}
	if provider.IsAbstain(reply) {
		logging.Debug("trigger", "room %s: %s abstained", r.Key, p.Name)
		return false
	}

	reply = Normalize(reply, p.Name, p.MaxWords(isGameEvent))
	if reply == "" {
		return false
	}

	r.Append(p.Name, reply)
	r.MarkSpoke(p.Name, e.now())
	logging.Info("trigger", "room %s: %s spoke (%s)", r.Key, p.Name, logging.Truncate(reply, 60))
	if e.notify != nil {
		e.notify(r.Key, room.Turn{Sender: p.Name, Body: reply})
	}
	return true
}

// ineligible returns a non-empty skip reason when the persona must not speak
// this round. anyAt is the any-persona timestamp captured at round entry.
func (e *Engine) ineligible(r *room.Room, p persona.Persona, anyAt time.Time) string {
	last := r.LastSenders(3)

	// Never reply to yourself, and never extend your own monologue.
	if len(last) > 0 && last[len(last)-1] == p.Name {
		return "own message is latest"
	}
	if len(last) >= 2 && last[len(last)-1] == p.Name && last[len(last)-2] == p.Name {
		return "spoke twice in a row"
	}
	// Share-of-voice cap for flagged personas: abstain when AI voices
	// already dominate the recent window.
	if p.ShareOfVoiceCap {
		ai := 0
		for _, s := range last {
			if persona.IsPersona(e.personas, s) {
				ai++
			}
		}
		if ai >= 2 {
			return "share-of-voice cap"
		}
	}

	now := e.now()
	if at, ok := r.LastSpoke(p.Name); ok && now.Sub(at) < e.cfg.PersonaMinInterval {
		return "persona throttle"
	}
	if !anyAt.IsZero() && now.Sub(anyAt) < e.cfg.GlobalCooldown {
		return "global cooldown"
	}
	return ""
}

// Normalize strips a leaked self-name prefix and truncates the reply to the
// word budget, appending an ellipsis on overflow.
func Normalize(reply, selfName string, maxWords int) string {
	reply = strings.TrimSpace(reply)
	prefix := strings.ToLower(selfName) + ":"
	if strings.HasPrefix(strings.ToLower(reply), prefix) {
		reply = strings.TrimSpace(reply[len(prefix):])
	}
	if maxWords > 0 {
		words := strings.Fields(reply)
		if len(words) > maxWords {
			reply = strings.Join(words[:maxWords], " ") + "…"
		}
	}
	return reply
}
