package room

import (
	"sync"
	"time"
)

const (
	// DefaultMaxHistory is the per-room history bound. Large enough for
	// model context, small enough to bound cost and latency.
	DefaultMaxHistory = 12
)

// SystemSender is the sender name used for room-management notices
// (join/leave). System turns are relayed to humans like any other turn.
const SystemSender = "System"

// Turn is a single line of room history. Immutable once appended.
type Turn struct {
	Sender string `json:"sender"`
	Body   string `json:"message"`
}

// GameKind identifies which board game produced an event.
type GameKind string

const (
	KindLudo     GameKind = "ludo"
	KindChess    GameKind = "chess"
	KindScribble GameKind = "scribble"
)

// GameSnapshot is the most recently seen game event summary for a room.
// Overwritten on every game update, never merged.
type GameSnapshot struct {
	Kind      GameKind
	EventTag  string
	Winner    string
	TurnOwner string
	Summary   string
}

// Room holds the mutable per-room state: bounded history, the last game
// snapshot, and per-persona throttle timestamps.
//
// Two writers exist: the inbound-message handler (Append, SetSnapshot) and
// the trigger engine while holding the round lock (Append, MarkSpoke). The
// state mutex protects the data; the round lock (TryAcquireRound) serializes
// whole trigger rounds and is a separate, coarser scope.
type Room struct {
	Key string

	mu             sync.Mutex
	history        []Turn
	maxHistory     int
	snapshot       *GameSnapshot
	botLastSpokeAt map[string]time.Time
	anyBotSpokeAt  time.Time

	round chan struct{} // capacity 1; held = a trigger round is in flight
}

// New creates an empty room with the default history bound.
func New(key string) *Room {
	return NewWithBound(key, DefaultMaxHistory)
}

// NewWithBound creates an empty room with a custom history bound.
func NewWithBound(key string, maxHistory int) *Room {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Room{
		Key:            key,
		maxHistory:     maxHistory,
		botLastSpokeAt: make(map[string]time.Time),
		round:          make(chan struct{}, 1),
	}
}

// Append adds a turn to history, evicting oldest-first past the bound.
func (r *Room) Append(sender, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, Turn{Sender: sender, Body: body})
	if len(r.history) > r.maxHistory {
		r.history = r.history[len(r.history)-r.maxHistory:]
	}
}

// History returns a copy of the current history, oldest first.
func (r *Room) History() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Turn, len(r.history))
	copy(out, r.history)
	return out
}

// LastSenders returns the senders of up to the last n turns, oldest first.
func (r *Room) LastSenders(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := len(r.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(r.history)-start)
	for _, t := range r.history[start:] {
		out = append(out, t.Sender)
	}
	return out
}

// SetSnapshot replaces the room's last game snapshot.
func (r *Room) SetSnapshot(s GameSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = &s
}

// Snapshot returns the last game snapshot, or nil if no game update has
// been seen.
func (r *Room) Snapshot() *GameSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return nil
	}
	s := *r.snapshot
	return &s
}

// MarkSpoke records a successful persona reply for throttling. Called only
// on SPOKE, never on ABSTAIN.
func (r *Room) MarkSpoke(persona string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.botLastSpokeAt[persona] = at
	r.anyBotSpokeAt = at
}

// LastSpoke returns when the persona last successfully replied in this room.
func (r *Room) LastSpoke(persona string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.botLastSpokeAt[persona]
	return t, ok
}

// AnyBotSpokeAt returns the most recent successful reply time across all
// personas in this room.
func (r *Room) AnyBotSpokeAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anyBotSpokeAt
}

// TryAcquireRound attempts to claim the room's trigger-round slot, waiting
// at most wait. At most one round is in flight per room; callers that miss
// the window drop their invocation rather than queue behind it.
func (r *Room) TryAcquireRound(wait time.Duration) bool {
	select {
	case r.round <- struct{}{}:
		return true
	default:
	}
	if wait <= 0 {
		return false
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case r.round <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// ReleaseRound releases the trigger-round slot.
func (r *Room) ReleaseRound() {
	select {
	case <-r.round:
	default:
	}
}
