package trigger

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"squadchat/internal/persona"
	"squadchat/internal/provider"
	"squadchat/internal/room"
)

// scriptedCompleter returns canned replies in order, then abstains.
type scriptedCompleter struct {
	mu         sync.Mutex
	replies    []string
	calls      int
	systems    []string
	seen       [][]room.Turn
	configured bool
}

func script(replies ...string) *scriptedCompleter {
	return &scriptedCompleter{replies: replies, configured: true}
}

func (s *scriptedCompleter) Complete(_ context.Context, system string, transcript []room.Turn, _ string, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.systems = append(s.systems, system)
	copied := make([]room.Turn, len(transcript))
	copy(copied, transcript)
	s.seen = append(s.seen, copied)
	if len(s.replies) == 0 {
		return provider.AbstainToken, nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedCompleter) Configured() bool { return s.configured }

func (s *scriptedCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testHarness struct {
	engine   *Engine
	room     *room.Room
	leader   *scriptedCompleter
	reactive *scriptedCompleter

	mu       sync.Mutex
	notified []room.Turn
	slept    []time.Duration
	clock    time.Time
}

func newHarness(cfg Config, leader, reactive *scriptedCompleter) *testHarness {
	h := &testHarness{
		room:     room.New("lobby"),
		leader:   leader,
		reactive: reactive,
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	personas := persona.Defaults()
	h.engine = New(cfg, personas, map[string]provider.Completer{
		personas[0].Name: leader,
		personas[1].Name: reactive,
	}, func(_ string, t room.Turn) {
		h.mu.Lock()
		h.notified = append(h.notified, t)
		h.mu.Unlock()
	})
	h.engine.now = func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.clock
	}
	h.engine.sleep = func(_ context.Context, d time.Duration) {
		h.mu.Lock()
		h.slept = append(h.slept, d)
		h.mu.Unlock()
	}
	return h
}

func (h *testHarness) advance(d time.Duration) {
	h.mu.Lock()
	h.clock = h.clock.Add(d)
	h.mu.Unlock()
}

func (h *testHarness) notifications() []room.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]room.Turn, len(h.notified))
	copy(out, h.notified)
	return out
}

func TestChatRoundBothPersonasReply(t *testing.T) {
	h := newHarness(Config{}, script("yo what's good"), script("lmaooo"))
	h.room.Append("alice", "anyone alive?")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	history := h.room.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 turns, got %v", history)
	}
	if history[1].Sender != "Groq-AI" || history[2].Sender != "Router-AI" {
		t.Errorf("expected leader-then-reactive order, got %v", history)
	}
	if n := h.notifications(); len(n) != 2 {
		t.Errorf("expected 2 broadcasts, got %d", len(n))
	}
	// The second persona's prompt must include the first persona's reply.
	last := h.reactive.seen[len(h.reactive.seen)-1]
	found := false
	for _, turn := range last {
		if turn.Body == "yo what's good" {
			found = true
		}
	}
	if !found {
		t.Error("reactive persona did not see the leader's fresh reply")
	}
}

func TestPersonaNeverRepliesToItself(t *testing.T) {
	h := newHarness(Config{}, script("again!"), script())
	h.room.Append("alice", "hi")
	h.room.Append("Groq-AI", "yo")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if h.leader.callCount() != 0 {
		t.Error("leader must be skipped when its own message is latest")
	}
	for _, turn := range h.room.History() {
		if turn.Sender == "Groq-AI" && turn.Body == "again!" {
			t.Error("leader replied to itself")
		}
	}
}

func TestGameRoundNeverChains(t *testing.T) {
	h := newHarness(Config{}, script("WHAT A MOVE"), script("BRO GOT COOKED"))
	h.room.Append("alice", `__LUDO__:{"event":"captured","turn":"bob"}`)
	h.room.SetSnapshot(room.GameSnapshot{Kind: room.KindLudo, EventTag: "captured", TurnOwner: "bob"})

	h.engine.Trigger(context.Background(), h.room, 0, true)

	if h.leader.callCount() != 1 || h.reactive.callCount() != 1 {
		t.Errorf("game round should evaluate each persona exactly once, got %d/%d",
			h.leader.callCount(), h.reactive.callCount())
	}
}

func TestGamePayloadsNeverReachPersonas(t *testing.T) {
	h := newHarness(Config{}, script("nice"), script())
	h.room.Append("alice", `__CHESS__:{"event":"check","fen":"rnbqkbnr/..."}`)
	h.room.SetSnapshot(room.GameSnapshot{Kind: room.KindChess, EventTag: "check", TurnOwner: "bob"})

	h.engine.Trigger(context.Background(), h.room, 0, true)

	for _, transcript := range h.leader.seen {
		for _, turn := range transcript {
			if strings.Contains(turn.Body, "__CHESS__") || strings.Contains(turn.Body, "fen") {
				t.Errorf("raw game payload leaked to persona: %q", turn.Body)
			}
		}
	}
}

func TestGameContextInjectedIntoSystemText(t *testing.T) {
	h := newHarness(Config{}, script("GG"), script())
	h.room.Append("alice", "rematch?")
	h.room.SetSnapshot(room.GameSnapshot{Kind: room.KindLudo, Winner: "alice"})

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if len(h.leader.systems) == 0 || !strings.Contains(h.leader.systems[0], "[LUDO: alice WON!]") {
		t.Errorf("expected game context in system text, got %v", h.leader.systems)
	}
}

func TestChainRunsExactlyOnce(t *testing.T) {
	// Leader defers in the main round, then answers the reactive persona
	// in the single chained round.
	h := newHarness(Config{}, script(provider.AbstainToken, "ok that was funny"), script("first!!"))
	h.room.Append("alice", "someone say something")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if h.leader.callCount() != 2 {
		t.Errorf("leader should be evaluated in the main and chained round, got %d calls", h.leader.callCount())
	}
	history := h.room.History()
	if len(history) != 3 || history[2].Body != "ok that was funny" {
		t.Errorf("chained reply missing: %v", history)
	}
}

func TestAbstainKeepsThrottleUntouchedWhileSpeakerIsMarked(t *testing.T) {
	h := newHarness(Config{}, script(provider.AbstainToken), script("yo what's good"))
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if _, ok := h.room.LastSpoke("Groq-AI"); ok {
		t.Error("abstaining persona's throttle timestamp must stay unchanged")
	}
	if _, ok := h.room.LastSpoke("Router-AI"); !ok {
		t.Error("speaking persona's throttle timestamp must be updated")
	}
}

func TestAllPersonasUnconfiguredRoundIsSilent(t *testing.T) {
	leader := script("never")
	leader.configured = false
	reactive := script("never")
	reactive.configured = false
	h := newHarness(Config{}, leader, reactive)
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if len(h.room.History()) != 1 {
		t.Error("unconfigured round must not mutate history")
	}
	if len(h.notifications()) != 0 {
		t.Error("unconfigured round must not broadcast")
	}
	if leader.callCount()+reactive.callCount() != 0 {
		t.Error("unconfigured round must not call any provider")
	}
}

func TestTriggerBeyondChainCeilingIsNoop(t *testing.T) {
	h := newHarness(Config{}, script("hello"), script("hello"))
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, MaxChain+1, false)

	if h.leader.callCount() != 0 || h.reactive.callCount() != 0 {
		t.Error("invocation past the chain ceiling must evaluate nobody")
	}
}

func TestShareOfVoiceCapSilencesReactivePersona(t *testing.T) {
	h := newHarness(Config{}, script(), script("me me me"))
	h.room.Append("alice", "hi")
	h.room.Append("Router-AI", "lol")
	h.room.Append("Groq-AI", "yo")
	// 2 of the last 3 turns are AI-authored, and the human got the last word.
	h.room.Append("alice", "anyway")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if h.reactive.callCount() != 0 {
		t.Error("share-of-voice cap should gate the reactive persona before its backend is called")
	}
}

func TestThrottleBlocksUntilIntervalElapses(t *testing.T) {
	h := newHarness(Config{}, script("one", "two"), script())
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, 0, false)
	if h.leader.callCount() != 1 {
		t.Fatalf("expected one completion, got %d", h.leader.callCount())
	}

	// Immediately after speaking the persona is throttled.
	h.room.Append("alice", "and?")
	h.engine.Trigger(context.Background(), h.room, 0, false)
	if h.leader.callCount() != 1 {
		t.Error("persona throttle should block a reply right after speaking")
	}

	// Past the interval it may speak again.
	h.advance(11 * time.Second)
	h.room.Append("alice", "hello??")
	h.engine.Trigger(context.Background(), h.room, 0, false)
	if h.leader.callCount() != 2 {
		t.Error("persona should be eligible again after the interval")
	}
}

func TestGlobalCooldownStaggersRounds(t *testing.T) {
	h := newHarness(Config{}, script("yo"), script("sup"))
	h.room.Append("alice", "hi")
	h.engine.Trigger(context.Background(), h.room, 0, false)

	// Advance past the reactive persona's own interval, then refresh the
	// any-bot timestamp to within the global cooldown.
	h.advance(11 * time.Second)
	h.room.MarkSpoke("Groq-AI", h.engine.now().Add(-time.Second))
	h.room.Append("alice", "more")
	h.room.Append("alice", "again")
	calls := h.reactive.callCount()
	h.engine.Trigger(context.Background(), h.room, 0, false)
	if h.reactive.callCount() != calls {
		t.Error("global cooldown should block a round right after any persona spoke")
	}
}

func TestAbstainLeavesNoTrace(t *testing.T) {
	h := newHarness(Config{}, script("skip."), script("SKIP"))
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if len(h.room.History()) != 1 {
		t.Errorf("abstains must not be appended: %v", h.room.History())
	}
	if len(h.notifications()) != 0 {
		t.Error("abstains must not be broadcast")
	}
	if _, ok := h.room.LastSpoke("Groq-AI"); ok {
		t.Error("abstains must not update throttle state")
	}
	if h.leader.callCount() != 1 {
		t.Errorf("abstaining round must not chain, got %d leader calls", h.leader.callCount())
	}
}

func TestBusyRoundSlotDropsInvocation(t *testing.T) {
	h := newHarness(Config{RoundWait: time.Millisecond}, script("hello"), script())
	h.room.Append("alice", "hi")

	if !h.room.TryAcquireRound(0) {
		t.Fatal("setup acquire failed")
	}
	defer h.room.ReleaseRound()

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if h.leader.callCount() != 0 {
		t.Error("invocation should be dropped, not queued, while a round is in flight")
	}
	// The slot is claimed before the settle delay, so a dropped invocation
	// never even starts settling.
	if len(h.slept) != 0 {
		t.Errorf("dropped invocation should not settle, slept %v", h.slept)
	}
}

func TestRoundSlotHeldThroughSettle(t *testing.T) {
	h := newHarness(Config{}, script(), script())
	h.room.Append("alice", "hi")

	// Every engine sleep (the settle and the inter-persona pacing) happens
	// with the round slot already claimed.
	h.engine.sleep = func(context.Context, time.Duration) {
		if h.room.TryAcquireRound(0) {
			h.room.ReleaseRound()
			t.Error("round slot free during an engine sleep; it must be claimed before settling")
		}
	}

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if !h.room.TryAcquireRound(0) {
		t.Error("round slot must be released after the round")
	}
	h.room.ReleaseRound()
}

func TestUnconfiguredPersonaIsSkipped(t *testing.T) {
	silent := script("should never appear")
	silent.configured = false
	h := newHarness(Config{}, silent, script("only me"))
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, 0, false)

	if silent.callCount() != 0 {
		t.Error("unconfigured completer must never be called")
	}
	history := h.room.History()
	if len(history) != 2 || history[1].Sender != "Router-AI" {
		t.Errorf("configured persona should still reply: %v", history)
	}
}

func TestSettleDelayPerEventKind(t *testing.T) {
	h := newHarness(Config{}, script(), script())
	h.room.Append("alice", "hi")

	h.engine.Trigger(context.Background(), h.room, 0, true)
	if len(h.slept) == 0 || h.slept[0] != 2*time.Second {
		t.Errorf("game rounds should settle for 2s, got %v", h.slept)
	}

	h.slept = nil
	h.engine.Trigger(context.Background(), h.room, 0, false)
	if len(h.slept) == 0 || h.slept[0] != 1500*time.Millisecond {
		t.Errorf("chat rounds should settle for 1.5s, got %v", h.slept)
	}
}

// exclusiveCompleter fails the test if two completions are ever in flight
// at once, proving persona-evaluation phases of overlapping rounds on the
// same room never interleave.
type exclusiveCompleter struct {
	t    *testing.T
	busy int32
}

func (e *exclusiveCompleter) Complete(context.Context, string, []room.Turn, string, int) (string, error) {
	if !atomic.CompareAndSwapInt32(&e.busy, 0, 1) {
		e.t.Error("persona evaluations interleaved across rounds")
	}
	time.Sleep(10 * time.Millisecond)
	atomic.StoreInt32(&e.busy, 0)
	return provider.AbstainToken, nil
}

func (e *exclusiveCompleter) Configured() bool { return true }

func TestOverlappingRoundsDoNotInterleave(t *testing.T) {
	excl := &exclusiveCompleter{t: t}
	personas := persona.Defaults()
	e := New(Config{RoundWait: 2 * time.Second}, personas, map[string]provider.Completer{
		personas[0].Name: excl,
		personas[1].Name: excl,
	}, nil)
	e.sleep = func(context.Context, time.Duration) {}

	r := room.New("lobby")
	r.Append("alice", "hi")
	r.SetSnapshot(room.GameSnapshot{Kind: room.KindLudo, Winner: "alice"})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		isGame := i == 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Trigger(context.Background(), r, 0, isGame)
		}()
	}
	wg.Wait()
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name     string
		reply    string
		self     string
		maxWords int
		want     string
	}{
		{"self prefix stripped", "Groq-AI: yo fam", "Groq-AI", 60, "yo fam"},
		{"prefix strip is case-insensitive", "groq-ai: chill", "Groq-AI", 60, "chill"},
		{"other names kept", "Router-AI: says hi", "Groq-AI", 60, "Router-AI: says hi"},
		{"truncated with ellipsis", "one two three four", "Groq-AI", 2, "one two…"},
		{"within budget untouched", "short and sweet", "Groq-AI", 15, "short and sweet"},
		{"whitespace trimmed", "  hey  ", "Groq-AI", 15, "hey"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.reply, tc.self, tc.maxWords); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.reply, got, tc.want)
			}
		})
	}
}
