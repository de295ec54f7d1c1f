package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
	"github.com/animakit/anima/memory"
	"github.com/animakit/anima/mind"
	"github.com/animakit/anima/tools"
)

// scriptedMind replays a fixed decision sequence and records the contexts it
// was handed. The last decision repeats when the script runs out. With
// entered/release set, every call signals entry and blocks until release is
// closed; active/maxActive track cycle overlap.
type scriptedMind struct {
	mu        sync.Mutex
	decisions []*core.Decision
	err       error
	calls     int
	contexts  []*mind.Context
	active    int
	maxActive int

	entered chan struct{}
	release chan struct{}
}

func (s *scriptedMind) Execute(_ context.Context, mc *mind.Context) (*core.Decision, error) {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = append(s.contexts, mc)
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	i := s.calls - 1
	if i >= len(s.decisions) {
		i = len(s.decisions) - 1
	}
	d := *s.decisions[i]
	return &d, nil
}

func (s *scriptedMind) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubTool returns a canned outcome for any action.
type stubTool struct {
	outcome tools.Outcome
}

func (t *stubTool) Execute(_ context.Context, _ core.Action) tools.Outcome {
	return t.outcome
}

func decision(idle float64) *core.Decision {
	return &core.Decision{Thought: "thinking", Idle: idle}
}

func newTestEngine(t *testing.T, m mind.Mind, maxCycles int) (*Engine, *memory.Manager, *character.Manager, *tools.Registry) {
	t.Helper()

	profile := &character.Profile{Name: "Aria"}
	statePath := filepath.Join(t.TempDir(), "state.json")
	if maxCycles > 0 {
		seed := fmt.Sprintf(`{"pacemaker": {"max_consecutive_cycles": %d}}`, maxCycles)
		require.NoError(t, os.WriteFile(statePath, []byte(seed), 0o644))
	}
	characters := character.NewManager(profile, statePath, zerolog.Nop())

	mem := memory.NewManager(nil, memory.Config{}, zerolog.Nop())
	registry := tools.NewRegistry(zerolog.Nop())
	eng := NewEngine(m, registry, characters, mem, zerolog.Nop())
	t.Cleanup(eng.cancelWake)
	return eng, mem, characters, registry
}

// waitForChain blocks until no cycle chain is registered. System triggers
// run their chains in the background; tests use this to observe the result.
func waitForChain(t *testing.T, eng *Engine) {
	t.Helper()
	require.Eventually(t, func() bool {
		eng.mu.Lock()
		defer eng.mu.Unlock()
		return eng.cycleDone == nil
	}, 2*time.Second, time.Millisecond)
}

func historyText(mem *memory.Manager) string {
	var b strings.Builder
	for _, e := range mem.FormattedHistory() {
		b.WriteString(e.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func TestLoopStopsAtConsecutiveCycleCap(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(0)}}
	eng, _, _, _ := newTestEngine(t, m, 3)

	eng.OnUserTurn(context.Background(), "hello")

	assert.Equal(t, 3, m.callCount())
	eng.mu.Lock()
	wake := eng.wake
	eng.mu.Unlock()
	require.NotNil(t, wake, "the cap must arm a forced wake-up")
	assert.False(t, wake.Cancelled())
}

func TestLoopChainsUntilIdle(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(0), decision(0), decision(15)}}
	eng, _, _, _ := newTestEngine(t, m, 0)

	eng.OnUserTurn(context.Background(), "hello")

	assert.Equal(t, 3, m.callCount())
	eng.mu.Lock()
	wake := eng.wake
	eng.mu.Unlock()
	assert.NotNil(t, wake)
}

func TestBackendErrorStopsLoop(t *testing.T) {
	m := &scriptedMind{err: errors.New("backend down")}
	eng, _, _, _ := newTestEngine(t, m, 0)

	eng.OnUserTurn(context.Background(), "hello")

	assert.Equal(t, 1, m.callCount())
	eng.mu.Lock()
	assert.Nil(t, eng.wake, "a failed cycle must not arm a wake-up")
	eng.mu.Unlock()
}

func TestUserTurnCancelsPendingWake(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(3600)}}
	eng, _, _, _ := newTestEngine(t, m, 0)

	eng.OnUserTurn(context.Background(), "hello")
	eng.mu.Lock()
	first := eng.wake
	eng.mu.Unlock()
	require.NotNil(t, first)

	eng.OnUserTurn(context.Background(), "still here")
	assert.True(t, first.Cancelled())
}

func TestInteractiveActionForcesContinuation(t *testing.T) {
	withSearch := decision(60)
	withSearch.Actions = core.Actions{&core.WebSearchAction{Query: "weather"}}
	m := &scriptedMind{decisions: []*core.Decision{withSearch, decision(30)}}
	eng, mem, _, registry := newTestEngine(t, m, 0)
	registry.Register(core.ActionWebSearch, &stubTool{outcome: tools.Outcome{
		Status:  tools.StatusSuccess,
		Message: "found 3 results",
		Results: []string{"Title: Sunny\nSnippet: clear skies\nLink: example.com"},
	}})

	eng.OnUserTurn(context.Background(), "what's the weather?")

	assert.Equal(t, 2, m.callCount(), "interactive output must trigger a follow-up cycle")
	assert.Contains(t, historyText(mem), "Action 'web_search' executed: found 3 results")
}

func TestSilentActionLeavesNoHistory(t *testing.T) {
	withGaze := decision(15)
	withGaze.Actions = core.Actions{&core.GazeAction{Target: "window"}}
	m := &scriptedMind{decisions: []*core.Decision{withGaze}}
	eng, mem, _, registry := newTestEngine(t, m, 0)
	registry.Register(core.ActionGaze, &stubTool{outcome: tools.Success("gazed at window")})

	eng.OnUserTurn(context.Background(), "hello")

	assert.NotContains(t, historyText(mem), "gazed at window")
}

func TestFailedActionAlwaysLogged(t *testing.T) {
	withBad := decision(15)
	withBad.Actions = core.Actions{&core.RememberAction{Content: "x"}}
	m := &scriptedMind{decisions: []*core.Decision{withBad}}
	eng, mem, _, _ := newTestEngine(t, m, 0)

	eng.OnUserTurn(context.Background(), "hello")

	assert.Contains(t, historyText(mem), "Action 'remember' failed")
}

func TestSpeakerReceivesTalkAndExpression(t *testing.T) {
	d := decision(15)
	d.Talk = "Good morning!"
	d.ShowExpression = "smile"
	m := &scriptedMind{decisions: []*core.Decision{d}}
	eng, mem, _, _ := newTestEngine(t, m, 0)

	var gotTalk, gotExpr string
	eng.SetSpeaker(func(talk, expression string) {
		gotTalk, gotExpr = talk, expression
	})

	eng.OnUserTurn(context.Background(), "good morning")

	assert.Equal(t, "Good morning!", gotTalk)
	assert.Equal(t, "smile", gotExpr)
	assert.Contains(t, historyText(mem), "Good morning!")
}

func TestSilenceNoticeIsEphemeral(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(15)}}
	eng, mem, _, _ := newTestEngine(t, m, 0)

	eng.OnSystemEvent(context.Background(), "Wait timeout (20s). Resume thinking.", 20*time.Second, false)
	waitForChain(t, eng)

	require.Equal(t, 1, m.callCount())
	m.mu.Lock()
	ephemeral := m.contexts[0].Ephemeral
	m.mu.Unlock()
	assert.Contains(t, ephemeral, "silent for")
	assert.NotContains(t, historyText(mem), "silent for")
}

func TestShortWaitSkipsSilenceNotice(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(15)}}
	eng, _, _, _ := newTestEngine(t, m, 0)

	eng.OnSystemEvent(context.Background(), "Wait timeout (5s). Resume thinking.", 5*time.Second, false)
	waitForChain(t, eng)

	require.Equal(t, 1, m.callCount())
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.contexts[0].Ephemeral)
}

func TestLoggedSystemEventEntersHistory(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(15)}}
	eng, mem, _, _ := newTestEngine(t, m, 0)

	eng.OnSystemEvent(context.Background(), "Scheduled Event 'morning run' is starting now.", 0, true)
	waitForChain(t, eng)

	assert.Contains(t, historyText(mem), "morning run")
}

func TestSystemEventReturnsWhileChainRuns(t *testing.T) {
	m := &scriptedMind{
		decisions: []*core.Decision{decision(3600)},
		entered:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	eng, _, _, _ := newTestEngine(t, m, 0)

	returned := make(chan struct{})
	go func() {
		eng.OnSystemEvent(context.Background(), "Scheduled Event 'run' is starting now. (run)", 0, true)
		close(returned)
	}()

	select {
	case <-m.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle never started")
	}
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("system event trigger blocked on the cycle chain")
	}

	close(m.release)
	waitForChain(t, eng)
	assert.Equal(t, 1, m.callCount())
}

func TestUserTurnInterruptsInFlightChain(t *testing.T) {
	m := &scriptedMind{
		decisions: []*core.Decision{decision(3600)},
		entered:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	eng, mem, _, _ := newTestEngine(t, m, 0)

	firstDone := make(chan struct{})
	go func() {
		eng.OnUserTurn(context.Background(), "first")
		close(firstDone)
	}()

	select {
	case <-m.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never started")
	}

	secondDone := make(chan struct{})
	go func() {
		eng.OnUserTurn(context.Background(), "second")
		close(secondDone)
	}()

	// The second turn must await the first chain's teardown, not run beside
	// it.
	select {
	case <-secondDone:
		t.Fatal("second turn completed while the first cycle was still blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(m.release)
	<-firstDone
	<-secondDone

	m.mu.Lock()
	maxActive := m.maxActive
	m.mu.Unlock()
	assert.Equal(t, 1, maxActive, "cycles must never overlap")
	assert.Equal(t, 2, m.callCount())
	assert.Contains(t, historyText(mem), "second")
}

func TestWakeReentersLoopAfterIdle(t *testing.T) {
	m := &scriptedMind{decisions: []*core.Decision{decision(0.001), decision(3600)}}
	eng, _, _, _ := newTestEngine(t, m, 0)

	eng.OnUserTurn(context.Background(), "hello")

	require.Eventually(t, func() bool { return m.callCount() == 2 },
		2*time.Second, time.Millisecond, "the wake timer must re-enter the loop")
}

func TestWakeTimerCancelBeatsFire(t *testing.T) {
	w := &wakeTimer{}
	w.Cancel()
	assert.False(t, w.fire())
	assert.True(t, w.Cancelled())
}

func TestWakeTimerFireBeatsCancel(t *testing.T) {
	w := &wakeTimer{}
	assert.True(t, w.fire())
	w.Cancel()
	assert.False(t, w.Cancelled())
}
