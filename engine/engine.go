// Package engine drives the character's cognitive loop: at most one cycle
// chain runs at a time, user input interrupts it, and idle decisions arm a
// wake-up timer that re-enters the loop.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
	"github.com/animakit/anima/memory"
	"github.com/animakit/anima/mind"
	"github.com/animakit/anima/tools"
)

// forcedWait is armed when the consecutive-cycle cap trips.
const forcedWait = 300 * time.Second

// silenceReportThreshold: waits at or under this are not worth an ephemeral
// time-passed notice.
const silenceReportThreshold = 10 * time.Second

// Silent actions produce no history entry on success. Interactive actions
// force an immediate follow-up cycle so the character can react to their
// output.
var (
	silentActions = map[string]bool{
		core.ActionRemember:         true,
		core.ActionUpdateCoreMemory: true,
		core.ActionCheckSchedule:    true,
		core.ActionGaze:             true,
		core.ActionAdjustRapport:    true,
	}
	interactiveActions = map[string]bool{
		core.ActionWebSearch:     true,
		core.ActionScheduleEvent: true,
		core.ActionEditSchedule:  true,
	}
)

// Speaker receives spoken output and the current expression key.
type Speaker func(talk, expression string)

// Engine owns the cognitive loop for one character.
type Engine struct {
	mind       mind.Mind
	registry   *tools.Registry
	characters *character.Manager
	memory     *memory.Manager
	logger     zerolog.Logger
	speaker    Speaker

	mu            sync.Mutex
	cycleCancel   context.CancelFunc
	cycleDone     chan struct{}
	wake          *wakeTimer
	lastUserInput time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithSpeaker sets the callback invoked for every spoken response.
func WithSpeaker(s Speaker) Option {
	return func(e *Engine) {
		e.speaker = s
	}
}

// SetSpeaker wires the speaker after construction, for transports that need
// the engine first. Call before the loop starts.
func (e *Engine) SetSpeaker(s Speaker) {
	e.speaker = s
}

func NewEngine(m mind.Mind, registry *tools.Registry, characters *character.Manager, mem *memory.Manager, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		mind:       m,
		registry:   registry,
		characters: characters,
		memory:     mem,
		logger:     logger.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnUserTurn handles user input: it interrupts any in-flight cycle chain,
// cancels a pending wake-up, logs the input, and runs a fresh loop
// synchronously.
func (e *Engine) OnUserTurn(ctx context.Context, text string) {
	e.memory.UpdateAssociations(ctx, text, memory.ModeSemantic)

	e.mu.Lock()
	e.lastUserInput = time.Now()
	e.mu.Unlock()

	var loopCtx context.Context
	var end func()
	for {
		e.interrupt()
		var ok bool
		if loopCtx, end, ok = e.begin(ctx); ok {
			break
		}
	}

	e.memory.AddInteraction(memory.RoleUser, text)
	wait := e.runLoop(loopCtx, 0)
	e.finishLoop(loopCtx, end, wait)
}

// OnSystemEvent handles autonomous triggers: pacemaker schedule events and
// wake-up timeouts. The cycle chain runs in the background; the caller (the
// pacemaker's tick loop, a wake timer) returns immediately. A running chain
// is never interrupted; the event stays queued in history (when logged) for
// the next cycle to see.
func (e *Engine) OnSystemEvent(ctx context.Context, text string, lastWait time.Duration, logToHistory bool) {
	e.memory.UpdateAssociations(ctx, text, memory.ModeSpontaneous)

	if logToHistory {
		e.memory.AddHeartbeatEvent(text)
	}

	loopCtx, end, ok := e.begin(ctx)
	if !ok {
		e.logger.Debug().Str("event", text).Bool("logged", logToHistory).Msg("cycle in flight, trigger deferred")
		return
	}
	e.cancelWake()

	// A logged event is visible in history; only unlogged wake-ups need
	// the elapsed time surfaced ephemerally.
	loopWait := lastWait
	if logToHistory {
		loopWait = 0
	}
	go func() {
		wait := e.runLoop(loopCtx, loopWait)
		e.finishLoop(loopCtx, end, wait)
	}()
}

// finishLoop clears the chain registration, then arms the follow-up wake.
// Arming after the registration is gone means the timer's re-entry through
// OnSystemEvent can always begin. An interrupted chain arms nothing; the
// interrupting chain owns the next wake-up.
func (e *Engine) finishLoop(ctx context.Context, end func(), wait time.Duration) {
	interrupted := ctx.Err() != nil
	end()
	if wait > 0 && !interrupted {
		e.scheduleWake(wait)
	}
}

// begin registers a new cycle chain. It fails when one is already running.
func (e *Engine) begin(parent context.Context) (context.Context, func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cycleDone != nil {
		return nil, nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	e.cycleCancel = cancel
	e.cycleDone = done

	end := func() {
		cancel()
		e.mu.Lock()
		e.cycleCancel = nil
		e.cycleDone = nil
		e.mu.Unlock()
		close(done)
	}
	return ctx, end, true
}

// interrupt cancels the in-flight cycle chain and any pending wake-up, then
// waits for the chain to unwind.
func (e *Engine) interrupt() {
	e.mu.Lock()
	cancel := e.cycleCancel
	done := e.cycleDone
	if e.wake != nil {
		e.wake.Cancel()
		e.wake = nil
	}
	e.mu.Unlock()

	if cancel != nil {
		e.logger.Info().Msg("interrupting current thought for user input")
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (e *Engine) cancelWake() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.wake != nil {
		e.wake.Cancel()
		e.wake = nil
	}
}

// runLoop chains cognitive cycles until the decision asks for a wait, the
// consecutive cap trips, or the backend fails. It returns the wake-up delay
// to arm, zero for none; the caller arms it through finishLoop once the
// chain registration is released.
func (e *Engine) runLoop(ctx context.Context, lastWait time.Duration) time.Duration {
	maxCycles := e.characters.State().Pacemaker.MaxConsecutiveCycles

	for count := 0; ; count++ {
		if ctx.Err() != nil {
			return 0
		}
		if maxCycles > 0 && count >= maxCycles {
			e.logger.Info().Int("max", maxCycles).Msg("consecutive cycle cap reached, forcing wait")
			return forcedWait
		}

		var ephemeral string
		if count == 0 && lastWait > silenceReportThreshold {
			ephemeral = e.silenceNotice(lastWait)
		}

		decision, err := e.runCycle(ctx, ephemeral)
		if err != nil {
			if ctx.Err() == nil {
				e.logger.Error().Err(err).Msg("cycle failed, stopping loop")
			}
			return 0
		}

		if decision.Idle == 0 {
			lastWait = 0
			continue
		}

		wait := time.Duration(decision.Idle * float64(time.Second))
		e.logger.Debug().Dur("wait", wait).Msg("idle requested")
		return wait
	}
}

// silenceNotice builds the one-shot time-passed message for the first cycle
// after a long wait, with escalating guidance by total user silence.
func (e *Engine) silenceNotice(lastWait time.Duration) string {
	e.mu.Lock()
	last := e.lastUserInput
	e.mu.Unlock()

	var silence time.Duration
	if !last.IsZero() {
		silence = time.Since(last)
	}

	notice := fmt.Sprintf("[System]: User has been silent for %.1f seconds. (Last wait: %.0fs)",
		silence.Seconds(), lastWait.Seconds())

	switch {
	case silence > 300*time.Second:
		notice += " [System Guidance]: It has been over 5 minutes since the last user interaction. Consider reducing your activity frequency."
	case silence > 60*time.Second:
		notice += " [System Guidance]: It has been over 1 minute since the last user interaction. Prioritize your own interests and autonomous goals instead of waiting."
	}
	return notice
}

// runCycle executes one perceive-think-act step.
func (e *Engine) runCycle(ctx context.Context, ephemeral string) (*core.Decision, error) {
	mc := e.buildContext(ephemeral)

	decision, err := e.mind.Execute(ctx, mc)
	if err != nil {
		return nil, err
	}

	e.memory.AddThought(decision.Thought)
	if decision.SystemAnalysis != "" {
		e.memory.AddAnalysis(decision.SystemAnalysis)
	}
	if decision.ShowExpression != "" {
		e.characters.SetExpression(decision.ShowExpression)
	}

	hasInteractive := e.dispatch(ctx, decision.Actions)

	if decision.Talk != "" {
		e.memory.AddInteraction(memory.RoleAssistant, decision.Talk)
		if e.speaker != nil {
			e.speaker(decision.Talk, e.characters.State().CurrentExpression)
		}
	}

	if hasInteractive {
		e.logger.Debug().Msg("interactive action executed, forcing immediate continuation")
		decision.Idle = 0
	}
	return decision, nil
}

// dispatch executes the action list in order and reports whether any
// interactive action ran. Successes of silent actions leave no history
// entry; interactive outputs are batched into a single log; failures are
// always logged.
func (e *Engine) dispatch(ctx context.Context, actions core.Actions) bool {
	hasInteractive := false
	var interactiveOutputs []string

	for _, action := range actions {
		kind := action.ActionType()
		outcome := e.registry.Execute(ctx, action)

		if interactiveActions[kind] {
			hasInteractive = true
		}

		if outcome.IsError() {
			e.memory.AddSystemEvent(fmt.Sprintf("Action '%s' failed: %s", kind, outcome.Message))
			continue
		}
		if silentActions[kind] {
			continue
		}

		msg := outcome.Message
		if len(outcome.Results) > 0 {
			msg += "\n" + strings.Join(outcome.Results, "\n")
		}
		line := fmt.Sprintf("Action '%s' executed: %s", kind, msg)
		if interactiveActions[kind] {
			interactiveOutputs = append(interactiveOutputs, line)
		} else {
			e.memory.AddSystemEvent(line)
		}
	}

	if len(interactiveOutputs) > 0 {
		e.memory.AddSystemEvent(strings.Join(interactiveOutputs, "\n"))
	}
	return hasInteractive
}

func (e *Engine) buildContext(ephemeral string) *mind.Context {
	history := e.memory.FormattedHistory()
	messages := make([]mind.Message, 0, len(history))
	for _, entry := range history {
		role := mind.RoleUser
		if entry.Role == memory.RoleAssistant {
			role = mind.RoleAssistant
		}
		messages = append(messages, mind.Message{Role: role, Content: entry.Content})
	}

	return &mind.Context{
		Profile:      e.characters.Profile(),
		State:        e.characters.State(),
		Now:          time.Now(),
		History:      messages,
		Associations: strings.Join(e.memory.AssociationContext(), "\n"),
		Ephemeral:    ephemeral,
	}
}

// scheduleWake arms a timer that re-enters the loop through OnSystemEvent
// without logging to history.
func (e *Engine) scheduleWake(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.wake != nil {
		e.wake.Cancel()
	}

	w := &wakeTimer{}
	w.timer = time.AfterFunc(d, func() {
		if !w.fire() {
			return
		}
		e.OnSystemEvent(context.Background(),
			fmt.Sprintf("Wait timeout (%.0fs). Resume thinking.", d.Seconds()), d, false)
	})
	e.wake = w
}

// wakeTimer is a cancellable one-shot wake-up.
type wakeTimer struct {
	timer *time.Timer

	mu        sync.Mutex
	cancelled bool
	fired     bool
}

// Cancel prevents the timer from firing. A timer that already fired stays
// fired.
func (w *wakeTimer) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired {
		return
	}
	w.cancelled = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// fire claims the wake-up; it loses against a concurrent Cancel.
func (w *wakeTimer) fire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return false
	}
	w.fired = true
	return true
}

func (w *wakeTimer) Cancelled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelled
}
