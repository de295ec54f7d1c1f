// Package tools hosts the side-effecting implementations behind the
// character's decided actions and the registry that dispatches them.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/animakit/anima/core"
)

// Outcome statuses. Skipped means the tool declined to act (e.g. a
// duplicate memory) without it being an error.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Outcome is the result of executing one action.
type Outcome struct {
	Status  string
	Message string

	// Results carries itemized output (search hits, schedule entries)
	// when the message alone is not enough.
	Results []string
}

func Success(message string) Outcome {
	return Outcome{Status: StatusSuccess, Message: message}
}

func Errorf(format string, args ...any) Outcome {
	return Outcome{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func Skipped(message string) Outcome {
	return Outcome{Status: StatusSkipped, Message: message}
}

// IsError reports whether the outcome is a failure.
func (o Outcome) IsError() bool {
	return o.Status == StatusError
}

// Tool executes one kind of action. Implementations must never panic on
// malformed input; they return an error outcome instead.
type Tool interface {
	Execute(ctx context.Context, action core.Action) Outcome
}

// Registry maps action discriminants to tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With().Str("component", "tools").Logger(),
	}
}

func (r *Registry) Register(name string, tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute dispatches the action to its tool. A missing tool is reported as
// an error outcome naming the discriminant; it never panics.
func (r *Registry) Execute(ctx context.Context, action core.Action) Outcome {
	name := action.ActionType()
	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn().Str("action", name).Msg("no tool registered for action")
		return Errorf("no tool registered for action %q", name)
	}

	outcome := tool.Execute(ctx, action)
	if outcome.IsError() {
		r.logger.Warn().Str("action", name).Str("message", outcome.Message).Msg("tool failed")
	} else {
		r.logger.Debug().Str("action", name).Str("status", outcome.Status).Msg("tool executed")
	}
	return outcome
}
