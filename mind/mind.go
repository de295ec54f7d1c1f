// Package mind abstracts the reasoning backend that turns the character's
// situation into a structured decision.
package mind

import (
	"context"
	"time"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
)

// Message is one turn of LLM-visible context.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Context is everything the backend sees for one cognitive cycle.
type Context struct {
	Profile *character.Profile
	State   character.State
	Now     time.Time

	// History is the merged conversation and thought stream, oldest first.
	History []Message

	// Associations is the formatted associative memory block, empty when
	// nothing is recalled.
	Associations string

	// Ephemeral is one-shot situational guidance injected for this cycle
	// only. It is never persisted.
	Ephemeral string
}

// Mind produces one decision per cycle. Implementations must not retry
// silently; a malformed or failed response is returned as an error.
type Mind interface {
	Execute(ctx context.Context, mc *Context) (*core.Decision, error)
}
