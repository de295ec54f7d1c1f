package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/animakit/anima/core"
	"github.com/animakit/anima/memory"
)

// RememberTool archives a fact to long-term memory with duplicate
// suppression.
type RememberTool struct {
	manager *memory.Manager
}

func NewRememberTool(manager *memory.Manager) *RememberTool {
	return &RememberTool{manager: manager}
}

func (t *RememberTool) Execute(ctx context.Context, action core.Action) Outcome {
	a, ok := action.(*core.RememberAction)
	if !ok {
		return Errorf("remember: unexpected action %T", action)
	}
	if a.Content == "" {
		return Errorf("remember: empty content")
	}

	_, skipped, err := t.manager.Archive(ctx, a.Content, map[string]string{"kind": "episodic"}, true)
	if err != nil {
		return Errorf("remember: %v", err)
	}
	if skipped {
		return Skipped("a very similar memory already exists, skipped")
	}
	return Success("memory stored")
}

// RecallTool runs an explicit long-term search, independent of the
// association buffer.
type RecallTool struct {
	manager *memory.Manager
}

func NewRecallTool(manager *memory.Manager) *RecallTool {
	return &RecallTool{manager: manager}
}

const recallHits = 5

func (t *RecallTool) Execute(ctx context.Context, action core.Action) Outcome {
	a, ok := action.(*core.RecallAction)
	if !ok {
		return Errorf("recall: unexpected action %T", action)
	}
	if a.Query == "" {
		return Errorf("recall: empty query")
	}

	hits, err := t.manager.Recall(ctx, a.Query, recallHits)
	if err != nil {
		return Errorf("recall: %v", err)
	}
	if len(hits) == 0 {
		return Success(fmt.Sprintf("no memories found for %q", a.Query))
	}

	return Outcome{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("recalled %d memories for %q", len(hits), a.Query),
		Results: memory.FormatHits(hits, time.Now()),
	}
}
