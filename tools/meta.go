package tools

import (
	"context"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
)

// UpdateCoreMemoryTool edits the character's persona sections or the
// recorded user profile through the state manager's strict-replace
// contract.
type UpdateCoreMemoryTool struct {
	manager *character.Manager
}

func NewUpdateCoreMemoryTool() *UpdateCoreMemoryTool { return &UpdateCoreMemoryTool{} }

func (t *UpdateCoreMemoryTool) SetManager(m *character.Manager) { t.manager = m }

func (t *UpdateCoreMemoryTool) Execute(_ context.Context, action core.Action) Outcome {
	a, ok := action.(*core.UpdateCoreMemoryAction)
	if !ok {
		return Errorf("update_core_memory: unexpected action %T", action)
	}
	if t.manager == nil {
		return Errorf("update_core_memory: state manager not available")
	}
	if a.Content == "" {
		return Errorf("update_core_memory: empty content")
	}

	msg, err := t.manager.ApplyCoreEdit(a.Section, a.TargetContent, a.Content)
	if err != nil {
		return Errorf("update_core_memory: %v", err)
	}
	return Success(msg)
}
