package tools

import (
	"context"
	"fmt"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
)

// TalkTool handles speech actions. The controller surfaces the spoken text
// itself; the tool only validates and acknowledges.
type TalkTool struct{}

func NewTalkTool() *TalkTool { return &TalkTool{} }

func (t *TalkTool) Execute(_ context.Context, action core.Action) Outcome {
	a, ok := action.(*core.TalkAction)
	if !ok {
		return Errorf("talk: unexpected action %T", action)
	}
	if a.Content == "" {
		return Skipped("nothing to say")
	}
	return Success("spoken")
}

// AdjustRapportTool shifts the relationship state by the decided deltas.
type AdjustRapportTool struct {
	manager *character.Manager
}

func NewAdjustRapportTool() *AdjustRapportTool { return &AdjustRapportTool{} }

func (t *AdjustRapportTool) SetManager(m *character.Manager) { t.manager = m }

func (t *AdjustRapportTool) Execute(_ context.Context, action core.Action) Outcome {
	a, ok := action.(*core.AdjustRapportAction)
	if !ok {
		return Errorf("adjust_rapport: unexpected action %T", action)
	}
	if t.manager == nil {
		return Errorf("adjust_rapport: state manager not available")
	}
	if len(a.RapportDelta) != 2 {
		return Errorf("adjust_rapport: rapport_delta must be [trust, intimacy], got %d values", len(a.RapportDelta))
	}

	t.manager.UpdateRapport(a.RapportDelta[0], a.RapportDelta[1])
	rel := t.manager.State().Relationship
	return Success(fmt.Sprintf("rapport adjusted to trust=%.1f intimacy=%.1f (%s)", rel.Trust, rel.Intimacy, a.Reason))
}
