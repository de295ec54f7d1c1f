package tools

import (
	"context"
	"fmt"

	"github.com/animakit/anima/core"
)

// GazeTool acknowledges an environment inspection. Actual sensor backends
// (screen, directory) hang off the gateway and are not wired yet.
type GazeTool struct{}

func NewGazeTool() *GazeTool { return &GazeTool{} }

func (t *GazeTool) Execute(_ context.Context, action core.Action) Outcome {
	a, ok := action.(*core.GazeAction)
	if !ok {
		return Errorf("gaze: unexpected action %T", action)
	}
	if a.Target == "" {
		return Errorf("gaze: empty target")
	}
	return Success(fmt.Sprintf("gazed at %s", a.Target))
}
