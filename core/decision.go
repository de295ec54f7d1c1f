package core

import (
	"encoding/json"
	"fmt"
)

// Decision is the reasoning backend's structured output for one cognitive
// cycle.
type Decision struct {
	// SystemAnalysis is the optional logical chain-of-thought. It is
	// persisted outside the conversational stream.
	SystemAnalysis string `json:"system_analysis,omitempty"`

	// Thought is the internal monologue in the persona's voice.
	Thought string `json:"thought"`

	// Actions are executed in order, sequentially.
	Actions Actions `json:"actions"`

	// Talk is spoken to the user when non-empty.
	Talk string `json:"talk"`

	// ShowExpression selects a display-expression key (e.g. "neutral").
	ShowExpression string `json:"show_expression"`

	// Idle is seconds before the next autonomous cycle.
	// 0 continues immediately; >0 suspends.
	Idle float64 `json:"idle"`
}

// DecodeDecision parses a decision document and enforces idle >= 0.
// Malformed output is a backend failure, not something to repair.
func DecodeDecision(data []byte) (*Decision, error) {
	d := &Decision{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	if d.Idle < 0 {
		return nil, fmt.Errorf("decode decision: negative idle %v", d.Idle)
	}
	return d, nil
}
