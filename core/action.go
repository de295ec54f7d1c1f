package core

import (
	"encoding/json"
	"fmt"
)

// Action discriminants. The set is closed: the dispatcher matches on these
// and anything else fails closed as an UnknownAction.
const (
	ActionTalk             = "talk"
	ActionAdjustRapport    = "adjust_rapport"
	ActionRemember         = "remember"
	ActionRecall           = "recall"
	ActionWebSearch        = "web_search"
	ActionScheduleEvent    = "schedule_event"
	ActionCheckSchedule    = "check_schedule"
	ActionEditSchedule     = "edit_schedule"
	ActionGaze             = "gaze"
	ActionUpdateCoreMemory = "update_core_memory"
)

// Action is one side-effecting step from a cognitive cycle's decision.
// Exactly one concrete variant backs each instance.
type Action interface {
	ActionType() string
}

// TalkAction speaks to the user.
type TalkAction struct {
	Content string `json:"content"`
}

func (*TalkAction) ActionType() string { return ActionTalk }

// AdjustRapportAction shifts the relationship state.
// RapportDelta is [trust, intimacy].
type AdjustRapportAction struct {
	RapportDelta []float64 `json:"rapport_delta"`
	Reason       string    `json:"reason"`
}

func (*AdjustRapportAction) ActionType() string { return ActionAdjustRapport }

// RememberAction archives a fact to long-term memory.
type RememberAction struct {
	Content string `json:"content"`
}

func (*RememberAction) ActionType() string { return ActionRemember }

// RecallAction searches long-term memory independent of the current buffer.
type RecallAction struct {
	Query string `json:"query"`
}

func (*RecallAction) ActionType() string { return ActionRecall }

// WebSearchAction looks up real-time information.
type WebSearchAction struct {
	Query string `json:"query"`
}

func (*WebSearchAction) ActionType() string { return ActionWebSearch }

// ScheduleEventAction creates a schedule entry.
type ScheduleEventAction struct {
	Content string `json:"content"`
	Date    string `json:"date"` // YYYY-MM-DD HH:MM
}

func (*ScheduleEventAction) ActionType() string { return ActionScheduleEvent }

// CheckScheduleAction lists the current schedule.
type CheckScheduleAction struct{}

func (*CheckScheduleAction) ActionType() string { return ActionCheckSchedule }

// EditScheduleAction updates or, with empty Content, deletes an entry
// matched by TargetContent.
type EditScheduleAction struct {
	TargetContent string `json:"target_content"`
	Content       string `json:"content"`
}

func (*EditScheduleAction) ActionType() string { return ActionEditSchedule }

// GazeAction inspects a named target in the environment.
type GazeAction struct {
	Target string `json:"target"`
}

func (*GazeAction) ActionType() string { return ActionGaze }

// Core memory sections addressable by UpdateCoreMemoryAction.
const (
	SectionOverview    = "overview"
	SectionAppearance  = "appearance"
	SectionPersonality = "personality"
	SectionScenario    = "scenario"
	SectionUserInfo    = "user_info"
)

// UpdateCoreMemoryAction edits a persona section or the user profile.
// Empty TargetContent appends; a unique match is replaced.
type UpdateCoreMemoryAction struct {
	Section       string `json:"section"`
	TargetContent string `json:"target_content"`
	Content       string `json:"content"`
}

func (*UpdateCoreMemoryAction) ActionType() string { return ActionUpdateCoreMemory }

// UnknownAction carries a discriminant no variant claims. It survives
// decoding so the dispatcher can report the miss instead of dropping it.
type UnknownAction struct {
	Kind string
	Raw  json.RawMessage
}

func (a *UnknownAction) ActionType() string { return a.Kind }

// DecodeAction decodes one action envelope by its "type" discriminant.
func DecodeAction(data []byte) (Action, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}

	var action Action
	switch head.Type {
	case ActionTalk:
		action = &TalkAction{}
	case ActionAdjustRapport:
		action = &AdjustRapportAction{}
	case ActionRemember:
		action = &RememberAction{}
	case ActionRecall:
		action = &RecallAction{}
	case ActionWebSearch:
		action = &WebSearchAction{}
	case ActionScheduleEvent:
		action = &ScheduleEventAction{}
	case ActionCheckSchedule:
		action = &CheckScheduleAction{}
	case ActionEditSchedule:
		action = &EditScheduleAction{}
	case ActionGaze:
		action = &GazeAction{}
	case ActionUpdateCoreMemory:
		action = &UpdateCoreMemoryAction{}
	default:
		return &UnknownAction{Kind: head.Type, Raw: append([]byte(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, action); err != nil {
		return nil, fmt.Errorf("decode %s action: %w", head.Type, err)
	}
	return action, nil
}

// Actions decodes a heterogeneous action list.
type Actions []Action

func (a *Actions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decode action list: %w", err)
	}
	out := make(Actions, 0, len(raws))
	for i, raw := range raws {
		action, err := DecodeAction(raw)
		if err != nil {
			return fmt.Errorf("action #%d: %w", i+1, err)
		}
		out = append(out, action)
	}
	*a = out
	return nil
}
