package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDecision(t *testing.T) {
	raw := `{
		"system_analysis": "user greeted me",
		"thought": "they seem cheerful today",
		"actions": [
			{"type": "remember", "content": "user starts work at nine"},
			{"type": "adjust_rapport", "rapport_delta": [2, 1], "reason": "friendly greeting"}
		],
		"talk": "Good morning!",
		"show_expression": "smile",
		"idle": 30
	}`

	d, err := DecodeDecision([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "they seem cheerful today", d.Thought)
	assert.Equal(t, "Good morning!", d.Talk)
	assert.Equal(t, 30.0, d.Idle)
	require.Len(t, d.Actions, 2)

	remember, ok := d.Actions[0].(*RememberAction)
	require.True(t, ok)
	assert.Equal(t, "user starts work at nine", remember.Content)

	rapport, ok := d.Actions[1].(*AdjustRapportAction)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 1}, rapport.RapportDelta)
}

func TestDecodeDecisionRejectsNegativeIdle(t *testing.T) {
	_, err := DecodeDecision([]byte(`{"thought": "x", "idle": -5}`))
	assert.Error(t, err)
}

func TestDecodeDecisionRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeDecision([]byte(`{"thought": `))
	assert.Error(t, err)
}

func TestDecodeActionVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"type": "talk", "content": "hi"}`, ActionTalk},
		{`{"type": "recall", "query": "tea"}`, ActionRecall},
		{`{"type": "web_search", "query": "weather"}`, ActionWebSearch},
		{`{"type": "schedule_event", "content": "run", "date": "2026-08-28 07:00"}`, ActionScheduleEvent},
		{`{"type": "check_schedule"}`, ActionCheckSchedule},
		{`{"type": "edit_schedule", "target_content": "run", "content": ""}`, ActionEditSchedule},
		{`{"type": "gaze", "target": "window"}`, ActionGaze},
		{`{"type": "update_core_memory", "section": "user_info", "content": "x"}`, ActionUpdateCoreMemory},
	}
	for _, c := range cases {
		action, err := DecodeAction([]byte(c.raw))
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, action.ActionType(), c.raw)
	}
}

func TestDecodeActionUnknownTypeSurvives(t *testing.T) {
	action, err := DecodeAction([]byte(`{"type": "teleport", "where": "moon"}`))
	require.NoError(t, err)

	unknown, ok := action.(*UnknownAction)
	require.True(t, ok)
	assert.Equal(t, "teleport", unknown.Kind)
	assert.Equal(t, "teleport", unknown.ActionType())
}

func TestActionsListDecoding(t *testing.T) {
	var actions Actions
	err := actions.UnmarshalJSON([]byte(`[{"type": "talk", "content": "hi"}, {"type": "gaze", "target": "door"}]`))
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, ActionTalk, actions[0].ActionType())
	assert.Equal(t, ActionGaze, actions[1].ActionType())
}
