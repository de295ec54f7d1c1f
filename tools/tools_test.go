package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
)

func newTestCharacter(t *testing.T) *character.Manager {
	t.Helper()
	profile := &character.Profile{Name: "Aria"}
	return character.NewManager(profile, filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	reg.Register(core.ActionTalk, NewTalkTool())

	out := reg.Execute(context.Background(), &core.TalkAction{Content: "hello"})
	assert.Equal(t, StatusSuccess, out.Status)
}

func TestRegistryUnregisteredActionFailsClosed(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	out := reg.Execute(context.Background(), &core.UnknownAction{Kind: "teleport"})
	assert.True(t, out.IsError())
	assert.Contains(t, out.Message, "teleport")
}

func TestTalkToolSkipsEmptyContent(t *testing.T) {
	out := NewTalkTool().Execute(context.Background(), &core.TalkAction{})
	assert.Equal(t, StatusSkipped, out.Status)
}

func TestAdjustRapportTool(t *testing.T) {
	tool := NewAdjustRapportTool()
	manager := newTestCharacter(t)
	tool.SetManager(manager)

	out := tool.Execute(context.Background(), &core.AdjustRapportAction{
		RapportDelta: []float64{5, 3},
		Reason:       "shared a joke",
	})
	require.Equal(t, StatusSuccess, out.Status)

	rel := manager.State().Relationship
	assert.Equal(t, 5.0, rel.Trust)
	assert.Equal(t, 3.0, rel.Intimacy)
}

func TestAdjustRapportToolRejectsBadDelta(t *testing.T) {
	tool := NewAdjustRapportTool()
	tool.SetManager(newTestCharacter(t))

	out := tool.Execute(context.Background(), &core.AdjustRapportAction{RapportDelta: []float64{1}})
	assert.True(t, out.IsError())
}

func TestScheduleEventAndCheckSchedule(t *testing.T) {
	manager := newTestCharacter(t)
	schedule := NewScheduleEventTool()
	schedule.SetManager(manager)
	check := NewCheckScheduleTool()
	check.SetManager(manager)

	out := schedule.Execute(context.Background(), &core.ScheduleEventAction{
		Content: "morning run",
		Date:    "2026-08-28 07:00",
	})
	require.Equal(t, StatusSuccess, out.Status)

	entries := manager.State().Schedule
	require.Len(t, entries, 1)
	assert.Equal(t, "morning run", entries[0].Description, "pacemaker notices render the description")

	out = check.Execute(context.Background(), &core.CheckScheduleAction{})
	require.Equal(t, StatusSuccess, out.Status)
	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0], "morning run")
	assert.Contains(t, out.Results[0], "[pending]")
}

func TestCheckScheduleEmpty(t *testing.T) {
	check := NewCheckScheduleTool()
	check.SetManager(newTestCharacter(t))

	out := check.Execute(context.Background(), &core.CheckScheduleAction{})
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Empty(t, out.Results)
}

func TestEditScheduleUpdatesByContent(t *testing.T) {
	manager := newTestCharacter(t)
	manager.AddScheduleEntry(character.ScheduleEntry{ID: "1", Title: "morning run", StartTime: "2026-08-28 07:00"})

	tool := NewEditScheduleTool()
	tool.SetManager(manager)

	out := tool.Execute(context.Background(), &core.EditScheduleAction{
		TargetContent: "run",
		Content:       "evening run",
	})
	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "evening run", manager.State().Schedule[0].Title)
}

func TestEditScheduleEmptyContentDeletes(t *testing.T) {
	manager := newTestCharacter(t)
	manager.AddScheduleEntry(character.ScheduleEntry{ID: "1", Title: "dentist", StartTime: "2026-08-28 07:00"})

	tool := NewEditScheduleTool()
	tool.SetManager(manager)

	out := tool.Execute(context.Background(), &core.EditScheduleAction{TargetContent: "dentist"})
	require.Equal(t, StatusSuccess, out.Status)
	assert.Empty(t, manager.State().Schedule)
}

func TestEditScheduleNoMatch(t *testing.T) {
	tool := NewEditScheduleTool()
	tool.SetManager(newTestCharacter(t))

	out := tool.Execute(context.Background(), &core.EditScheduleAction{TargetContent: "piano"})
	assert.True(t, out.IsError())
}

func TestUpdateCoreMemoryTool(t *testing.T) {
	manager := newTestCharacter(t)
	manager.UpdateUserProfile("likes coffee")

	tool := NewUpdateCoreMemoryTool()
	tool.SetManager(manager)

	out := tool.Execute(context.Background(), &core.UpdateCoreMemoryAction{
		Section:       "user_info",
		TargetContent: "likes coffee",
		Content:       "likes green tea",
	})
	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "likes green tea", manager.State().UserProfile)
}

func TestUpdateCoreMemoryToolRejectsUnknownSection(t *testing.T) {
	tool := NewUpdateCoreMemoryTool()
	tool.SetManager(newTestCharacter(t))

	out := tool.Execute(context.Background(), &core.UpdateCoreMemoryAction{Section: "mood", Content: "x"})
	assert.True(t, out.IsError())
}

func TestGazeTool(t *testing.T) {
	out := NewGazeTool().Execute(context.Background(), &core.GazeAction{Target: "window"})
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Contains(t, out.Message, "window")
}

func TestToolsRejectWrongActionType(t *testing.T) {
	ctx := context.Background()
	wrong := &core.TalkAction{Content: "hi"}

	for name, tool := range map[string]Tool{
		"adjust_rapport":     NewAdjustRapportTool(),
		"schedule_event":     NewScheduleEventTool(),
		"edit_schedule":      NewEditScheduleTool(),
		"update_core_memory": NewUpdateCoreMemoryTool(),
		"gaze":               NewGazeTool(),
	} {
		assert.True(t, tool.Execute(ctx, wrong).IsError(), name)
	}
}
