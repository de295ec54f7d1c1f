package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
)

// ScheduleEventTool creates a future schedule entry the pacemaker will
// notify on.
type ScheduleEventTool struct {
	manager *character.Manager
}

func NewScheduleEventTool() *ScheduleEventTool { return &ScheduleEventTool{} }

func (t *ScheduleEventTool) SetManager(m *character.Manager) { t.manager = m }

func (t *ScheduleEventTool) Execute(_ context.Context, action core.Action) Outcome {
	a, ok := action.(*core.ScheduleEventAction)
	if !ok {
		return Errorf("schedule_event: unexpected action %T", action)
	}
	if t.manager == nil {
		return Errorf("schedule_event: state manager not available")
	}
	if a.Content == "" || a.Date == "" {
		return Errorf("schedule_event: content and date are required")
	}

	entry := character.ScheduleEntry{
		ID:          uuid.NewString(),
		Title:       a.Content,
		Description: a.Content,
		StartTime:   a.Date,
	}
	t.manager.AddScheduleEntry(entry)
	return Success(fmt.Sprintf("scheduled %q at %s", a.Content, a.Date))
}

// CheckScheduleTool lists the current schedule.
type CheckScheduleTool struct {
	manager *character.Manager
}

func NewCheckScheduleTool() *CheckScheduleTool { return &CheckScheduleTool{} }

func (t *CheckScheduleTool) SetManager(m *character.Manager) { t.manager = m }

func (t *CheckScheduleTool) Execute(_ context.Context, action core.Action) Outcome {
	if _, ok := action.(*core.CheckScheduleAction); !ok {
		return Errorf("check_schedule: unexpected action %T", action)
	}
	if t.manager == nil {
		return Errorf("check_schedule: state manager not available")
	}

	entries := t.manager.State().Schedule
	if len(entries) == 0 {
		return Success("the schedule is empty")
	}

	results := make([]string, 0, len(entries))
	for _, e := range entries {
		status := "pending"
		if e.Notified {
			status = "done"
		}
		line := fmt.Sprintf("%s: %s [%s]", e.StartTime, e.Title, status)
		if e.Description != "" {
			line += " - " + e.Description
		}
		results = append(results, line)
	}
	return Outcome{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%d scheduled entries", len(entries)),
		Results: results,
	}
}

// EditScheduleTool updates the entry matched by target content, or deletes
// it when the new content is empty.
type EditScheduleTool struct {
	manager *character.Manager
}

func NewEditScheduleTool() *EditScheduleTool { return &EditScheduleTool{} }

func (t *EditScheduleTool) SetManager(m *character.Manager) { t.manager = m }

func (t *EditScheduleTool) Execute(_ context.Context, action core.Action) Outcome {
	a, ok := action.(*core.EditScheduleAction)
	if !ok {
		return Errorf("edit_schedule: unexpected action %T", action)
	}
	if t.manager == nil {
		return Errorf("edit_schedule: state manager not available")
	}
	if a.TargetContent == "" {
		return Errorf("edit_schedule: target_content is required")
	}

	entry := t.manager.FindEntryByContent(a.TargetContent)
	if entry == nil {
		return Errorf("edit_schedule: no entry matches %q", a.TargetContent)
	}

	if a.Content == "" {
		if !t.manager.RemoveScheduleEntry(entry.ID) {
			return Errorf("edit_schedule: entry %q vanished before removal", entry.Title)
		}
		return Success(fmt.Sprintf("removed %q from the schedule", entry.Title))
	}

	if !t.manager.UpdateScheduleEntry(entry.ID, a.Content, "") {
		return Errorf("edit_schedule: entry %q vanished before update", entry.Title)
	}
	return Success(fmt.Sprintf("updated %q to %q", entry.Title, a.Content))
}
