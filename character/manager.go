package character

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager owns the dynamic state of one character and persists it to
// state.json. Writes are synchronous: callers never observe a stale copy
// across a suspension point.
type Manager struct {
	mu        sync.Mutex
	profile   *Profile
	state     *State
	statePath string
	logger    zerolog.Logger
}

// NewManager loads state from statePath, falling back to a zero-value state
// when the file is missing or unreadable.
func NewManager(profile *Profile, statePath string, logger zerolog.Logger) *Manager {
	m := &Manager{
		profile:   profile,
		statePath: statePath,
		logger:    logger.With().Str("component", "character").Logger(),
	}
	m.state = m.loadState()
	return m
}

func (m *Manager) loadState() *State {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Error().Err(err).Str("path", m.statePath).Msg("failed to read state")
		}
		return &State{}
	}
	st := &State{}
	if err := json.Unmarshal(data, st); err != nil {
		m.logger.Error().Err(err).Str("path", m.statePath).Msg("failed to parse state, using defaults")
		return &State{}
	}
	return st
}

// save persists under the lock held by the caller.
func (m *Manager) save() {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to marshal state")
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.statePath), 0o755); err != nil {
		m.logger.Error().Err(err).Msg("failed to create state dir")
		return
	}
	if err := os.WriteFile(m.statePath, data, 0o644); err != nil {
		m.logger.Error().Err(err).Msg("failed to write state")
	}
}

func (m *Manager) Profile() *Profile {
	return m.profile
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := *m.state
	st.Schedule = append([]ScheduleEntry(nil), m.state.Schedule...)
	return st
}

// SaveProfile rewrites the profile file next to state.json.
func (m *Manager) SaveProfile() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveProfileLocked()
}

// UpdateRapport shifts trust/intimacy by the given deltas, clamped to ±100.
func (m *Manager) UpdateRapport(trustDelta, intimacyDelta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &m.state.Relationship
	r.Trust = clamp(r.Trust+trustDelta, -100, 100)
	r.Intimacy = clamp(r.Intimacy+intimacyDelta, -100, 100)
	m.save()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Manager) SetExpression(expression string) {
	if expression == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expression == m.state.CurrentExpression {
		return
	}
	m.state.CurrentExpression = expression
	m.save()
}

func (m *Manager) UpdateUserProfile(info string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.UserProfile = info
	m.save()
}

// ApplyCoreEdit edits one core memory section. An empty target appends;
// a target matched exactly once is replaced; multiple matches are an error;
// a target not found falls back to appending. Returns a human-readable
// result message.
func (m *Manager) ApplyCoreEdit(section, target, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch section {
	case "user_info":
		updated, err := editField(m.state.UserProfile, target, content, "User Info")
		if err != nil {
			return "", err
		}
		m.state.UserProfile = updated
		m.save()
		return "User Info updated.", nil

	case "overview":
		updated, err := editField(m.profile.Description, target, content, "Overview")
		if err != nil {
			return "", err
		}
		m.profile.Description = updated
		return "Overview updated.", m.saveProfileLocked()

	case "appearance":
		updated, err := editField(m.profile.Appearance, target, content, "Appearance")
		if err != nil {
			return "", err
		}
		m.profile.Appearance = updated
		return "Appearance updated.", m.saveProfileLocked()

	case "scenario":
		updated, err := editField(m.profile.InitialSituation, target, content, "Scenario")
		if err != nil {
			return "", err
		}
		m.profile.InitialSituation = updated
		return "Scenario updated.", m.saveProfileLocked()

	case "personality":
		// The target may live in either persona; try surface, then inner,
		// then append to inner.
		if target != "" && strings.Count(m.profile.SurfacePersona, target) == 1 {
			m.profile.SurfacePersona = strings.Replace(m.profile.SurfacePersona, target, content, 1)
			return "Surface persona updated.", m.saveProfileLocked()
		}
		if target != "" && strings.Count(m.profile.SurfacePersona, target) > 1 {
			return "", fmt.Errorf("target %q found multiple times in surface persona", target)
		}
		if target != "" && strings.Count(m.profile.InnerPersona, target) == 1 {
			m.profile.InnerPersona = strings.Replace(m.profile.InnerPersona, target, content, 1)
			return "Inner persona updated.", m.saveProfileLocked()
		}
		if target != "" && strings.Count(m.profile.InnerPersona, target) > 1 {
			return "", fmt.Errorf("target %q found multiple times in inner persona", target)
		}
		m.profile.InnerPersona = appendSection(m.profile.InnerPersona, content)
		return "Inner persona updated (appended).", m.saveProfileLocked()

	default:
		return "", fmt.Errorf("unknown core memory section %q", section)
	}
}

// editField implements the strict replace contract for a single text field.
func editField(current, target, content, label string) (string, error) {
	if target == "" {
		return appendSection(current, content), nil
	}
	switch strings.Count(current, target) {
	case 0:
		return appendSection(current, content), nil
	case 1:
		return strings.Replace(current, target, content, 1), nil
	default:
		return "", fmt.Errorf("target %q found multiple times in %s", target, label)
	}
}

func appendSection(current, content string) string {
	if current == "" {
		return content
	}
	return current + "\n" + content
}

// saveProfileLocked is SaveProfile for callers already holding the lock.
func (m *Manager) saveProfileLocked() error {
	data, err := json.MarshalIndent(m.profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	path := filepath.Join(filepath.Dir(m.statePath), "profile.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// AddScheduleEntry appends an entry and persists.
func (m *Manager) AddScheduleEntry(entry ScheduleEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Schedule = append(m.state.Schedule, entry)
	m.save()
}

// CheckDueEvents flips the notified flag on every entry whose start time has
// passed and returns those entries. Each entry is returned at most once over
// its lifetime.
func (m *Manager) CheckDueEvents(now time.Time) []ScheduleEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []ScheduleEntry
	dirty := false
	for i := range m.state.Schedule {
		e := &m.state.Schedule[i]
		if e.Notified {
			continue
		}
		start, err := parseStartTime(e.StartTime)
		if err != nil {
			m.logger.Error().Str("entry", e.ID).Str("start_time", e.StartTime).Msg("invalid schedule time")
			continue
		}
		if !start.After(now) {
			e.Notified = true
			due = append(due, *e)
			dirty = true
		}
	}
	if dirty {
		m.save()
	}
	return due
}

// parseStartTime accepts ISO 8601 and the "YYYY-MM-DD HH:MM" form the
// reasoning backend tends to produce.
func parseStartTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// FindEntryByContent returns the first entry whose title or description
// contains the query, case-insensitive.
func (m *Manager) FindEntryByContent(query string) *ScheduleEntry {
	if query == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	for i := range m.state.Schedule {
		e := m.state.Schedule[i]
		if strings.Contains(strings.ToLower(e.Title), q) || strings.Contains(strings.ToLower(e.Description), q) {
			copy := e
			return &copy
		}
	}
	return nil
}

func (m *Manager) RemoveScheduleEntry(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.state.Schedule[:0]
	removed := false
	for _, e := range m.state.Schedule {
		if e.ID == id {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	m.state.Schedule = kept
	if removed {
		m.save()
	}
	return removed
}

func (m *Manager) UpdateScheduleEntry(id, newTitle, newDescription string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.Schedule {
		if m.state.Schedule[i].ID != id {
			continue
		}
		if newTitle != "" {
			m.state.Schedule[i].Title = newTitle
		}
		if newDescription != "" {
			m.state.Schedule[i].Description = newDescription
		}
		m.save()
		return true
	}
	return false
}
