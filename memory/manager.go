package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Association update modes, selected by trigger type.
type Mode int

const (
	// ModeSemantic retrieves by the current exchange's text.
	ModeSemantic Mode = iota
	// ModeSpontaneous retrieves by a random unit vector, simulating
	// unprompted recall on idle ticks.
	ModeSpontaneous
)

const associationHits = 3

// Config tunes the manager. Zero values fall back to defaults.
type Config struct {
	// ConversationLimit / ThoughtLimit bound the assembled context.
	ConversationLimit int
	ThoughtLimit      int

	// DuplicateThreshold is the similarity above which an archive write is
	// skipped as a duplicate.
	DuplicateThreshold float64
}

func (c *Config) applyDefaults() {
	if c.ConversationLimit == 0 {
		c.ConversationLimit = 40
	}
	if c.ThoughtLimit == 0 {
		c.ThoughtLimit = 20
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = 0.85
	}
}

// Manager owns short-term history, the associative buffer, and the archive
// write path. A nil store disables long-term memory; history still works.
type Manager struct {
	cfg    Config
	store  VectorStore
	logger zerolog.Logger

	mu            sync.Mutex
	path          string
	conversations []Entry
	thoughts      []Entry
	buffer        []SearchHit
}

func NewManager(store VectorStore, cfg Config, logger zerolog.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "memory").Logger(),
	}
}

// BindHistory attaches the manager to a history file and loads it.
func (m *Manager) BindHistory(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := loadHistory(path)
	if err != nil {
		return err
	}
	m.path = path
	m.conversations = h.Conversations
	m.thoughts = h.Thoughts
	m.logger.Info().Str("path", path).
		Int("conversations", len(h.Conversations)).
		Int("thoughts", len(h.Thoughts)).
		Msg("history bound")
	return nil
}

// persist rewrites the history file; caller holds the lock.
func (m *Manager) persist() {
	if m.path == "" {
		return
	}
	h := historyFile{Conversations: m.conversations, Thoughts: m.thoughts}
	if err := saveHistory(m.path, h); err != nil {
		m.logger.Error().Err(err).Msg("failed to save history")
	}
}

func (m *Manager) append(stream *[]Entry, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*stream = append(*stream, Entry{
		Role:      role,
		Content:   content,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	})
	m.persist()
}

// AddInteraction records a dialogue turn (user or assistant).
func (m *Manager) AddInteraction(role, content string) {
	m.append(&m.conversations, role, content)
}

// AddSystemEvent records a tool execution log entry.
func (m *Manager) AddSystemEvent(content string) {
	m.append(&m.conversations, RoleLog, content)
}

// AddHeartbeatEvent records a pacemaker-originated event.
func (m *Manager) AddHeartbeatEvent(content string) {
	m.append(&m.conversations, RoleHeartbeat, content)
}

// AddThought records internal monologue.
func (m *Manager) AddThought(content string) {
	m.append(&m.thoughts, RoleThought, content)
}

// AddAnalysis records chain-of-thought analysis. Analysis is persisted but
// never fed back into the conversational context.
func (m *Manager) AddAnalysis(content string) {
	m.append(&m.thoughts, RoleAnalysis, content)
}

// IsEmpty reports whether any conversation exists.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations) == 0
}

// LastTimestamp returns the unix time of the newest entry across streams,
// or 0 when the history is empty.
func (m *Manager) LastTimestamp() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last float64
	if n := len(m.conversations); n > 0 {
		last = m.conversations[n-1].Timestamp
	}
	if n := len(m.thoughts); n > 0 && m.thoughts[n-1].Timestamp > last {
		last = m.thoughts[n-1].Timestamp
	}
	return last
}

// ContextHistory returns the merged recent window of conversations and
// thoughts, ordered by timestamp.
func (m *Manager) ContextHistory() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mergeByTimestamp(
		tail(m.conversations, m.cfg.ConversationLimit),
		tail(m.thoughts, m.cfg.ThoughtLimit),
	)
}

// FormattedHistory collapses the context window to user/assistant roles for
// backend consumption. Analysis entries are excluded.
func (m *Manager) FormattedHistory() []Entry {
	raw := m.ContextHistory()
	out := make([]Entry, 0, len(raw))
	for _, e := range raw {
		switch e.Role {
		case RoleUser, RoleAssistant:
			out = append(out, e)
		case RoleLog:
			out = append(out, Entry{Role: RoleUser, Content: "[System Event] " + e.Content, Timestamp: e.Timestamp})
		case RoleHeartbeat:
			out = append(out, Entry{Role: RoleUser, Content: "[Heartbeat] " + e.Content, Timestamp: e.Timestamp})
		case RoleThought:
			out = append(out, Entry{Role: RoleAssistant, Content: "[Thought] " + e.Content, Timestamp: e.Timestamp})
		}
	}
	return out
}

// ContextText renders the last limit conversation entries as plain text for
// use as a retrieval query.
func (m *Manager) ContextText(limit int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	recent := tail(m.conversations, limit)
	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Role, e.Content))
	}
	return strings.Join(lines, "\n")
}

// UpdateAssociations rebuilds the associative buffer. Retrieval failures
// leave the buffer untouched; recall is best-effort.
func (m *Manager) UpdateAssociations(ctx context.Context, text string, mode Mode) {
	if m.store == nil {
		return
	}

	var hits []SearchHit
	var err error
	switch mode {
	case ModeSpontaneous:
		hits, err = m.store.RetrieveRandom(ctx, associationHits)
	default:
		query := m.ContextText(5)
		if text != "" {
			query += "\nUser Input: " + text
		}
		hits, err = m.store.Search(ctx, query, associationHits)
	}
	if err != nil {
		m.logger.Error().Err(err).Int("mode", int(mode)).Msg("association retrieval failed")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == ModeSpontaneous {
		m.buffer = mergeSpontaneous(m.buffer, hits)
	} else {
		m.buffer = mergeSemantic(m.buffer, hits)
	}
	m.logger.Debug().Int("hits", len(hits)).Int("buffer", len(m.buffer)).Msg("associations updated")
}

// Associations returns a copy of the current buffer.
func (m *Manager) Associations() []SearchHit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SearchHit(nil), m.buffer...)
}

// AssociationContext renders the buffer for prompt injection, each entry
// tagged with its relative time and raw score.
func (m *Manager) AssociationContext() []string {
	return FormatHits(m.Associations(), time.Now())
}

// Archive writes a fact to long-term memory. When dedupe is set and the
// nearest stored fragment reaches the duplicate threshold, the write is
// skipped with skipped=true; that is a distinct status, not an error.
func (m *Manager) Archive(ctx context.Context, text string, metadata map[string]string, dedupe bool) (id string, skipped bool, err error) {
	if m.store == nil {
		return "", false, fmt.Errorf("long-term memory disabled")
	}

	if dedupe {
		dup, err := m.store.CheckSimilarity(ctx, text, m.cfg.DuplicateThreshold)
		if err != nil {
			return "", false, fmt.Errorf("duplicate check: %w", err)
		}
		if dup {
			m.logger.Info().Str("text", snippet(text, 40)).Msg("duplicate memory skipped")
			return "", true, nil
		}
	}

	if metadata == nil {
		metadata = map[string]string{}
	}
	if _, ok := metadata["timestamp"]; !ok {
		metadata["timestamp"] = fmt.Sprintf("%d", time.Now().Unix())
	}

	ids, err := m.store.Add(ctx, []string{text}, []map[string]string{metadata})
	if err != nil {
		return "", false, fmt.Errorf("archive: %w", err)
	}
	return ids[0], false, nil
}

// Recall searches the archive directly, bypassing the buffer.
func (m *Manager) Recall(ctx context.Context, query string, k int) ([]SearchHit, error) {
	if m.store == nil {
		return nil, fmt.Errorf("long-term memory disabled")
	}
	return m.store.Search(ctx, query, k)
}

func snippet(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
