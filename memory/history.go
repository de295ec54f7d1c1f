package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// History entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleLog       = "log"       // tool execution events
	RoleHeartbeat = "heartbeat" // pacemaker events
	RoleThought   = "thought"
	RoleAnalysis  = "analysis"
)

// Entry is one history record. Timestamp is unix seconds, matching the
// on-disk format.
type Entry struct {
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"`
}

// historyFile is the wholesale-rewritten on-disk structure.
type historyFile struct {
	Conversations []Entry `json:"conversations"`
	Thoughts      []Entry `json:"thoughts"`
}

// loadHistory reads the bound history file; a missing file is an empty
// history, not an error.
func loadHistory(path string) (historyFile, error) {
	var h historyFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return h, fmt.Errorf("read history: %w", err)
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("parse history: %w", err)
	}
	return h, nil
}

// saveHistory rewrites the whole file. The format has no partial-write
// protocol; callers tolerate the cost per mutation.
func saveHistory(path string, h historyFile) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// mergeByTimestamp interleaves two already-ordered streams.
func mergeByTimestamp(a, b []Entry) []Entry {
	merged := make([]Entry, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

func tail(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
