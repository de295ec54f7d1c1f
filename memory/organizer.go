package memory

import (
	"fmt"
	"strconv"
	"time"
)

// FormatHits renders search hits for prompt injection. Each line carries a
// relative-time tag derived from the fragment's metadata timestamp and the
// raw relevance score.
func FormatHits(hits []SearchHit, now time.Time) []string {
	formatted := make([]string, 0, len(hits))
	for _, h := range hits {
		prefix := ""
		if ts, ok := hitTimestamp(h); ok {
			prefix = fmt.Sprintf("[%s] ", relativeTimeTag(ts, now))
		}
		formatted = append(formatted, fmt.Sprintf("%s%s (Score: %.2f)", prefix, h.Text, h.Score))
	}
	return formatted
}

func hitTimestamp(h SearchHit) (time.Time, bool) {
	raw, ok := h.Metadata["timestamp"]
	if !ok {
		raw, ok = h.Metadata["created_at"]
	}
	if !ok {
		return time.Time{}, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0), true
}

// relativeTimeTag renders "Today HH:MM", "Yesterday", "2 Days Ago", or the
// absolute date beyond two days.
func relativeTimeTag(ts, now time.Time) string {
	tsY, tsM, tsD := ts.Date()
	nowY, nowM, nowD := now.Date()
	tsDate := time.Date(tsY, tsM, tsD, 0, 0, 0, 0, ts.Location())
	nowDate := time.Date(nowY, nowM, nowD, 0, 0, 0, 0, now.Location())
	days := int(nowDate.Sub(tsDate).Hours() / 24)

	switch days {
	case 0:
		return "Today " + ts.Format("15:04")
	case 1:
		return "Yesterday"
	case 2:
		return "2 Days Ago"
	default:
		return ts.Format("2006-01-02")
	}
}
