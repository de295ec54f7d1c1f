package memory

// BufferLimit bounds the associative working set.
const BufferLimit = 5

// keepOnSpontaneous is how many standing entries survive a spontaneous
// recall. Buffer entries carry no embeddings, so the holdovers are taken by
// position rather than re-scored.
const keepOnSpontaneous = 2

// mergeSemantic rebuilds the buffer after a text-driven retrieval. New hits
// are assumed most relevant to the immediate exchange, so they go first;
// prior entries survive only if they are not duplicates and fit the limit.
func mergeSemantic(old, hits []SearchHit) []SearchHit {
	merged := make([]SearchHit, 0, len(hits)+len(old))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		merged = append(merged, h)
	}
	for _, item := range old {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}
	return truncateHits(merged, BufferLimit)
}

// mergeSpontaneous rebuilds the buffer after a random-vector recall: keep
// the first two standing entries as still-relevant holdovers, then inject
// the new hits for drift.
func mergeSpontaneous(old, hits []SearchHit) []SearchHit {
	if len(old) == 0 {
		return truncateHits(hits, BufferLimit)
	}

	keep := old
	if len(keep) > keepOnSpontaneous {
		keep = keep[:keepOnSpontaneous]
	}

	merged := make([]SearchHit, 0, len(keep)+len(hits))
	seen := make(map[string]struct{}, len(keep))
	for _, item := range keep {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}
	for _, h := range hits {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		merged = append(merged, h)
	}
	return truncateHits(merged, BufferLimit)
}

func truncateHits(hits []SearchHit, limit int) []SearchHit {
	if len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
