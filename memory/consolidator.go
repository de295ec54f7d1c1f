package memory

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	// clusterThreshold is the cosine similarity above which fragments are
	// considered near-duplicates worth merging.
	clusterThreshold = 0.92

	// minClusterSize: smaller clusters are not worth a summarization call.
	minClusterSize = 3

	// minFragments: below this, consolidation is pointless.
	minFragments = 5

	fetchPage = 256
)

// Summarizer compresses a cluster of memory texts into one fact.
type Summarizer interface {
	Consolidate(ctx context.Context, texts []string) (string, error)
}

// Consolidator merges semantically redundant long-term fragments. Each
// cluster is handled best-effort: a failed merge leaves its members in
// place and the pass moves on.
type Consolidator struct {
	store      VectorStore
	summarizer Summarizer
	logger     zerolog.Logger
}

func NewConsolidator(store VectorStore, summarizer Summarizer, logger zerolog.Logger) *Consolidator {
	return &Consolidator{
		store:      store,
		summarizer: summarizer,
		logger:     logger.With().Str("component", "consolidator").Logger(),
	}
}

// Run executes one consolidation pass: single-pass greedy clustering over
// all stored fragments, then merge-and-replace per surviving cluster.
func (c *Consolidator) Run(ctx context.Context) error {
	fragments, err := c.fetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch fragments: %w", err)
	}
	if len(fragments) < minFragments {
		return nil
	}

	clusters := clusterFragments(fragments, clusterThreshold, minClusterSize)
	c.logger.Info().Int("fragments", len(fragments)).Int("clusters", len(clusters)).Msg("consolidation pass")

	for _, cluster := range clusters {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.merge(ctx, cluster); err != nil {
			c.logger.Error().Err(err).Int("size", len(cluster)).Msg("cluster merge failed, skipping")
		}
	}
	return nil
}

// fetchAll pages through the store; the clustering contract is independent
// of the fetch strategy.
func (c *Consolidator) fetchAll(ctx context.Context) ([]Fragment, error) {
	var all []Fragment
	for offset := 0; ; offset += fetchPage {
		page, err := c.store.Fragments(ctx, offset, fetchPage)
		if err != nil {
			return nil, err
		}
		for _, f := range page {
			if len(f.Embedding) > 0 {
				all = append(all, f)
			}
		}
		if len(page) < fetchPage {
			return all, nil
		}
	}
}

func (c *Consolidator) merge(ctx context.Context, cluster []Fragment) error {
	texts := make([]string, len(cluster))
	ids := make([]string, len(cluster))
	for i, f := range cluster {
		texts[i] = f.Text
		ids[i] = f.ID
	}

	merged, err := c.summarizer.Consolidate(ctx, texts)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if merged == "" {
		return fmt.Errorf("summarizer returned empty text")
	}

	meta := map[string]string{
		"kind":         "consolidated",
		"source_count": strconv.Itoa(len(cluster)),
		"timestamp":    strconv.FormatInt(time.Now().Unix(), 10),
	}
	if _, err := c.store.Add(ctx, []string{merged}, []map[string]string{meta}); err != nil {
		return fmt.Errorf("store consolidated fragment: %w", err)
	}
	if err := c.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete merged members: %w", err)
	}

	c.logger.Info().Int("merged", len(ids)).Str("fact", snippet(merged, 60)).Msg("consolidated")
	return nil
}

// clusterFragments runs single-pass greedy clustering: each unvisited
// fragment seeds a cluster that absorbs every other unvisited fragment
// above the similarity threshold.
func clusterFragments(fragments []Fragment, threshold float64, minSize int) [][]Fragment {
	vecs := make([][]float32, len(fragments))
	for i, f := range fragments {
		vecs[i] = normalizeVec(f.Embedding)
	}

	visited := make([]bool, len(fragments))
	var clusters [][]Fragment
	for i := range fragments {
		if visited[i] {
			continue
		}
		visited[i] = true
		cluster := []Fragment{fragments[i]}
		for j := range fragments {
			if visited[j] {
				continue
			}
			if float64(dot(vecs[i], vecs[j])) > threshold {
				visited[j] = true
				cluster = append(cluster, fragments[j])
			}
		}
		if len(cluster) >= minSize {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

func normalizeVec(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// ConsolidationService runs periodic consolidation passes as a background
// service.
type ConsolidationService struct {
	consolidator *Consolidator
	interval     time.Duration
	done         chan struct{}
}

func NewConsolidationService(c *Consolidator, interval time.Duration) *ConsolidationService {
	return &ConsolidationService{
		consolidator: c,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

func (s *ConsolidationService) Start(ctx context.Context) error {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.consolidator.Run(ctx); err != nil && ctx.Err() == nil {
				s.consolidator.logger.Error().Err(err).Msg("consolidation pass failed")
			}
		}
	}
}

func (s *ConsolidationService) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return nil
}
