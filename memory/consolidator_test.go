package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct {
	calls [][]string
	err   error
}

func (s *stubSummarizer) Consolidate(_ context.Context, texts []string) (string, error) {
	s.calls = append(s.calls, texts)
	if s.err != nil {
		return "", s.err
	}
	return "merged: " + strings.Join(texts, " + "), nil
}

func frag(id string, emb []float32) Fragment {
	return Fragment{ID: id, Text: "fact " + id, Embedding: emb}
}

func TestClusterFragmentsGreedy(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	fragments := []Fragment{
		frag("a1", a), frag("a2", a), frag("a3", a), frag("a4", a),
		frag("b1", b), frag("b2", b),
	}

	clusters := clusterFragments(fragments, clusterThreshold, minClusterSize)

	require.Len(t, clusters, 1, "only the 4-strong cluster reaches min size")
	assert.Len(t, clusters[0], 4)
	for _, f := range clusters[0] {
		assert.True(t, strings.HasPrefix(f.ID, "a"))
	}
}

func TestClusterFragmentsBelowThresholdStaysApart(t *testing.T) {
	fragments := []Fragment{
		frag("a", []float32{1, 0, 0}),
		frag("b", []float32{0.8, 0.6, 0}), // dot 0.8 < threshold
		frag("c", []float32{0, 0, 1}),
	}
	assert.Empty(t, clusterFragments(fragments, clusterThreshold, minClusterSize))
}

func TestConsolidatorMergesCluster(t *testing.T) {
	emb := []float32{0, 1, 0}
	store := &stubStore{}
	for i := 0; i < 4; i++ {
		store.fragments = append(store.fragments, frag(fmt.Sprintf("dup%d", i), emb))
	}
	store.fragments = append(store.fragments,
		frag("solo1", []float32{1, 0, 0}),
		frag("solo2", []float32{0, 0, 1}),
	)

	summarizer := &stubSummarizer{}
	c := NewConsolidator(store, summarizer, zerolog.Nop())

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, summarizer.calls, 1)
	assert.Len(t, summarizer.calls[0], 4)
	assert.Len(t, store.deleted, 4)
	require.Len(t, store.added, 1)
	assert.Contains(t, store.added[0], "merged:")
	// 6 originals - 4 merged members + 1 consolidated fact
	assert.Equal(t, 3, store.Count())
}

func TestConsolidatorSkipsSmallArchives(t *testing.T) {
	store := &stubStore{fragments: []Fragment{
		frag("a", []float32{1, 0}), frag("b", []float32{1, 0}),
	}}
	summarizer := &stubSummarizer{}
	c := NewConsolidator(store, summarizer, zerolog.Nop())

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, summarizer.calls)
	assert.Empty(t, store.deleted)
}

func TestConsolidatorKeepsMembersOnSummarizerError(t *testing.T) {
	emb := []float32{0, 1, 0}
	store := &stubStore{}
	for i := 0; i < 5; i++ {
		store.fragments = append(store.fragments, frag(fmt.Sprintf("dup%d", i), emb))
	}

	summarizer := &stubSummarizer{err: fmt.Errorf("backend down")}
	c := NewConsolidator(store, summarizer, zerolog.Nop())

	require.NoError(t, c.Run(context.Background()), "per-cluster failures do not fail the pass")
	assert.Empty(t, store.deleted)
	assert.Empty(t, store.added)
	assert.Equal(t, 5, store.Count())
}
