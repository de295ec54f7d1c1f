// Package memory holds the character's three memory tiers: the persisted
// conversation/thought history, the bounded associative buffer of recalled
// long-term facts, and the embedded vector archive with its background
// consolidation pass.
package memory

import (
	"context"
)

// Fragment is one stored long-term memory. Text and embedding are immutable
// once stored; metadata may grow at consolidation time.
type Fragment struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// SearchHit is a read-only projection of a Fragment with a query-relative
// score. Score is cosine distance: lower means more similar.
type SearchHit struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]string
}

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VectorStore is the long-term archive backend.
type VectorStore interface {
	// Add embeds and stores the given texts, returning their ids.
	Add(ctx context.Context, texts []string, metadatas []map[string]string) ([]string, error)

	// Search returns up to k nearest fragments for a text query.
	Search(ctx context.Context, query string, k int) ([]SearchHit, error)

	// SearchByVector returns up to k nearest fragments for a raw vector.
	SearchByVector(ctx context.Context, vec []float32, k int) ([]SearchHit, error)

	// RetrieveRandom samples k fragments via a random unit vector query.
	RetrieveRandom(ctx context.Context, k int) ([]SearchHit, error)

	// CheckSimilarity reports whether any stored fragment's similarity to
	// text reaches threshold (similarity = 1 - distance).
	CheckSimilarity(ctx context.Context, text string, threshold float64) (bool, error)

	// Fragments enumerates stored fragments with their embeddings in
	// insertion order. limit <= 0 returns everything from offset.
	Fragments(ctx context.Context, offset, limit int) ([]Fragment, error)

	Delete(ctx context.Context, ids []string) error

	Count() int
}
