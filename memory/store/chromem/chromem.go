// Package chromem implements the long-term archive on chromem-go, a pure
// Go embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/animakit/anima/memory"
)

// Store keeps fragments in a chromem collection for similarity search and
// mirrors them in an insertion-ordered index for enumeration, which chromem
// does not expose.
type Store struct {
	col      *chromem.Collection
	embedder memory.Embedder
	logger   zerolog.Logger

	mu        sync.RWMutex
	fragments map[string]memory.Fragment
	order     []string

	dimsOnce sync.Once
	dims     int
	dimsErr  error
}

func New(embedder memory.Embedder, logger zerolog.Logger) (*Store, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("archive", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Store{
		col:       col,
		embedder:  embedder,
		logger:    logger.With().Str("component", "vectorstore").Logger(),
		fragments: make(map[string]memory.Fragment),
	}, nil
}

// Add embeds and stores the texts, returning the assigned ids.
func (s *Store) Add(ctx context.Context, texts []string, metadatas []map[string]string) ([]string, error) {
	if len(metadatas) != 0 && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("metadata count %d does not match text count %d", len(metadatas), len(texts))
	}

	ids := make([]string, 0, len(texts))
	for i, text := range texts {
		emb, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return ids, fmt.Errorf("embed text: %w", err)
		}

		var meta map[string]string
		if len(metadatas) != 0 {
			meta = metadatas[i]
		}

		id := uuid.NewString()
		doc := chromem.Document{
			ID:        id,
			Content:   text,
			Embedding: emb,
			Metadata:  meta,
		}
		if err := s.col.AddDocument(ctx, doc); err != nil {
			return ids, fmt.Errorf("add document: %w", err)
		}

		s.mu.Lock()
		s.fragments[id] = memory.Fragment{ID: id, Text: text, Embedding: emb, Metadata: meta}
		s.order = append(s.order, id)
		s.mu.Unlock()

		ids = append(ids, id)
	}
	return ids, nil
}

// Search embeds the query and returns up to k nearest fragments.
func (s *Store) Search(ctx context.Context, query string, k int) ([]memory.SearchHit, error) {
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.SearchByVector(ctx, emb, k)
}

// SearchByVector returns up to k nearest fragments for a raw vector.
// chromem rejects nResults larger than the collection, so k is clamped.
func (s *Store) SearchByVector(ctx context.Context, vec []float32, k int) ([]memory.SearchHit, error) {
	count := s.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.col.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]memory.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, memory.SearchHit{
			ID:       r.ID,
			Text:     r.Content,
			Score:    1 - r.Similarity,
			Metadata: r.Metadata,
		})
	}
	return hits, nil
}

// RetrieveRandom samples fragments by querying with a random unit vector.
// This approximates uniform sampling over the stored directions.
func (s *Store) RetrieveRandom(ctx context.Context, k int) ([]memory.SearchHit, error) {
	if s.col.Count() == 0 {
		return nil, nil
	}

	dims, err := s.dimensions(ctx)
	if err != nil {
		return nil, err
	}

	vec := make([]float32, dims)
	var norm float64
	for i := range vec {
		vec[i] = float32(rand.NormFloat64())
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
	} else {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}

	return s.SearchByVector(ctx, vec, k)
}

// CheckSimilarity reports whether the nearest stored fragment reaches the
// similarity threshold for the given text.
func (s *Store) CheckSimilarity(ctx context.Context, text string, threshold float64) (bool, error) {
	hits, err := s.Search(ctx, text, 1)
	if err != nil {
		return false, err
	}
	if len(hits) == 0 {
		return false, nil
	}
	similarity := 1 - float64(hits[0].Score)
	return similarity >= threshold, nil
}

// Fragments enumerates stored fragments in insertion order.
func (s *Store) Fragments(_ context.Context, offset, limit int) ([]memory.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) {
		return nil, nil
	}
	end := len(s.order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]memory.Fragment, 0, end-offset)
	for _, id := range s.order[offset:end] {
		out = append(out, s.fragments[id])
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		delete(s.fragments, id)
		drop[id] = struct{}{}
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return nil
}

func (s *Store) Count() int {
	return s.col.Count()
}

// dimensions probes the embedder once. Embedder.Dimensions may be unknown
// (0) for remote models until a first call is made.
func (s *Store) dimensions(ctx context.Context) (int, error) {
	s.dimsOnce.Do(func() {
		if d := s.embedder.Dimensions(); d > 0 {
			s.dims = d
			return
		}
		vec, err := s.embedder.Embed(ctx, "dimension probe")
		if err != nil {
			s.dimsErr = fmt.Errorf("probe embedding dimensions: %w", err)
			return
		}
		s.dims = len(vec)
	})
	return s.dims, s.dimsErr
}
