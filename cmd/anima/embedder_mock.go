//go:build !onnx

package main

import (
	"github.com/rs/zerolog"

	"github.com/animakit/anima/config"
	"github.com/animakit/anima/memory"
	"github.com/animakit/anima/memory/embedder/mock"
)

// newEmbedder returns the deterministic hash embedder. Build with the onnx
// tag for real sentence embeddings.
func newEmbedder(_ *config.Config, logger zerolog.Logger) (memory.Embedder, error) {
	logger.Warn().Msg("using mock embedder; build with -tags onnx for real embeddings")
	return mock.New(), nil
}
