//go:build onnx

package main

import (
	"github.com/rs/zerolog"

	"github.com/animakit/anima/config"
	"github.com/animakit/anima/memory"
	"github.com/animakit/anima/memory/embedder/onnx"
)

func newEmbedder(cfg *config.Config, logger zerolog.Logger) (memory.Embedder, error) {
	return onnx.New(onnx.Config{
		ModelPath:     cfg.ONNXModelPath,
		TokenizerPath: cfg.ONNXTokenizerPath,
		LibraryPath:   cfg.ONNXLibraryPath,
	}, logger)
}
