package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/animakit/anima/pkg/log"
)

// Config is built once in main and handed to every component that needs it.
// There is no global lookup; anything not reachable through this struct is
// not configuration.
type Config struct {
	DataDir     string `env:"ANIMA_DATA_DIR" envDefault:".anima"`
	Debug       bool   `env:"ANIMA_DEBUG" envDefault:"false"`
	ProfilePath string `env:"ANIMA_PROFILE_PATH" envDefault:"character.json"`

	// Context assembly limits.
	ConversationLimit int `env:"ANIMA_CONVERSATION_LIMIT" envDefault:"40"`
	ThoughtLimit      int `env:"ANIMA_THOUGHT_LIMIT" envDefault:"20"`

	// Reasoning backend.
	Model     string `env:"ANIMA_MODEL" envDefault:"claude-sonnet-4-20250514"`
	MaxTokens int64  `env:"ANIMA_MAX_TOKENS" envDefault:"4096"`

	// Long-term memory.
	DuplicateThreshold  float64       `env:"ANIMA_DUPLICATE_THRESHOLD" envDefault:"0.85"`
	ConsolidateInterval time.Duration `env:"ANIMA_CONSOLIDATE_INTERVAL" envDefault:"24h"`

	// Local embedder (used only with the onnx build tag).
	ONNXModelPath     string `env:"ANIMA_ONNX_MODEL_PATH"`
	ONNXTokenizerPath string `env:"ANIMA_ONNX_TOKENIZER_PATH"`
	ONNXLibraryPath   string `env:"ANIMA_ONNX_LIBRARY_PATH"`

	// Web search tool.
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GoogleCSEID  string `env:"GOOGLE_CSE_ID"`

	// Websocket gateway.
	ListenAddr string `env:"ANIMA_LISTEN_ADDR" envDefault:":8700"`
}

// IsDebug reads the debug flag before the full config exists, so the logger
// can be built first.
func IsDebug() bool {
	return os.Getenv("ANIMA_DEBUG") == "true"
}

func New(ctx context.Context) *Config {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse config")
	}
	return c
}

// CharacterDir returns the directory holding a character's persistent files
// (state.json, history.json, vector store).
func (c *Config) CharacterDir(characterID string) string {
	return filepath.Join(c.DataDir, "characters", characterID)
}

func (c *Config) HistoryPath(characterID string) string {
	return filepath.Join(c.CharacterDir(characterID), "history.json")
}

func (c *Config) StatePath(characterID string) string {
	return filepath.Join(c.CharacterDir(characterID), "state.json")
}
