package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/config"
	"github.com/animakit/anima/core"
	"github.com/animakit/anima/engine"
	"github.com/animakit/anima/gateway"
	"github.com/animakit/anima/memory"
	chromemstore "github.com/animakit/anima/memory/store/chromem"
	mindanthropic "github.com/animakit/anima/mind/anthropic"
	"github.com/animakit/anima/pkg/log"
	"github.com/animakit/anima/pkg/srv"
	"github.com/animakit/anima/tools"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)

	cfg := config.New(ctx)

	// 1. Character
	profile, err := loadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ProfilePath).Msg("failed to load character profile")
	}
	characters := character.NewManager(profile, cfg.StatePath(profile.Key()), *logger)

	// 2. Long-term memory
	embedder, err := newEmbedder(cfg, *logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedder")
	}
	cached, err := memory.NewCachedEmbedder(embedder, 4096)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedding cache")
	}
	store, err := chromemstore.New(cached, *logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vector store")
	}

	mem := memory.NewManager(store, memory.Config{
		ConversationLimit:  cfg.ConversationLimit,
		ThoughtLimit:       cfg.ThoughtLimit,
		DuplicateThreshold: cfg.DuplicateThreshold,
	}, *logger)
	if err := mem.BindHistory(cfg.HistoryPath(profile.Key())); err != nil {
		logger.Fatal().Err(err).Msg("failed to bind history")
	}

	// 3. Reasoning backend
	client := sdk.NewClient()
	brain := mindanthropic.New(&client, mindanthropic.Config{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	}, *logger)

	// 4. Tools
	registry := newRegistry(cfg, characters, mem, *logger)

	// 5. Engine, gateway, background services
	var services []srv.Service

	eng := engine.NewEngine(brain, registry, characters, mem, *logger)
	gw := gateway.New(cfg.ListenAddr, eng, *logger)
	eng.SetSpeaker(gw.Speak)
	services = append(services, gw)

	pacemaker := engine.NewPacemaker(characters, func(ctx context.Context, msg string) error {
		eng.OnSystemEvent(ctx, msg, 0, true)
		return nil
	}, *logger)
	services = append(services, pacemaker)

	consolidator := memory.NewConsolidator(store, brain, *logger)
	services = append(services, memory.NewConsolidationService(consolidator, cfg.ConsolidateInterval))

	seedSession(ctx, eng, mem, profile)

	return services
}

// seedSession inserts the opening beat: the profile's first message on a
// fresh history, or a return-of-the-user event when resuming.
func seedSession(ctx context.Context, eng *engine.Engine, mem *memory.Manager, profile *character.Profile) {
	if mem.IsEmpty() {
		if profile.FirstMessage != "" {
			mem.AddInteraction(memory.RoleAssistant, profile.FirstMessage)
		}
		return
	}

	last := mem.LastTimestamp()
	if last <= 0 {
		return
	}
	elapsed := time.Since(time.Unix(int64(last), 0)).Round(time.Second)
	msg := fmt.Sprintf("User entered the room. %s has passed since the last session.", elapsed)
	eng.OnSystemEvent(ctx, msg, 0, true)
}

func newRegistry(cfg *config.Config, characters *character.Manager, mem *memory.Manager, logger zerolog.Logger) *tools.Registry {
	registry := tools.NewRegistry(logger)

	registry.Register(core.ActionTalk, tools.NewTalkTool())

	rapport := tools.NewAdjustRapportTool()
	rapport.SetManager(characters)
	registry.Register(core.ActionAdjustRapport, rapport)

	registry.Register(core.ActionRemember, tools.NewRememberTool(mem))
	registry.Register(core.ActionRecall, tools.NewRecallTool(mem))
	registry.Register(core.ActionWebSearch, tools.NewWebSearchTool(cfg.GoogleAPIKey, cfg.GoogleCSEID))

	scheduleEvent := tools.NewScheduleEventTool()
	scheduleEvent.SetManager(characters)
	registry.Register(core.ActionScheduleEvent, scheduleEvent)

	checkSchedule := tools.NewCheckScheduleTool()
	checkSchedule.SetManager(characters)
	registry.Register(core.ActionCheckSchedule, checkSchedule)

	editSchedule := tools.NewEditScheduleTool()
	editSchedule.SetManager(characters)
	registry.Register(core.ActionEditSchedule, editSchedule)

	registry.Register(core.ActionGaze, tools.NewGazeTool())

	coreMemory := tools.NewUpdateCoreMemoryTool()
	coreMemory.SetManager(characters)
	registry.Register(core.ActionUpdateCoreMemory, coreMemory)

	return registry
}

func loadProfile(path string) (*character.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	profile := &character.Profile{}
	if err := json.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("profile has no name")
	}
	return profile, nil
}

func initEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(".env")
}
