package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/animakit/anima/config"
	"github.com/animakit/anima/pkg/log"
	"github.com/animakit/anima/pkg/srv"
)

func main() {
	// .env must be in the environment before the logger reads the debug flag
	if err := initEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// logger setup
	var flushLog func()
	ctx, flushLog = log.NewContextWithLogger(ctx, config.IsDebug())
	defer flushLog()

	logger := log.FromCtx(ctx)
	logger.Info().Msg("starting anima")

	services := NewServices(ctx)

	srv.StartServices(ctx, services)

	srv.ShutdownServices(ctx, services)
	logger.Info().Msg("anima has been shut down gracefully")
}
