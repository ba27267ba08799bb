package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"pkg.world.dev/scrim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := scrim.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}

	if err := engine.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("Engine stopped with an error")
	}
}
