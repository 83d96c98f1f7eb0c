package main

import (
	"context"
	"log"
	"os"

	"github.com/caretsuite/sumsync/internal/cli"
	"github.com/caretsuite/sumsync/internal/config"
	"github.com/caretsuite/sumsync/internal/flagx"
	"github.com/caretsuite/sumsync/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(flagx.ConfigPathFlag())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
