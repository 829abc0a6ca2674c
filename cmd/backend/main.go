package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/doorlock/internal/backend"
	"github.com/dmitrijs2005/doorlock/internal/backend/config"
	"github.com/dmitrijs2005/doorlock/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))

	app, err := backend.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		return 1
	}
	return 0
}
