package main

import (
	"flag"
	"log"
	"os"

	"FinAlert/internal/di"
	"FinAlert/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s sources=%d collection_interval=%s alert_interval=%s",
		cfg.Environment, len(cfg.Feed.Sources), cfg.Scheduler.CollectionInterval, cfg.Scheduler.AlertInterval)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	runErr := app.Run()
	cleanup()
	if runErr != nil {
		log.Printf("app error: %v", runErr)
		os.Exit(1)
	}
}
