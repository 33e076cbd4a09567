package main

import (
	"context"
	"os"

	"github.com/safar/license-store/internal/config"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/logging"
	"github.com/safar/license-store/migrations"
)

func main() {
	cfg := config.LoadDatabase()
	logger := logging.New(config.LogConfig{Level: "info", Format: "text"})

	if len(os.Args) < 2 {
		logger.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	run := migrations.Up
	switch os.Args[1] {
	case "up":
	case "down":
		run = migrations.Down
	default:
		logger.Fatal("Direction must be 'up' or 'down'")
	}

	db, err := database.NewConnection(&cfg)
	if err != nil {
		logger.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	applied, err := run(context.Background(), db)
	for _, name := range applied {
		logger.WithField("file", name).Info("Ran migration")
	}
	if err != nil {
		logger.Fatalf("Migrate %s: %v", os.Args[1], err)
	}

	logger.Infof("Successfully ran %d migration(s) %s", len(applied), os.Args[1])
}
