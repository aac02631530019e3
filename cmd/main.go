package main

import (
	"log"
	"os"

	"github.com/maildeck/core/internal/api"
	"github.com/maildeck/core/internal/cli"
	"github.com/maildeck/core/internal/config"
	"github.com/maildeck/core/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := ensureDataDirs(cfg); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	db, err := database.Initialize(cfg.DatabaseDSN, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Subcommand present: run the CLI instead of the server
	if len(os.Args) > 1 {
		cli.Execute(db, cfg)
		return
	}

	router, monitor := api.SetupRouter(db, cfg)
	defer monitor.Stop()

	log.Printf("Starting Maildeck server on port %s", cfg.APIPort)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Attachments directory: %s", cfg.GetAttachmentsBaseDir())
	if err := router.Run(":" + cfg.APIPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureDataDirs creates the data and attachment directories if absent
func ensureDataDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.GetAttachmentsBaseDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
