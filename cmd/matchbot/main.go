package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/itemforge/matchbot/internal/agent"
	"github.com/itemforge/matchbot/internal/api"
	"github.com/itemforge/matchbot/internal/db"
	"github.com/itemforge/matchbot/internal/participation"
)

func main() {
	log.Println("Starting matchbot agent...")

	// Local development reads a .env file; a missing file is fine, real
	// deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database only carries installation identity and the blacklist, so
	// a missing or unreachable one degrades the agent instead of killing it.
	var store *db.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		store, err = db.Connect(ctx, dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without blacklist persistence. Error: %v", err)
			store = nil
		} else {
			defer store.Close()
			if err := store.InitSchema(ctx); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set, continuing without a database")
	}

	rosterPath := getEnvOrDefault("MATCHBOT_CONFIG", "matchbot.toml")
	cfg, err := agent.LoadConfig(rosterPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	var guidStore agent.GUIDStore
	if store != nil {
		guidStore = store
	}
	guid, err := agent.ResolveGUID(ctx, guidStore, getEnvOrDefault("MATCHBOT_GUID_FILE", ".matchbot_guid"))
	if err != nil {
		log.Fatalf("FATAL: resolve installation GUID: %v", err)
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	var blacklist participation.BlacklistSource
	if store != nil {
		blacklist = store
	}
	host, err := agent.New(cfg, agent.Options{
		DirectoryURL: getEnvOrDefault("DIRECTORY_URL", "https://directory.itemforge.net"),
		Guid:         guid,
		Blacklist:    blacklist,
		Notify:       api.BroadcastEvent(wsHub),
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	go host.Run(ctx)

	r := api.SetupRouter(host, store, wsHub)

	port := getEnvOrDefault("PORT", "5871")
	log.Printf("Status API listening on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a default for non-secret
// settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
