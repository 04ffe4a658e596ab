// Package config collects environment configuration for the server binary.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is everything the server needs from the environment.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// ProjectID selects the Firestore project. Empty runs the server on the
	// in-memory store (local mode).
	ProjectID string

	// Bucket is the GCS bucket for snapshot backups; empty disables the
	// backup endpoint.
	Bucket string

	// GenAIAPIKey authorizes the advisor; empty degrades AI features to
	// their fallbacks.
	GenAIAPIKey string

	// AuthSecret signs and verifies identity tokens. Empty runs the server
	// with a fixed local demo session instead of token auth.
	AuthSecret string
}

// Load reads the .env file if present, then the process environment.
func Load(log zerolog.Logger) Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using process environment")
	}

	cfg := Config{
		Port:        getenv("PORT", "8080"),
		ProjectID:   os.Getenv("FIRESTORE_PROJECT_ID"),
		Bucket:      os.Getenv("BACKUP_BUCKET"),
		GenAIAPIKey: os.Getenv("GEMINI_API_KEY"),
		AuthSecret:  os.Getenv("AUTH_SECRET"),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
