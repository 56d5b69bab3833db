// Command server runs the MDX to DAX conversion HTTP API.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"mdx2dax/internal/app"
	"mdx2dax/internal/config"
)

func main() {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	a := app.New(app.Deps{Cfg: cfg, Logger: logger})

	logger.Info("conversion API listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, a.Handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
