package main

import (
	"context"
	"net/http"
	"os"

	"recipes-api/internal/app"
	"recipes-api/internal/config"
	"recipes-api/internal/observability"
)

func main() {
	logger := observability.NewLogger()

	cfg, err := config.Load(config.Options{LoadDotEnv: true})
	if err != nil {
		logger.Error("load_config_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	runtime, err := app.Build(context.Background(), cfg)
	if err != nil {
		logger.Error("bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer runtime.Close()

	logger.Info("server_start", map[string]any{"addr": cfg.Addr(), "env": cfg.Environment})
	if err := http.ListenAndServe(cfg.Addr(), runtime.Handler); err != nil {
		logger.Error("server_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
