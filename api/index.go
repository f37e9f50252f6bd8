package api

import (
	"context"
	"net/http"
	"sync"

	"recipes-api/internal/app"
	"recipes-api/internal/config"
	"recipes-api/internal/httpx"
)

var (
	initOnce   sync.Once
	apiRuntime *app.Runtime
	initErr    error
)

// Handler is the serverless entry point. The runtime is built on the first
// request and reused by warm invocations.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		cfg, err := config.Load(config.Options{})
		if err != nil {
			initErr = err
			return
		}
		cfg.RunMigrations = config.EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false)
		apiRuntime, initErr = app.Build(context.Background(), cfg)
	})

	if initErr != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "application bootstrap failed")
		return
	}

	apiRuntime.Handler.ServeHTTP(w, r)
}
