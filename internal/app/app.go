package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recipes-api/internal/auth"
	"recipes-api/internal/category"
	"recipes-api/internal/config"
	"recipes-api/internal/db"
	"recipes-api/internal/httpx"
	"recipes-api/internal/maintenance"
	"recipes-api/internal/observability"
	"recipes-api/internal/pagination"
	"recipes-api/internal/recipe"
)

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the stores behind the HTTP surface. Build fills them from
// postgres; tests substitute in-memory versions.
type Deps struct {
	Users      auth.UserStore
	Ledger     auth.Ledger
	Purger     maintenance.RevokedTokenPurger
	Categories category.Store
	Recipes    recipe.Store
	Pinger     Pinger
}

func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	logger := observability.NewLogger().With(map[string]any{"env": cfg.Environment})

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	ledger := auth.NewLedgerRepository(database)
	handler := NewHandler(cfg, Deps{
		Users:      auth.NewRepository(database),
		Ledger:     ledger,
		Purger:     ledger,
		Categories: category.NewRepository(database),
		Recipes:    recipe.NewRepository(database),
		Pinger:     database,
	}, logger)

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

// NewHandler wires services and routes over deps and wraps them in the
// recovery and request logging middleware.
func NewHandler(cfg *config.Config, deps Deps, logger *observability.Logger) http.Handler {
	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	gate := auth.NewGate(issuer, deps.Ledger, deps.Users)
	authService := auth.NewService(deps.Users, deps.Ledger, issuer).WithHashCost(cfg.BcryptCost)
	authHandler := auth.NewHandler(authService)

	defaults := pagination.Defaults{Limit: cfg.PageSize, MaxLimit: cfg.MaxPageSize}
	categoryHandler := category.NewHandler(deps.Categories, defaults)
	recipeHandler := recipe.NewHandler(deps.Recipes, deps.Categories, defaults)

	cleanupHandler := maintenance.NewCleanupHandler(deps.Purger, logger, cfg.CronSecret, cfg.RevokedTokenCleanupBatchSize)
	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)

	protected := func(h http.HandlerFunc) http.Handler {
		return gate.Require(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.Handle("POST /auth/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /auth/logout", protected(authHandler.Logout))
	mux.Handle("POST /auth/reset-password", protected(authHandler.ResetPassword))
	mux.Handle("GET /auth/me", protected(authHandler.Me))
	mux.Handle("DELETE /auth/me", protected(authHandler.DeleteAccount))

	for _, prefix := range []string{"/categories", "/categories/{$}"} {
		mux.Handle("GET "+prefix, protected(categoryHandler.List))
		mux.Handle("POST "+prefix, protected(categoryHandler.Create))
	}
	mux.Handle("GET /categories/{id}", protected(categoryHandler.Get))
	mux.Handle("PUT /categories/{id}", protected(categoryHandler.Update))
	mux.Handle("DELETE /categories/{id}", protected(categoryHandler.Delete))
	for _, prefix := range []string{"/categories/{id}/recipes", "/categories/{id}/recipes/{$}"} {
		mux.Handle("GET "+prefix, protected(recipeHandler.ListByCategory))
		mux.Handle("POST "+prefix, protected(recipeHandler.CreateInCategory))
	}

	for _, prefix := range []string{"/recipes", "/recipes/{$}"} {
		mux.Handle("GET "+prefix, protected(recipeHandler.List))
		mux.Handle("POST "+prefix, protected(recipeHandler.Create))
	}
	mux.Handle("GET /recipes/{id}", protected(recipeHandler.Get))
	mux.Handle("PUT /recipes/{id}", protected(recipeHandler.Update))
	mux.Handle("DELETE /recipes/{id}", protected(recipeHandler.Delete))

	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(deps.Pinger))

	return observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := pinger.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		httpx.WriteJSON(w, status, body)
	}
}
