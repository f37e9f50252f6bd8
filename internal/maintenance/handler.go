package maintenance

import (
	"context"
	"net/http"
	"strings"
	"time"

	"recipes-api/internal/httpx"
	"recipes-api/internal/observability"
)

// RevokedTokenPurger drops ledger entries whose tokens can no longer verify.
type RevokedTokenPurger interface {
	PurgeExpired(ctx context.Context, before time.Time, batchSize int) (int64, error)
}

type CleanupResult struct {
	DeletedRevokedTokens int64 `json:"deleted_revoked_tokens"`
}

type CleanupHandler struct {
	purger     RevokedTokenPurger
	logger     *observability.Logger
	cronSecret string
	batchSize  int
	now        func() time.Time
}

func NewCleanupHandler(purger RevokedTokenPurger, logger *observability.Logger, cronSecret string, batchSize int) *CleanupHandler {
	return &CleanupHandler{
		purger:     purger,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Handle is disabled (404) unless a cron secret is configured; callers
// present it as a bearer token.
func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		httpx.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deleted, err := h.purger.PurgeExpired(r.Context(), h.now().UTC(), h.batchSize)
	if err != nil {
		h.logger.Error("revoked_token_cleanup_failed", map[string]any{"error": err.Error()})
		observability.CaptureError(r.Context(), err)
		httpx.WriteError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	result := CleanupResult{DeletedRevokedTokens: deleted}
	h.logger.Info("revoked_token_cleanup_completed", map[string]any{
		"deleted_revoked_tokens": result.DeletedRevokedTokens,
	})

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}
