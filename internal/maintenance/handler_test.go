package maintenance

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipes-api/internal/observability"
)

type fakePurger struct {
	before    time.Time
	batchSize int
	deleted   int64
	err       error
	calls     int
}

func (f *fakePurger) PurgeExpired(_ context.Context, before time.Time, batchSize int) (int64, error) {
	f.calls++
	f.before = before
	f.batchSize = batchSize
	return f.deleted, f.err
}

func newHandler(purger *fakePurger, secret string) (*CleanupHandler, *bytes.Buffer) {
	var logs bytes.Buffer
	h := NewCleanupHandler(purger, observability.NewLoggerTo(&logs), secret, 250)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h, &logs
}

func cleanupRequest(method, token string) *http.Request {
	req := httptest.NewRequest(method, "/internal/maintenance/cleanup", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestCleanup_DisabledWithoutSecret(t *testing.T) {
	purger := &fakePurger{}
	h, _ := newHandler(purger, "")

	rec := httptest.NewRecorder()
	h.Handle(rec, cleanupRequest(http.MethodPost, "anything"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, purger.calls)
}

func TestCleanup_RequiresSecret(t *testing.T) {
	purger := &fakePurger{}
	h, _ := newHandler(purger, "cron-secret")

	rec := httptest.NewRecorder()
	h.Handle(rec, cleanupRequest(http.MethodPost, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Handle(rec, cleanupRequest(http.MethodDelete, "cron-secret"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, purger.calls)
}

func TestCleanup_PurgesExpiredTokens(t *testing.T) {
	purger := &fakePurger{deleted: 3}
	h, logs := newHandler(purger, "cron-secret")

	rec := httptest.NewRecorder()
	h.Handle(rec, cleanupRequest(http.MethodGet, "cron-secret"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","result":{"deleted_revoked_tokens":3}}`, rec.Body.String())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), purger.before)
	assert.Equal(t, 250, purger.batchSize)
	assert.Contains(t, logs.String(), "revoked_token_cleanup_completed")
}

func TestCleanup_Failure(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	h, logs := newHandler(purger, "cron-secret")

	rec := httptest.NewRecorder()
	h.Handle(rec, cleanupRequest(http.MethodPost, "cron-secret"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"cleanup failed"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "db down")
}
