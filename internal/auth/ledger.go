package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"recipes-api/internal/apperr"
)

// Ledger records tokens that were explicitly logged out. Entries are never
// removed while the token could still verify.
type Ledger interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(database *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: database}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Revoke is idempotent: revoking an already revoked token is a no-op.
func (l *LedgerRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (token_hash, revoked_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO NOTHING
	`, hashToken(token), time.Now().UTC(), expiresAt.UTC())
	if err != nil {
		return apperr.Persistence("insert revoked token", err)
	}

	return nil
}

func (l *LedgerRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)
	`, hashToken(token)).Scan(&revoked)
	if err != nil {
		return false, apperr.Persistence("query revoked token", err)
	}

	return revoked, nil
}

// PurgeExpired deletes up to batchSize entries whose token expired before
// the given instant. Such tokens already fail verification.
func (l *LedgerRepository) PurgeExpired(ctx context.Context, before time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := l.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT token_hash
			FROM revoked_tokens
			WHERE expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
		)
		DELETE FROM revoked_tokens t
		USING stale
		WHERE t.token_hash = stale.token_hash
	`, before.UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired revoked tokens rows affected: %w", err)
	}

	return affected, nil
}
