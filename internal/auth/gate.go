package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recipes-api/internal/apperr"
	"recipes-api/internal/httpx"
)

// TokenHeader carries the access token on protected requests.
const TokenHeader = "X-Access-Token"

const (
	msgTokenMissing = "Token is missing"
	msgTokenInvalid = "Token is invalid"
	msgLoggedOut    = "Logged out, log in again"
)

type sessionContextKey struct{}

// Gate resolves a presented access token to a live user.
type Gate struct {
	issuer *TokenIssuer
	ledger Ledger
	users  UserStore
}

func NewGate(issuer *TokenIssuer, ledger Ledger, users UserStore) *Gate {
	return &Gate{issuer: issuer, ledger: ledger, users: users}
}

// Authenticate checks, in order: presence, signature and expiry, the
// revocation ledger, and that the named user still exists.
func (g *Gate) Authenticate(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperr.Unauthenticated(msgTokenMissing)
	}

	claims, err := g.issuer.Verify(token)
	if err != nil {
		return Session{}, apperr.Unauthenticated(msgTokenInvalid)
	}

	revoked, err := g.ledger.IsRevoked(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, apperr.Unauthenticated(msgLoggedOut)
	}

	user, err := g.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, apperr.Unauthenticated(msgTokenInvalid)
		}
		return Session{}, err
	}

	return Session{User: user, Token: token, Claims: claims}, nil
}

func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := g.Authenticate(r.Context(), r.Header.Get(TokenHeader))
		if err != nil {
			httpx.WriteAppError(w, r, err, "failed to authenticate")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(Session)
	return session, ok
}

// UserFromContext returns the authenticated user placed by Require.
func UserFromContext(ctx context.Context) (User, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return User{}, false
	}
	return session.User, true
}
