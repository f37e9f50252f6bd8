package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"recipes-api/internal/apperr"
)

type memUsers struct {
	mu     sync.Mutex
	byName map[string]User
	seq    int
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{byName: map[string]User{}}
}

func (m *memUsers) Create(_ context.Context, username, email, hash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return User{}, m.err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.byName {
		if u.Username == username {
			return User{}, apperr.Conflict("A user with the same username already exists")
		}
		if u.Email == email {
			return User{}, apperr.Conflict("A user with the same email already exists")
		}
	}
	m.seq++
	now := time.Now().UTC()
	u := User{ID: fmt.Sprintf("user-%d", m.seq), Username: username, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	m.byName[username] = u
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return User{}, m.err
	}
	u, ok := m.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, u := range m.byName {
		if u.ID == id {
			u.PasswordHash = hash
			m.byName[name] = u
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *memUsers) DeleteCascade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, u := range m.byName {
		if u.ID == id {
			delete(m.byName, name)
			return nil
		}
	}
	return ErrUserNotFound
}

type memLedger struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemLedger() *memLedger {
	return &memLedger{revoked: map[string]time.Time{}}
}

func (m *memLedger) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.revoked[token]; !ok {
		m.revoked[token] = expiresAt
	}
	return nil
}

func (m *memLedger) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[token]
	return ok, nil
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(now time.Time) *TokenIssuer {
	issuer := NewTokenIssuer([]byte(testSecret), 2*time.Hour)
	issuer.now = func() time.Time { return now }
	return issuer
}
