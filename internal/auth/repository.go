package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipes-api/internal/apperr"
	"recipes-api/internal/db"
)

var ErrUserNotFound = errors.New("user not found")

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	DeleteCascade(ctx context.Context, id string) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

func (r *Repository) Create(ctx context.Context, username, email, passwordHash string) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		ID:           id.String(),
		Username:     strings.ToLower(strings.TrimSpace(username)),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, user.ID, user.Username, user.Email, user.PasswordHash, now)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			switch constraint {
			case emailConstraint:
				return User{}, apperr.Conflict("A user with the same email already exists")
			default:
				return User{}, apperr.Conflict("A user with the same username already exists")
			}
		}
		return User{}, apperr.Persistence("insert user", err)
	}

	return user, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, "username", strings.ToLower(strings.TrimSpace(username)))
}

func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *Repository) getOne(ctx context.Context, column, value string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE `+column+` = $1
	`, value).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, apperr.Persistence("query user by "+column, err)
	}

	return user, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, passwordHash, time.Now().UTC())
	if err != nil {
		return apperr.Persistence("update password hash", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("update password rows affected", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DeleteCascade removes the user's recipes, then categories, then the user
// row in one transaction.
func (r *Repository) DeleteCascade(ctx context.Context, id string) error {
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user recipes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user categories: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete user rows affected: %w", err)
		}
		if affected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return apperr.Persistence("delete account", err)
	}

	return nil
}
