package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recipes-api/internal/apperr"
	"recipes-api/internal/db"
	"recipes-api/internal/pagination"
)

const (
	msgNotFound  = "Category not found"
	msgDuplicate = "A category with the same name already exists"
)

// Store keeps categories scoped to their owner. A category owned by another
// user is reported as not found.
type Store interface {
	Create(ctx context.Context, userID, name string) (Category, error)
	Get(ctx context.Context, userID, id string) (Category, error)
	Update(ctx context.Context, userID, id, name string) (Category, error)
	Delete(ctx context.Context, userID, id string) error
	Source(userID string) pagination.Source[Category]
}

type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

func (r *Repository) Create(ctx context.Context, userID, name string) (Category, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Category{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	c := Category{
		ID:        id.String(),
		UserID:    userID,
		Name:      NormalizeName(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, c.ID, c.UserID, c.Name, now)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return Category{}, apperr.Conflict(msgDuplicate)
		}
		return Category{}, apperr.Persistence("insert category", err)
	}

	return c, nil
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Category{}, apperr.NotFound(msgNotFound)
	}

	var c Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM categories
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, apperr.NotFound(msgNotFound)
		}
		return Category{}, apperr.Persistence("query category", err)
	}

	return c, nil
}

func (r *Repository) Update(ctx context.Context, userID, id, name string) (Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Category{}, apperr.NotFound(msgNotFound)
	}

	var c Category
	err := r.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, created_at, updated_at
	`, id, userID, NormalizeName(name), time.Now().UTC()).
		Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, apperr.NotFound(msgNotFound)
		}
		if _, ok := db.UniqueViolation(err); ok {
			return Category{}, apperr.Conflict(msgDuplicate)
		}
		return Category{}, apperr.Persistence("update category", err)
	}

	return c, nil
}

// Delete removes the category and its recipes in one transaction.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound(msgNotFound)
	}

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM recipes WHERE category_id = $1 AND user_id = $2
		`, id, userID); err != nil {
			return fmt.Errorf("delete category recipes: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete category rows affected: %w", err)
		}
		if affected == 0 {
			return apperr.NotFound(msgNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return apperr.Persistence("delete category", err)
	}

	return nil
}

func (r *Repository) Source(userID string) pagination.Source[Category] {
	return &source{db: r.db, userID: userID}
}

type source struct {
	db     *sql.DB
	userID string
}

func (s *source) where(search string) (string, []any) {
	if search == "" {
		return `WHERE user_id = $1`, []any{s.userID}
	}
	return `WHERE user_id = $1 AND name ILIKE $2 ESCAPE '\'`, []any{s.userID, pagination.ILikePattern(search)}
}

func (s *source) Count(ctx context.Context, search string) (int, error) {
	where, args := s.where(search)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories `+where, args...).Scan(&total); err != nil {
		return 0, apperr.Persistence("count categories", err)
	}

	return total, nil
}

func (s *source) Fetch(ctx context.Context, search string, limit, offset int) ([]Category, error) {
	where, args := s.where(search)
	n := len(args)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, name, created_at, updated_at
		FROM categories
		%s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, where, n+1, n+2), args...)
	if err != nil {
		return nil, apperr.Persistence("query categories", err)
	}
	defer rows.Close()

	categories := make([]Category, 0, limit)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.Persistence("scan category", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate categories", err)
	}

	return categories, nil
}
