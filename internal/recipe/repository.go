package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipes-api/internal/apperr"
	"recipes-api/internal/category"
	"recipes-api/internal/db"
	"recipes-api/internal/pagination"
)

const (
	msgNotFound         = "Recipe not found"
	msgDuplicate        = "A recipe with the same title already exists"
	msgCategoryNotFound = "Category not found"
)

// Store keeps recipes scoped to their owner. Recipes and categories owned
// by another user are reported as not found.
type Store interface {
	Create(ctx context.Context, userID string, in CreateInput) (Recipe, error)
	Get(ctx context.Context, userID, id string) (Recipe, error)
	Update(ctx context.Context, userID, id string, in UpdateInput) (Recipe, error)
	Delete(ctx context.Context, userID, id string) error
	// Source lists the user's recipes, or only those of categoryID when it
	// is not empty.
	Source(userID, categoryID string) pagination.Source[Recipe]
}

type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

const recipeColumns = `id, user_id, category_id, title, body, created_at, updated_at`

func scanRecipe(row interface{ Scan(...any) error }) (Recipe, error) {
	var rec Recipe
	err := row.Scan(&rec.ID, &rec.UserID, &rec.CategoryID, &rec.Title, &rec.Body, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// Create resolves the category and inserts the recipe in one transaction.
// A category given by name is created when the user has none by that name.
func (r *Repository) Create(ctx context.Context, userID string, in CreateInput) (Recipe, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Recipe{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	rec := Recipe{
		ID:        id.String(),
		UserID:    userID,
		Title:     NormalizeTitle(in.Title),
		Body:      strings.TrimSpace(in.Body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		categoryID, err := resolveCategory(ctx, tx, userID, in, now)
		if err != nil {
			return err
		}
		rec.CategoryID = categoryID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipes (id, user_id, category_id, title, body, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, rec.ID, rec.UserID, rec.CategoryID, rec.Title, rec.Body, now)
		if err != nil {
			if _, ok := db.UniqueViolation(err); ok {
				return apperr.Conflict(msgDuplicate)
			}
			return fmt.Errorf("insert recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return Recipe{}, classify("create recipe", err)
	}

	return rec, nil
}

func resolveCategory(ctx context.Context, tx db.DBTX, userID string, in CreateInput, now time.Time) (string, error) {
	if in.Category != nil && in.Category.Name != "" {
		newID, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate uuid v7: %w", err)
		}

		var categoryID string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO categories (id, user_id, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT ON CONSTRAINT categories_user_name_key
			DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, newID.String(), userID, category.NormalizeName(in.Category.Name), now).Scan(&categoryID)
		if err != nil {
			return "", fmt.Errorf("find or create category: %w", err)
		}
		return categoryID, nil
	}

	return in.CategoryID, ownedCategory(ctx, tx, userID, in.CategoryID)
}

func ownedCategory(ctx context.Context, tx db.DBTX, userID, categoryID string) error {
	if _, err := uuid.Parse(categoryID); err != nil {
		return apperr.NotFound(msgCategoryNotFound)
	}

	var found string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM categories WHERE id = $1 AND user_id = $2
	`, categoryID, userID).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(msgCategoryNotFound)
		}
		return fmt.Errorf("query category: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Recipe, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Recipe{}, apperr.NotFound(msgNotFound)
	}

	rec, err := scanRecipe(r.db.QueryRowContext(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recipe{}, apperr.NotFound(msgNotFound)
		}
		return Recipe{}, apperr.Persistence("query recipe", err)
	}

	return rec, nil
}

func (r *Repository) Update(ctx context.Context, userID, id string, in UpdateInput) (Recipe, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Recipe{}, apperr.NotFound(msgNotFound)
	}

	var rec Recipe
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		if in.CategoryID != nil {
			if err := ownedCategory(ctx, tx, userID, *in.CategoryID); err != nil {
				return err
			}
		}

		var err error
		rec, err = scanRecipe(tx.QueryRowContext(ctx, `
			UPDATE recipes
			SET title = COALESCE($3, title),
				body = COALESCE($4, body),
				category_id = COALESCE($5::uuid, category_id),
				updated_at = $6
			WHERE id = $1 AND user_id = $2
			RETURNING `+recipeColumns,
			id, userID, in.Title, in.Body, in.CategoryID, time.Now().UTC()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound(msgNotFound)
			}
			if _, ok := db.UniqueViolation(err); ok {
				return apperr.Conflict(msgDuplicate)
			}
			return fmt.Errorf("update recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return Recipe{}, classify("update recipe", err)
	}

	return rec, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound(msgNotFound)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Persistence("delete recipe", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("delete recipe rows affected", err)
	}
	if affected == 0 {
		return apperr.NotFound(msgNotFound)
	}

	return nil
}

// classify keeps client-facing kinds and marks everything else as a
// storage failure.
func classify(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) {
		return err
	}
	return apperr.Persistence(op, err)
}

func (r *Repository) Source(userID, categoryID string) pagination.Source[Recipe] {
	return &source{db: r.db, userID: userID, categoryID: categoryID}
}

type source struct {
	db         *sql.DB
	userID     string
	categoryID string
}

func (s *source) where(search string) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{s.userID}

	if s.categoryID != "" {
		args = append(args, s.categoryID)
		clauses = append(clauses, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if search != "" {
		args = append(args, pagination.ILikePattern(search))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR body ILIKE $%d ESCAPE '\')`, n, n))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (s *source) Count(ctx context.Context, search string) (int, error) {
	where, args := s.where(search)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes `+where, args...).Scan(&total); err != nil {
		return 0, apperr.Persistence("count recipes", err)
	}

	return total, nil
}

func (s *source) Fetch(ctx context.Context, search string, limit, offset int) ([]Recipe, error) {
	where, args := s.where(search)
	n := len(args)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM recipes
		%s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, recipeColumns, where, n+1, n+2), args...)
	if err != nil {
		return nil, apperr.Persistence("query recipes", err)
	}
	defer rows.Close()

	recipes := make([]Recipe, 0, limit)
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, apperr.Persistence("scan recipe", err)
		}
		recipes = append(recipes, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate recipes", err)
	}

	return recipes, nil
}
