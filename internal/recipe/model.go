package recipe

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"recipes-api/internal/apperr"
	"recipes-api/internal/auth"
	"recipes-api/internal/category"
)

const (
	maxTitleLength = 150
	maxBodyLength  = 10000
)

type Recipe struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	CategoryID string    `json:"category_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryRef names a category by name; it is created when missing.
type CategoryRef struct {
	Name string `json:"name"`
}

type CreateInput struct {
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	CategoryID string       `json:"category_id"`
	Category   *CategoryRef `json:"category"`
}

func (in *CreateInput) Normalize() {
	in.Title = NormalizeTitle(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.Category != nil {
		in.Category.Name = category.NormalizeName(in.Category.Name)
	}
}

func (in CreateInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, titleRules()...),
		validation.Field(&in.Body, validation.Required, validation.Length(1, maxBodyLength)),
	)
	if err != nil {
		return err
	}

	hasName := in.Category != nil && in.Category.Name != ""
	switch {
	case in.CategoryID == "" && !hasName:
		return validation.Errors{"category_id": errors.New("category_id or category.name is required")}
	case in.CategoryID != "" && hasName:
		return validation.Errors{"category_id": errors.New("use either category_id or category.name, not both")}
	case hasName:
		if err := (category.Input{Name: in.Category.Name}).Validate(); err != nil {
			return validation.Errors{"category": err}
		}
	}
	return nil
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title      *string `json:"title"`
	Body       *string `json:"body"`
	CategoryID *string `json:"category_id"`
}

func (in *UpdateInput) Normalize() {
	if in.Title != nil {
		title := NormalizeTitle(*in.Title)
		in.Title = &title
	}
	if in.Body != nil {
		body := strings.TrimSpace(*in.Body)
		in.Body = &body
	}
	if in.CategoryID != nil {
		id := strings.TrimSpace(*in.CategoryID)
		in.CategoryID = &id
	}
}

func (in UpdateInput) Validate() error {
	if in.Title == nil && in.Body == nil && in.CategoryID == nil {
		return apperr.Validation("No input data provided")
	}

	errs := validation.Errors{}
	if in.Title != nil {
		errs["title"] = validation.Validate(*in.Title, titleRules()...)
	}
	if in.Body != nil {
		errs["body"] = validation.Validate(*in.Body, validation.Required, validation.Length(1, maxBodyLength))
	}
	if in.CategoryID != nil {
		errs["category_id"] = validation.Validate(*in.CategoryID, validation.Required)
	}
	return errs.Filter()
}

func titleRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, maxTitleLength),
		validation.By(func(value interface{}) error {
			return auth.ValidateName("title", value.(string))
		}),
	}
}

func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
