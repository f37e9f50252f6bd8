package category

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"recipes-api/internal/auth"
)

const maxNameLength = 100

type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Input struct {
	Name string `json:"name"`
}

// Normalize trims and lower-cases the name so "Soup" and "soup" collide.
func (in *Input) Normalize() {
	in.Name = NormalizeName(in.Name)
}

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required,
			validation.Length(1, maxNameLength),
			validation.By(func(value interface{}) error {
				return auth.ValidateName("name", value.(string))
			}),
		),
	)
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
