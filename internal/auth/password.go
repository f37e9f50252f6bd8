package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 32
	// bcrypt rejects longer input.
	MaxPasswordBytes = 72

	passwordSymbols = "@!#$%&'()*+,-./[\\]^_`{|}~\""
)

// PolicyError explains the first password rule that failed.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// EvaluatePassword checks password strength. Rules run in a fixed order and
// the first failure is returned, so messages are deterministic.
func EvaluatePassword(password string) error {
	length := len([]rune(password))
	if length < MinPasswordLength {
		return &PolicyError{Reason: "The password is too short"}
	}
	if length > MaxPasswordLength || len(password) > MaxPasswordBytes {
		return &PolicyError{Reason: "The password is too long"}
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return &PolicyError{Reason: "The password must include at least one uppercase letter"}
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return &PolicyError{Reason: "The password must include at least one lowercase letter"}
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return &PolicyError{Reason: "The password must include at least one number"}
	}
	if !strings.ContainsAny(password, passwordSymbols) {
		return &PolicyError{Reason: "The password must include at least one symbol"}
	}
	if strings.ContainsFunc(password, unicode.IsSpace) {
		return &PolicyError{Reason: "The password must not contain spaces"}
	}
	return nil
}

// ValidateName applies the free-text naming rule used for category names
// and recipe titles: at least one letter or digit, no runs of spaces.
func ValidateName(field, value string) error {
	if !strings.ContainsFunc(value, func(r rune) bool {
		return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
	}) {
		return &PolicyError{Reason: fmt.Sprintf("The %s must contain at least one letter or number", field)}
	}
	if strings.Contains(value, "  ") {
		return &PolicyError{Reason: fmt.Sprintf("The %s has more than one space in a row", field)}
	}
	return nil
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares candidate against the user's bcrypt hash.
func VerifyPassword(user User, candidate string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}
