package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"

	"recipes-api/internal/apperr"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{3,50}$`)

const msgInvalidCredentials = "Invalid username or password"

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username,
			validation.Required,
			validation.Match(usernameRegex).Error("must be 3-50 characters of a-z, 0-9, '_', '.' or '-'"),
		),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

type ResetPasswordInput struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (in ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Old, validation.Required),
		validation.Field(&in.New, validation.Required),
	)
}

type Service struct {
	users    UserStore
	ledger   Ledger
	issuer   *TokenIssuer
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users UserStore, ledger Ledger, issuer *TokenIssuer) *Service {
	return &Service{
		users:    users,
		ledger:   ledger,
		issuer:   issuer,
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost used for new password hashes.
func (s *Service) WithHashCost(cost int) *Service {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.hashCost = cost
	}
	return s
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return User{}, apperr.FromValidation(err)
	}
	if err := ValidateName("username", in.Username); err != nil {
		return User{}, apperr.ValidationFields(err.Error(), map[string]string{"username": err.Error()})
	}
	if err := EvaluatePassword(in.Password); err != nil {
		return User{}, apperr.ValidationFields(err.Error(), map[string]string{"password": err.Error()})
	}

	hash, err := HashPassword(in.Password, s.hashCost)
	if err != nil {
		return User{}, err
	}

	return s.users.Create(ctx, in.Username, in.Email, hash)
}

// Login never reveals whether the username or the password was wrong.
func (s *Service) Login(ctx context.Context, in LoginInput) (Token, error) {
	if err := in.Validate(); err != nil {
		return Token{}, apperr.FromValidation(err)
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.burnCompare(in.Password)
			return Token{}, apperr.Unauthenticated(msgInvalidCredentials)
		}
		return Token{}, err
	}

	if !VerifyPassword(user, in.Password) {
		return Token{}, apperr.Unauthenticated(msgInvalidCredentials)
	}

	token, err := s.issuer.Issue(user.Username)
	if err != nil {
		return Token{}, fmt.Errorf("issue access token: %w", err)
	}

	return token, nil
}

// burnCompare spends one bcrypt comparison so unknown usernames take as
// long as wrong passwords.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.hashCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	return s.ledger.Revoke(ctx, session.Token, s.expiryOf(session))
}

func (s *Service) ResetPassword(ctx context.Context, session Session, in ResetPasswordInput) (User, error) {
	if err := in.Validate(); err != nil {
		return User{}, apperr.FromValidation(err)
	}

	user := session.User
	if !VerifyPassword(user, in.Old) {
		return User{}, apperr.ValidationFields("old password is not correct", map[string]string{"old": "is not correct"})
	}
	if err := EvaluatePassword(in.New); err != nil {
		return User{}, apperr.ValidationFields(err.Error(), map[string]string{"new": err.Error()})
	}

	hash, err := HashPassword(in.New, s.hashCost)
	if err != nil {
		return User{}, err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperr.Unauthenticated(msgTokenInvalid)
		}
		return User{}, err
	}

	user.PasswordHash = hash
	return user, nil
}

// DeleteAccount removes the user with everything they own and revokes the
// token the request was made with.
func (s *Service) DeleteAccount(ctx context.Context, session Session) error {
	if err := s.users.DeleteCascade(ctx, session.User.ID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperr.Unauthenticated(msgTokenInvalid)
		}
		return err
	}

	return s.ledger.Revoke(ctx, session.Token, s.expiryOf(session))
}

func (s *Service) expiryOf(session Session) time.Time {
	if session.Claims != nil && session.Claims.ExpiresAt != nil {
		return session.Claims.ExpiresAt.Time
	}
	return time.Now().UTC().Add(s.issuer.TTL())
}
