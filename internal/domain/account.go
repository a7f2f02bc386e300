package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// User is a registered account. PasswordHash and RefreshTokenHash never leave the service.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserRepository captures persistence operations for accounts.
// Lookups return (nil, nil) when nothing matches; CreateUser returns
// ErrConflict when the email is taken.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SetRefreshTokenHash(ctx context.Context, userID, hash string) error
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints and verifies session tokens.
type TokenIssuer interface {
	IssuePair(user User) (TokenPair, error)
	// ParseRefresh validates a refresh token and returns its subject.
	ParseRefresh(token string) (string, error)
}

// Session is an authenticated user with fresh tokens.
type Session struct {
	User   User
	Tokens TokenPair
}

// AccountService handles registration and the token lifecycle.
type AccountService struct {
	users      UserRepository
	tokens     TokenIssuer
	clock      func() time.Time
	bcryptCost int
}

// AccountOption configures optional behaviour for the AccountService.
type AccountOption func(*AccountService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AccountOption {
	return func(s *AccountService) {
		s.bcryptCost = cost
	}
}

// WithAccountClock overrides the source of the current instant.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		s.clock = clock
	}
}

// NewAccountService constructs an AccountService.
func NewAccountService(users UserRepository, tokens TokenIssuer, opts ...AccountOption) *AccountService {
	s := &AccountService{users: users, tokens: tokens, clock: time.Now, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput captures a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an account with a hashed password.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || strings.TrimSpace(input.Password) == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email address is malformed", ErrValidation)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.clock().UTC()
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

// Login verifies credentials and starts a session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user does not exist", ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	return s.startSession(ctx, *user)
}

// Refresh exchanges a valid refresh token for a rotated pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrUnauthenticated)
	}
	subject, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
	}

	user, err := s.users.GetUser(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil || user.RefreshTokenHash == "" || user.RefreshTokenHash != HashToken(refreshToken) {
		return nil, fmt.Errorf("%w: refresh token is expired or used", ErrUnauthenticated)
	}
	return s.startSession(ctx, *user)
}

// Logout forgets the stored refresh token so it can no longer be exchanged.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	return s.users.SetRefreshTokenHash(ctx, userID, "")
}

// CurrentUser loads the account behind an authenticated identity.
func (s *AccountService) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return user, nil
}

func (s *AccountService) startSession(ctx context.Context, user User) (*Session, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}
	user.RefreshTokenHash = HashToken(pair.RefreshToken)
	user.UpdatedAt = s.clock().UTC()
	if err := s.users.SetRefreshTokenHash(ctx, user.ID, user.RefreshTokenHash); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}
	return &Session{User: user, Tokens: pair}, nil
}

// HashToken returns the hex SHA-256 digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
