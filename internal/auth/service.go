package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/user"
)

var (
	// ErrInvalidCredentials is returned for both unknown usernames and wrong
	// passwords so the message cannot be used to enumerate accounts
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRegisterFields     = errors.New("username, email, and password are required")
	ErrLoginFields        = errors.New("username and password are required")
)

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	ExpiresIn int64
	User      *user.User
}

// Service handles identity business logic: registration, login and token verification
type Service struct {
	users    UserRepository
	tokens   TokenService
	hasher   *PasswordHasher
	logger   *logging.Logger
	tokenTTL time.Duration
}

func NewService(
	users UserRepository,
	tokens TokenService,
	hasher *PasswordHasher,
	logger *logging.Logger,
	tokenTTL time.Duration,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, ErrRegisterFields
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, username, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, user.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates a user and issues a bearer token
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrLoginFields
	}

	existingUser, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	issued, err := s.tokens.CreateToken(Subject{
		UserID:   existingUser.ID,
		Username: existingUser.Username,
		Email:    existingUser.Email,
	}, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &LoginResult{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		ExpiresIn: int64(s.tokenTTL.Seconds()),
		User:      existingUser,
	}, nil
}

// Verify validates a token without touching the user store.
// Returns ErrExpiredToken or ErrInvalidToken on failure.
func (s *Service) Verify(token string) (*TokenClaims, error) {
	return s.tokens.VerifyToken(token)
}
