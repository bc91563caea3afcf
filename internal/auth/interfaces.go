package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-task-api/internal/user"
)

// TokenService defines the interface for token creation and validation.
// Implementations are JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(subject Subject, duration time.Duration) (*IssuedToken, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository is the identity store used by Service
type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

// Subject is the identity embedded into a token at issuance
type Subject struct {
	UserID   uuid.UUID
	Username string
	Email    string
}

// TokenClaims represents the claims carried by a verified token.
// They reflect the user at issuance time, not the current row.
type TokenClaims struct {
	Subject
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed bearer token
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
