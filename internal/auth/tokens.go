package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/redmonkez12/go-task-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// NewTokenService builds the token implementation selected by format
func NewTokenService(format string, secret []byte) (TokenService, error) {
	switch format {
	case config.TokenFormatJWT:
		return NewJWTService(secret)
	case config.TokenFormatPaseto:
		return NewPasetoService(secret)
	default:
		return nil, fmt.Errorf("unsupported token format %q", format)
	}
}

// issueWindow returns the issued-at and expiry instants of a new token.
// Both token formats store whole seconds, so the window is truncated to match.
func issueWindow(now time.Time, duration time.Duration) (time.Time, time.Time) {
	issuedAt := now.UTC().Truncate(time.Second)
	return issuedAt, issuedAt.Add(duration)
}
