package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		now:          time.Now,
	}, nil
}

// CreateToken generates a new PASETO v4.local token for subject
func (s *PasetoService) CreateToken(subject Subject, duration time.Duration) (*IssuedToken, error) {
	issuedAt, expiresAt := issueWindow(s.now(), duration)

	token := paseto.NewToken()
	token.SetIssuedAt(issuedAt)
	token.SetExpiration(expiresAt)
	token.SetString("user_id", subject.UserID.String())
	token.SetString("username", subject.Username)
	token.SetString("email", subject.Email)

	return &IssuedToken{
		Token:     token.V4Encrypt(s.symmetricKey, nil),
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken decrypts a PASETO v4.local token and returns the claims.
// Expiry is checked here rather than by a parser rule so that a token which
// authenticates but is past exp can be told apart from a forged one.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	parser := paseto.MakeParser(nil)

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	rawUserID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	username, err := token.GetString("username")
	if err != nil || username == "" {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		Subject: Subject{
			UserID:   userID,
			Username: username,
			Email:    email,
		},
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
