package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwtClaims is the JWT payload: the identity plus registered exp/iat claims
type jwtClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 JWTs
type JWTService struct {
	secret []byte
	now    func() time.Time
}

func NewJWTService(secret []byte) (*JWTService, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}

	return &JWTService{
		secret: secret,
		now:    time.Now,
	}, nil
}

// CreateToken signs a token for subject that expires after duration
func (s *JWTService) CreateToken(subject Subject, duration time.Duration) (*IssuedToken, error) {
	issuedAt, expiresAt := issueWindow(s.now(), duration)

	claims := jwtClaims{
		UserID:   subject.UserID.String(),
		Username: subject.Username,
		Email:    subject.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// VerifyToken checks the signature first; only a correctly signed token can be reported as expired
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	claims := &jwtClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	result := &TokenClaims{
		Subject: Subject{
			UserID:   userID,
			Username: claims.Username,
			Email:    claims.Email,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}

	return result, nil
}
