package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/redmonkez12/go-task-api/internal/httputil"
)

var (
	ErrMissingAuthHeader = errors.New("missing authentication")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
)

// ExtractBearerToken parses an Authorization header of the exact form "Bearer <token>"
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrInvalidAuthHeader
	}

	return token, nil
}

// TokenErrorResponse maps a bearer extraction or verification failure to the
// status and body both services send to clients
func TokenErrorResponse(err error) (int, httputil.ErrorResponse) {
	switch {
	case errors.Is(err, ErrMissingAuthHeader):
		return http.StatusUnauthorized, httputil.ErrorResponse{Error: "no authentication token provided", Code: httputil.CodeMissingAuth}
	case errors.Is(err, ErrInvalidAuthHeader):
		return http.StatusUnauthorized, httputil.ErrorResponse{Error: err.Error(), Code: httputil.CodeInvalidAuthHeader}
	case errors.Is(err, ErrExpiredToken):
		return http.StatusUnauthorized, httputil.ErrorResponse{Error: "token has expired", Code: httputil.CodeTokenExpired}
	default:
		return http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid token", Code: httputil.CodeInvalidToken}
	}
}
