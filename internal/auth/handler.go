package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/user"
)

// RateLimiter throttles credential endpoints per client IP
type RateLimiter interface {
	Allow(ctx context.Context, purpose, ip string) (bool, error)
	Reset(ctx context.Context, purpose, ip string) error
}

// Handler contains HTTP handlers for identity endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
}

// NewHandler creates the identity handler. rateLimiter may be nil.
func NewHandler(service *Service, rateLimiter RateLimiter) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	ExpiresIn int64        `json:"expires_in"`
	User      UserResponse `json:"user"`
}

// ClaimsResponse is the identity embedded in a validated token
type ClaimsResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// ValidateResponse is returned by /auth/validate to other services
type ValidateResponse struct {
	Valid     bool           `json:"valid"`
	User      ClaimsResponse `json:"user"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new user account with username, email and password.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Username or email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, logger, "register") {
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.With("username", req.Username)

	newUser, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicate):
			logger.Warn("registration failed: user already exists")
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeUserAlreadyExists, http.StatusConflict)
		case errors.Is(err, ErrRegisterFields):
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	httputil.RespondJSON(w, RegisterResponse{
		Message: "User registered successfully",
		User:    toUserResponse(newUser, true),
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with username and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, logger, "login") {
		return
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.With("username", req.Username)

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, ErrInvalidCredentials.Error(), httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrLoginFields):
			logger.Warn("login failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in successfully", "user_id", result.User.ID)

	// A successful login clears the failed attempts counted against this IP
	if h.rateLimiter != nil {
		if err := h.rateLimiter.Reset(r.Context(), "login", getClientIP(r)); err != nil {
			logger.Warn("failed to reset IP rate limit", "error", err.Error())
		}
	}

	httputil.RespondJSON(w, LoginResponse{
		Message:   "Login successful",
		Token:     result.Token,
		TokenType: result.TokenType,
		ExpiresAt: result.ExpiresAt,
		ExpiresIn: result.ExpiresIn,
		User:      toUserResponse(result.User, false),
	}, http.StatusOK)
}

// Validate verifies a bearer token for other services
// @Summary      Validate a bearer token
// @Description  Internal endpoint used by the task service. Returns the claims embedded at issuance.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ValidateResponse
// @Failure      401 {object} httputil.ErrorResponse "Missing, malformed, invalid or expired token"
// @Router       /auth/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token, err := ExtractBearerToken(r.Header.Get("Authorization"))
	if err == nil {
		var claims *TokenClaims
		claims, err = h.service.Verify(token)
		if err == nil {
			httputil.RespondJSON(w, ValidateResponse{
				Valid: true,
				User: ClaimsResponse{
					UserID:   claims.UserID,
					Username: claims.Username,
					Email:    claims.Email,
				},
				ExpiresAt: claims.ExpiresAt,
			}, http.StatusOK)
			return
		}
	}

	status, body := TokenErrorResponse(err)
	logger.Warn("token validation failed", "reason", body.Code)
	httputil.RespondJSON(w, body, status)
}

// allow applies the per-IP rate limit. Limiter failures let the request through.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, logger *logging.Logger, purpose string) bool {
	if h.rateLimiter == nil {
		return true
	}

	ip := getClientIP(r)
	allowed, err := h.rateLimiter.Allow(r.Context(), purpose, ip)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return true
	}
	if !allowed {
		logger.Warn("IP rate limit exceeded", "purpose", purpose, "ip", ip)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

func toUserResponse(u *user.User, withCreatedAt bool) UserResponse {
	resp := UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
	if withCreatedAt && !u.CreatedAt.IsZero() {
		createdAt := u.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

// getClientIP returns the request's IP. chi's RealIP middleware has already
// replaced RemoteAddr with X-Forwarded-For / X-Real-IP when present.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
