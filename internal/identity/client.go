package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/httputil"
)

const (
	validatePath     = "/auth/validate"
	maxResponseBytes = 64 << 10
	defaultBackoff   = 100 * time.Millisecond
)

// Client verifies tokens by calling the identity service's validate endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry retries unavailable results up to maxRetries times with
// exponential backoff. Rejections are never retried.
func WithRetry(maxRetries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// NewClient creates a client for the identity service at baseURL.
// timeout bounds each validate call.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	return c
}

// Verify asks the identity service whether token is valid
func (c *Client) Verify(ctx context.Context, token string) (*Identity, error) {
	if c.maxRetries <= 0 {
		return c.verifyOnce(ctx, token)
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(c.backoff))
	id, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*Identity, error) {
		id, err := c.verifyOnce(ctx, token)
		if errors.Is(err, ErrUnavailable) {
			return nil, retry.RetryableError(err)
		}
		return id, err
	})
	if err != nil {
		var rejection *RejectionError
		if !errors.As(err, &rejection) && !errors.Is(err, ErrUnavailable) {
			// Caller's context ended while waiting between attempts
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return id, nil
}

func (c *Client) verifyOnce(ctx context.Context, token string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+validatePath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeValidateResponse(body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &RejectionError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}

func decodeValidateResponse(body []byte) (*Identity, error) {
	var payload auth.ValidateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed validate response: %v", ErrUnavailable, err)
	}

	if !payload.Valid {
		return nil, newRejection(http.StatusUnauthorized, httputil.ErrorResponse{
			Error: "invalid token",
			Code:  httputil.CodeInvalidToken,
		})
	}

	if payload.User.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: validate response has no user id", ErrUnavailable)
	}

	return &Identity{
		UserID:   payload.User.UserID,
		Username: payload.User.Username,
		Email:    payload.User.Email,
	}, nil
}

func newRejection(status int, body httputil.ErrorResponse) *RejectionError {
	data, _ := json.Marshal(body)
	return &RejectionError{
		Status:      status,
		ContentType: "application/json",
		Body:        append(data, '\n'),
	}
}
