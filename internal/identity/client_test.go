package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/auth"
)

var aliceID = uuid.MustParse("7d1c3f9e-2b1a-4c55-9f0e-1a2b3c4d5e6f")

func validBody() auth.ValidateResponse {
	return auth.ValidateResponse{
		Valid: true,
		User: auth.ClaimsResponse{
			UserID:   aliceID,
			Username: "alice",
			Email:    "a@x.com",
		},
		ExpiresAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func newIdentityServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_Verify_Success(t *testing.T) {
	srv, calls := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/validate", r.URL.Path)
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, validBody())
	})

	c := NewClient(srv.URL+"/", time.Second)
	id, err := c.Verify(context.Background(), "tok123")
	require.NoError(t, err)

	assert.Equal(t, aliceID, id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Verify_ForwardsRejection(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, _ := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(status)
				w.Write([]byte(`{"error":"token has expired","code":"TOKEN_EXPIRED"}`))
			})

			_, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "tok")

			var rejection *RejectionError
			require.ErrorAs(t, err, &rejection)
			assert.Equal(t, status, rejection.Status)
			assert.Equal(t, "application/problem+json", rejection.ContentType)
			assert.JSONEq(t, `{"error":"token has expired","code":"TOKEN_EXPIRED"}`, string(rejection.Body))
			assert.NotErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestClient_Verify_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		}},
		{"bad gateway", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"unexpected status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>ok</html>"))
		}},
		{"missing user id", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"valid": true})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newIdentityServer(t, tc.handler)

			_, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "tok")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestClient_Verify_InvalidVerdictIsRejection(t *testing.T) {
	srv, _ := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
	})

	_, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "tok")

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, http.StatusUnauthorized, rejection.Status)
}

func TestClient_Verify_Timeout(t *testing.T) {
	srv, _ := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond).Verify(context.Background(), "tok")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_Verify_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Verify_NoRetryByDefault(t *testing.T) {
	srv, calls := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := NewClient(srv.URL, time.Second).Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Verify_RetriesUnavailable(t *testing.T) {
	var attempts atomic.Int32
	srv, calls := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, validBody())
	})

	c := NewClient(srv.URL, time.Second, WithRetry(3, time.Millisecond))
	id, err := c.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, aliceID, id.UserID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Verify_RetriesExhausted(t *testing.T) {
	srv, calls := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := NewClient(srv.URL, time.Second, WithRetry(2, time.Millisecond))
	_, err := c.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Verify_NeverRetriesRejection(t *testing.T) {
	srv, calls := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	})

	c := NewClient(srv.URL, time.Second, WithRetry(3, time.Millisecond))
	_, err := c.Verify(context.Background(), "tok")

	var rejection *RejectionError
	assert.True(t, errors.As(err, &rejection))
	assert.Equal(t, int32(1), calls.Load())
}

type recordingTransport struct {
	requests []*http.Request
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.requests = append(rt.requests, req)
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_Verify_CustomHTTPClient(t *testing.T) {
	srv, _ := newIdentityServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, validBody())
	})

	transport := &recordingTransport{}
	c := NewClient(srv.URL, time.Second, WithHTTPClient(&http.Client{Transport: transport}))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	_, err := c.Verify(ctx, "tok")
	require.NoError(t, err)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "req-42", transport.requests[0].Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "application/json", transport.requests[0].Header.Get("Accept"))
}
