package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrUnavailable means the token could not be checked at all: the identity
// service timed out, refused the connection or answered with something other
// than a verdict. Callers must fail closed.
var ErrUnavailable = errors.New("authentication service unavailable")

// Identity is the authenticated caller as asserted by the token at issuance
type Identity struct {
	UserID   uuid.UUID
	Username string
	Email    string
}

// Verifier turns a bearer token into an Identity.
// Returns *RejectionError when the token was judged and refused,
// or an error wrapping ErrUnavailable when no verdict was reached.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// RejectionError carries the identity service's refusal so it can be
// relayed to the client unchanged.
type RejectionError struct {
	Status      int
	ContentType string
	Body        []byte
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("token rejected with status %d", e.Status)
}

// Respond writes the rejection as the response
func (e *RejectionError) Respond(w http.ResponseWriter) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}

type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity stores the caller's identity in the context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext returns the identity attached by the gate
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}
