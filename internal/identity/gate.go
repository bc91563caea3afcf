package identity

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/logging"
)

// Gate authenticates requests before they reach protected handlers
type Gate struct {
	verifier Verifier
}

func NewGate(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

// RequireAuth rejects requests without a verifiable bearer token and
// attaches the caller's Identity to the context otherwise.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			status, body := auth.TokenErrorResponse(err)
			logger.Warn("authentication failed", "reason", body.Code)
			httputil.RespondJSON(w, body, status)
			return
		}

		id, err := g.verifier.Verify(r.Context(), token)
		if err != nil {
			var rejection *RejectionError
			if errors.As(err, &rejection) {
				logger.Warn("token rejected", "status", rejection.Status)
				rejection.Respond(w)
				return
			}

			logger.Error("token verification unavailable", "error", err.Error())
			httputil.RespondErrorWithCode(w, ErrUnavailable.Error(), httputil.CodeAuthUnavailable, http.StatusInternalServerError)
			return
		}

		logging.AddRequestFields(r.Context(), "user_id", id.UserID)

		ctx := WithIdentity(r.Context(), id)
		ctx = logging.WithLogger(ctx, logger.With("user_id", id.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
