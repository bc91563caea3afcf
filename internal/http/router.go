package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/identity"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/task"
)

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewIdentityRouter creates the identity service router
func NewIdentityRouter(cfg *config.Config, authHandler *auth.Handler, logger *logging.Logger) *chi.Mux {
	r := newBaseRouter(cfg, logger)

	r.Get("/health", healthHandler("identity"))

	r.Route("/auth", func(r chi.Router) {
		r.Get("/health", healthHandler("identity"))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/validate", authHandler.Validate)
	})

	return r
}

// NewTaskRouter creates the task service router. Every /tasks route except
// the health check passes through the gate.
func NewTaskRouter(cfg *config.Config, taskHandler *task.Handler, gate *identity.Gate, logger *logging.Logger) *chi.Mux {
	r := newBaseRouter(cfg, logger)

	r.Get("/health", healthHandler("tasks"))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/health", healthHandler("tasks"))

		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.List)
			r.Get("/{id}", taskHandler.Get)
			r.Put("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
		})
	})

	return r
}

func newBaseRouter(cfg *config.Config, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	return r
}

// healthHandler reports that the service is up
// @Summary      Health check
// @Description  Check if the service is running
// @Tags         health
// @Produce      json
// @Success      200 {object} HealthResponse
// @Router       /health [get]
func healthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, HealthResponse{Status: "ok", Service: service}, http.StatusOK)
	}
}
