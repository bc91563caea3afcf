package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	_ "github.com/redmonkez12/go-task-api/docs" // Swagger docs
	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/database"
	"github.com/redmonkez12/go-task-api/internal/database/migrations"
	httpServer "github.com/redmonkez12/go-task-api/internal/http"
	"github.com/redmonkez12/go-task-api/internal/identity"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/task"
)

// @title           Task API: task service
// @version         1.0
// @description     Task CRUD. Every request is authenticated against the identity service.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	envFile := pflag.String("env-file", ".env", "path to an env file loaded before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	cfg, err := config.Load(config.ServiceTasks, *envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	slog.SetDefault(logger.Logger)
	logger.Info("starting task service",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"verify_mode", cfg.Identity.VerifyMode,
	)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB, migrations.Tasks, "tasks"); err != nil {
		return err
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return nil
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return err
	}

	taskService := task.NewService(task.NewBunRepository(db), logger)
	taskHandler := task.NewHandler(taskService)

	router := httpServer.NewTaskRouter(cfg, taskHandler, identity.NewGate(verifier), logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// newVerifier picks how the gate checks tokens
func newVerifier(cfg *config.Config, logger *logging.Logger) (identity.Verifier, error) {
	if cfg.Identity.VerifyMode == config.VerifyModeLocal {
		tokens, err := auth.NewTokenService(cfg.Auth.TokenFormat, cfg.Auth.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token service: %w", err)
		}
		logger.Warn("verifying tokens locally, the identity service is not consulted")
		return identity.NewLocalVerifier(tokens), nil
	}

	logger.Info("verifying tokens with identity service",
		"url", cfg.Identity.BaseURL,
		"timeout", cfg.Identity.Timeout.String(),
		"max_retries", cfg.Identity.MaxRetries,
	)
	return identity.NewClient(
		cfg.Identity.BaseURL,
		cfg.Identity.Timeout,
		identity.WithHTTPClient(newIdentityHTTPClient(cfg.Identity.Timeout)),
		identity.WithRetry(cfg.Identity.MaxRetries, cfg.Identity.RetryBackoff),
	), nil
}

// newIdentityHTTPClient keeps a larger idle pool for the single identity
// host, since every task request is validated against it.
func newIdentityHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 32
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{Timeout: timeout, Transport: transport}
}
