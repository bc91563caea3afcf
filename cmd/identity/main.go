package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	_ "github.com/redmonkez12/go-task-api/docs" // Swagger docs
	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/database"
	"github.com/redmonkez12/go-task-api/internal/database/migrations"
	httpServer "github.com/redmonkez12/go-task-api/internal/http"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/ratelimit"
	"github.com/redmonkez12/go-task-api/internal/user"
)

// @title           Task API: identity service
// @version         1.0
// @description     Registers users and issues and validates bearer tokens.

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

	cfg, err := config.Load(config.ServiceIdentity, *envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	slog.SetDefault(logger.Logger)
	logger.Info("starting identity service",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_format", cfg.Auth.TokenFormat,
	)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB, migrations.Identity, "identity"); err != nil {
		return err
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return nil
	}

	var rateLimiter auth.RateLimiter
	if cfg.Auth.RateLimitAttempts > 0 {
		redisClient, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()
		rateLimiter = ratelimit.NewLimiter(redisClient, cfg.Auth.RateLimitAttempts, cfg.Auth.RateLimitWindow)
	}

	tokenService, err := auth.NewTokenService(cfg.Auth.TokenFormat, cfg.Auth.TokenSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(auth.DefaultArgon2Params())
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	authService := auth.NewService(
		user.NewRepository(db),
		tokenService,
		hasher,
		logger,
		cfg.Auth.TokenTTL,
	)
	authHandler := auth.NewHandler(authService, rateLimiter)

	router := httpServer.NewIdentityRouter(cfg, authHandler, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	return serve(server, cfg.Server.ShutdownTimeout, logger)
}

// serve runs the server until it fails or the process is asked to stop
func serve(server *httpServer.Server, shutdownTimeout time.Duration, logger *logging.Logger) error {
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
