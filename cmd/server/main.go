// Package main is the entry point for the snippet manager.
//
// Its job is environment plumbing only: read configuration, construct the
// external clients (blob store, permission service, language service, stream
// backend), and hand everything to the server package. No business logic
// lives here.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/ingsis/snippet-manager/internal/asset"
	"github.com/ingsis/snippet-manager/internal/permission"
	"github.com/ingsis/snippet-manager/internal/server"
	"github.com/ingsis/snippet-manager/internal/stream"
	"github.com/ingsis/snippet-manager/internal/validator"
)

func main() {
	// .env is a local-development convenience; in deployment the variables
	// come from the environment and the file simply does not exist.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	port := envInt("PORT", 8080)

	dbPath := envString("DB_PATH", "data/snippets.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	assets, err := asset.NewMinioClient(asset.MinioConfig{
		Endpoint:  envString("ASSET_ENDPOINT", "localhost:9000"),
		AccessKey: os.Getenv("ASSET_ACCESS_KEY"),
		SecretKey: os.Getenv("ASSET_SECRET_KEY"),
		Region:    os.Getenv("ASSET_REGION"),
		UseSSL:    envBool("ASSET_USE_SSL", false),
	}, logger)
	if err != nil {
		logger.Error("failed to create asset client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	permissions, err := permission.NewHTTPClient(envString("PERMISSION_URL", "http://localhost:8081"), logger)
	if err != nil {
		logger.Error("failed to create permission client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	validators, err := validator.NewHTTPClient(envString("VALIDATOR_URL", "http://localhost:8082"), logger)
	if err != nil {
		logger.Error("failed to create validator client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     envString("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	publisher := stream.NewRedisPublisher(redisClient, logger)

	// Each instance gets a unique consumer name so the group can spread the
	// status stream across replicas.
	consumerName := "snippet-manager-" + xid.New().String()
	statusConsumer := stream.NewConsumer(
		redisClient,
		envString("STREAM_STATUS_KEY", "stream.status"),
		envString("STATUS_GROUP", "status-group"),
		consumerName,
		envDuration("STATUS_POLL_INTERVAL", 10*time.Second),
		logger,
	)

	cfg := server.Config{
		Port:         port,
		DBPath:       dbPath,
		JWTSecret:    jwtSecret,
		LintStream:   envString("STREAM_LINT_KEY", "stream.lint"),
		FormatStream: envString("STREAM_FORMAT_KEY", "stream.format"),
	}

	srv, err := server.New(cfg, server.Dependencies{
		Assets:         assets,
		Permissions:    permissions,
		Validators:     validators,
		Publisher:      publisher,
		StatusConsumer: statusConsumer,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer env var, using default",
			slog.String("name", name),
			slog.String("value", raw),
		)
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
