// Package main is the entrypoint for the snipvault API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/cache"
	"github.com/snipvault/snipvault/internal/config"
	"github.com/snipvault/snipvault/internal/handler"
	"github.com/snipvault/snipvault/internal/metrics"
	"github.com/snipvault/snipvault/internal/middleware"
	"github.com/snipvault/snipvault/internal/repository"
	"github.com/snipvault/snipvault/internal/server"
	"github.com/snipvault/snipvault/internal/service"
	"github.com/snipvault/snipvault/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	if cfg.MigrateOnStart {
		if err := repo.Migrate(ctx, repository.MigrateUp); err != nil {
			repo.Close()
			return err
		}
		version, _ := repo.SchemaVersion(ctx)
		logger.Info("database migrated", "version", version)
	}

	recorder := metrics.NewInMemory()

	// Cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			return err
		}
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set; user cache disabled")
	}

	// Screenshot storage (optional)
	var objects *storage.S3Store
	if cfg.ScreenshotsEnabled() {
		objects, err = storage.NewS3Store(ctx, storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			closeAll(repo, cacheClient)
			return err
		}
		logger.Info("screenshot storage configured", "bucket", cfg.S3Bucket)
	} else {
		logger.Warn("S3_BUCKET not set; screenshot uploads disabled")
	}

	// Core
	hasher, err := auth.NewPasswordHasher(cfg.PasswordHash)
	if err != nil {
		closeAll(repo, cacheClient)
		return err
	}

	storeCfg := service.CredentialStoreConfig{
		CacheTTL: cfg.UserCacheTTL,
		Recorder: recorder,
		Logger:   logger,
	}
	if cacheClient != nil {
		storeCfg.Cache = cacheClient
	}
	credentials, err := service.NewCredentialStore(repo, hasher, storeCfg)
	if err != nil {
		closeAll(repo, cacheClient)
		return err
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.SessionSecret))
	if err != nil {
		closeAll(repo, cacheClient)
		return err
	}
	gate := auth.NewGate(codec, credentials, logger, auth.WithRecorder(recorder))

	snippetCfg := service.SnippetServiceConfig{
		MaxScreenshotBytes: cfg.ScreenshotMaxBytes,
		Recorder:           recorder,
		Logger:             logger,
	}
	if objects != nil {
		snippetCfg.Objects = objects
	}
	snippets := service.NewSnippetService(repo, snippetCfg)

	// HTTP
	var cacheCheck, objectsCheck handler.HealthChecker
	if cacheClient != nil {
		cacheCheck = cacheClient
	}
	if objects != nil {
		objectsCheck = objects
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:  logger,
		Health:  handler.NewHealthHandler(repo, cacheCheck, objectsCheck),
		Metrics: handler.NewMetricsHandler(recorder),
		Auth: handler.NewAuthHandler(credentials, codec, handler.CookieConfig{
			Name:   cfg.SessionCookieName,
			TTL:    cfg.SessionTTL,
			Secure: !cfg.IsDevelopment(),
		}, logger),
		Folders:  handler.NewFolderHandler(snippets, logger),
		Snippets: handler.NewSnippetHandler(snippets, logger),
		Session: middleware.AuthConfig{
			Logger:     logger,
			Gate:       gate,
			CookieName: cfg.SessionCookieName,
		},
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:        cors,
		MaxBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"password_hash", hasher.Algorithm(),
		"screenshots", cfg.ScreenshotsEnabled(),
	)

	return srv.Run(ctx)
}

func closeAll(repo *repository.Repository, cacheClient *cache.Cache) {
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
	repo.Close()
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	q := parsed.Query()
	if q.Has("password") {
		q.Set("password", "redacted")
		parsed.RawQuery = q.Encode()
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
