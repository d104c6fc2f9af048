// Package server wires configuration into a running HTTP API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"meaktask-api/internal/cache"
	"meaktask-api/internal/config"
	"meaktask-api/internal/database"
	"meaktask-api/internal/identity"
	"meaktask-api/internal/jwt"
	"meaktask-api/internal/metrics"
	"meaktask-api/internal/password"
	"meaktask-api/internal/repository"
	"meaktask-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App is a fully wired API with the connections it owns
type App struct {
	Handler http.Handler

	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	mongo  *mongo.Client
	redis  *redis.Client
}

// New validates cfg, connects the configured backends and builds the router
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.GinMode)

	app := &App{cfg: cfg, logger: logger}

	authService, err := app.buildAuthService(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	registry, m := metrics.NewRegistry()
	app.Handler = NewRouter(ctx, RouterConfig{
		AuthService:        authService,
		Logger:             logger,
		Registry:           registry,
		Metrics:            m,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitAuthRPS:   cfg.RateLimitAuthRPS,
		RateLimitAuthBurst: cfg.RateLimitAuthBurst,
	})

	return app, nil
}

func (a *App) buildAuthService(ctx context.Context) (service.AuthService, error) {
	if a.cfg.AuthBackend == service.BackendIdentity {
		client, err := identity.NewClient(a.cfg.IdentityURL, a.cfg.IdentityAPIKey, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
		}
		a.logger.Info("using identity provider auth backend")
		return service.NewIdentityAuthService(client)
	}

	hasher, err := password.NewHasher(a.cfg.PasswordHasher, a.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	jwtService, err := jwt.NewJWTService(a.cfg.JWTSecret, a.cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	repo, err := a.buildUserRepository(ctx)
	if err != nil {
		return nil, err
	}

	store := repository.NewCredentialStore(repo, hasher, a.cfg.StoreTimeout)
	a.logger.Info("using local auth backend",
		"store", a.cfg.StoreBackend,
		"hasher", a.cfg.PasswordHasher,
		"token_ttl", jwtService.TTL().String(),
	)
	return service.NewAuthService(store, hasher, jwtService)
}

func (a *App) buildUserRepository(ctx context.Context) (repository.UserRepository, error) {
	var repo repository.UserRepository

	switch a.cfg.StoreBackend {
	case config.StorePostgres:
		db, err := database.NewConnection(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		if a.cfg.MigrateOnStart {
			if err := database.RunMigrations(ctx, db); err != nil {
				return nil, err
			}
		}
		repo = repository.NewUserRepository(db)
	case config.StoreMongo:
		client, err := database.NewMongoConnection(ctx, a.cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.mongo = client
		db := client.Database(a.cfg.MongoDatabase)
		if err := repository.EnsureUserIndexes(ctx, db); err != nil {
			return nil, err
		}
		repo = repository.NewMongoUserRepository(db)
	default:
		a.logger.Warn("using in-memory user store; accounts are lost on restart")
		repo = repository.NewMemoryUserRepository()
	}

	if a.cfg.RedisURL == "" {
		return repo, nil
	}

	// The cache is optional; continue without it if Redis is unreachable
	client, err := cache.Connect(ctx, a.cfg.RedisURL)
	if err != nil {
		a.logger.Warn("redis unavailable, continuing without profile cache", "error", err)
		return repo, nil
	}
	a.redis = client
	return repository.NewCachedUserRepository(repo, cache.NewRedisCache(client), a.cfg.CacheTTL, a.logger), nil
}

// Run serves until ctx is canceled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases every connection the app opened
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.mongo.Disconnect(ctx)
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
