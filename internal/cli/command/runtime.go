package command

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/core/service"
	"github.com/medtrack/careportal/internal/infrastructure/backend"
	"github.com/medtrack/careportal/internal/infrastructure/db/file"
	"github.com/medtrack/careportal/internal/infrastructure/db/memory"
	mongostore "github.com/medtrack/careportal/internal/infrastructure/db/mongo"
	redisstore "github.com/medtrack/careportal/internal/infrastructure/db/redis"
	"github.com/medtrack/careportal/internal/pkg/config"
	"github.com/medtrack/careportal/pkg/logger"
)

// runtime is the session core shared by every command: one credential store,
// the authenticated backend client and the session service bound to both.
type runtime struct {
	store    ports.CredentialStore
	client   *backend.Client
	sessions *service.SessionService
	log      zerolog.Logger

	closers []func(context.Context) error
}

// newRuntime wires the session core. navigator, when non-nil, is told to go
// to the login page whenever a 401 invalidates the session.
func newRuntime(ctx context.Context, cfg *config.Config, navigator ports.Navigator) (*runtime, error) {
	rt := &runtime{log: logger.Component("runtime")}

	store, err := rt.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.store = store

	rt.client = backend.NewClient(backend.Options{
		BaseURL: cfg.APIEndpoint(),
		Timeout: cfg.API.Timeout,
	}, store, logger.Component("backend"))

	rt.sessions = service.NewSessionService(rt.client, store, service.SessionOptions{
		TwoFactorEnabled: cfg.TwoFactor.Enabled,
		TwoFactorTTL:     cfg.TwoFactor.TTL,
		TokenExpiry:      backend.TokenExpiry,
	}, logger.Component("session"))

	sessions := rt.sessions
	rt.client.OnUnauthorized(func(ctx context.Context, token string) {
		sessions.Invalidate(ctx, token, "unauthorized")
		if navigator != nil {
			navigator.ToLogin()
		}
	})

	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context, cfg *config.Config) (ports.CredentialStore, error) {
	switch cfg.Credentials.Backend {
	case config.BackendFile:
		return file.NewCredentialStore(cfg.Credentials.Path, cfg.Credentials.Key), nil

	case config.BackendMemory:
		return memory.NewCredentialStore(), nil

	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		rt.log.Info().Str("addr", cfg.Redis.Addr).Msg("redis credential store connected")
		return redisstore.NewCredentialStore(client, cfg.Redis.Prefix, cfg.Credentials.Profile), nil

	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
		rt.closers = append(rt.closers, client.Disconnect)
		rt.log.Info().Str("database", cfg.Mongo.Database).Msg("mongo credential store connected")
		return mongostore.NewCredentialStore(db, cfg.Credentials.Profile), nil

	default:
		return nil, fmt.Errorf("credential store: unknown backend %q", cfg.Credentials.Backend)
	}
}

// close releases the store connections in reverse order.
func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.log.Warn().Err(err).Msg("closing credential store")
		}
	}
}
