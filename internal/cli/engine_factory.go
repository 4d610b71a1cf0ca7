// Package cli wires configuration into a ready-to-serve engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/internal/config"
	"github.com/aretw0/statecraft/pkg/adapters/memory"
	"github.com/aretw0/statecraft/pkg/adapters/process"
	redisadapter "github.com/aretw0/statecraft/pkg/adapters/redis"
	"github.com/aretw0/statecraft/pkg/adapters/sqlite"
	"github.com/aretw0/statecraft/pkg/locking"
	"github.com/aretw0/statecraft/pkg/observability"
	"github.com/aretw0/statecraft/pkg/persistence/middleware"
	"github.com/aretw0/statecraft/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles the engine with the resources backing it.
type Runtime struct {
	Engine   *statecraft.Engine
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases store connections in reverse order of creation.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRuntime builds an engine from cfg and loads cfg.Workflows into it.
// Redis is pinged with ctx before use.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Registry: prometheus.NewRegistry()}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(rt.Registry)

	opts := []statecraft.Option{
		statecraft.WithLogger(logger),
		statecraft.WithLifecycleHooks(metrics.Hooks()),
	}

	storeOpts, err := rt.storeOptions(ctx, cfg, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	opts = append(opts, storeOpts...)

	if cfg.Actions.File != "" {
		defs, err := process.LoadActions(cfg.Actions.File)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		runner := process.NewRunner(process.WithRegistry(defs), process.WithLogger(logger))
		opts = append(opts, statecraft.WithActionExecutor(runner))
		logger.Info("Loaded process actions", "path", cfg.Actions.File, "actions", runner.Names())
	}

	rt.Engine = statecraft.New(opts...)
	if cfg.Workflows != "" {
		if err := rt.Engine.LoadFromConfig(cfg.Workflows); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) storeOptions(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]statecraft.Option, error) {
	var (
		opts    []statecraft.Option
		history ports.HistoryStore = memory.NewHistoryStore()
	)

	if cfg.UsesRedis() {
		client := redisadapter.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		rt.closers = append(rt.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}

		redisOpts := []redisadapter.Option{
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithTTL(cfg.Redis.StateTTL),
		}
		if cfg.History == config.HistoryRedis {
			history = redisadapter.NewHistoryStore(client, redisOpts...)
			opts = append(opts, statecraft.WithStateStore(redisadapter.NewStateStore(client, redisOpts...)))
		}
		if cfg.Redis.Lock {
			locks := locking.NewManager(
				locking.WithDistributedLocker(redisadapter.NewLocker(client, cfg.Redis.Prefix)),
				locking.WithLogger(logger),
			)
			opts = append(opts, statecraft.WithLocker(locks))
		}
		logger.Debug("Redis configured", "addr", cfg.Redis.Addr, "history", cfg.History == config.HistoryRedis, "lock", cfg.Redis.Lock)
	}

	if cfg.History == config.HistorySQLite {
		store, err := sqlite.Open(cfg.SQLite.Path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		history = store
		logger.Debug("SQLite history configured", "path", cfg.SQLite.Path)
	}

	mws, err := privacyMiddleware(cfg.Privacy)
	if err != nil {
		return nil, err
	}
	opts = append(opts, statecraft.WithHistoryStore(middleware.Chain(history, mws...)))
	return opts, nil
}

// privacyMiddleware masks before it encrypts, so masked values never reach the ciphertext.
func privacyMiddleware(p config.PrivacyConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware

	if len(p.MaskKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(p.MaskKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}

	active, fallback, err := p.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}
