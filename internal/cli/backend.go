package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quizhub/internal/app"
	"quizhub/internal/config"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
	"quizhub/internal/infra/postgres"
	redisinfra "quizhub/internal/infra/redis"
)

// roleSetter is implemented by both entity stores.
type roleSetter interface {
	SetRole(ctx context.Context, email string, role domain.Role) (domain.User, error)
}

// backend bundles the stores chosen by configuration.
type backend struct {
	users       app.UserRepository
	quizzes     app.QuizRepository
	results     app.ResultRepository
	leaderboard app.LeaderboardReader
	roles       roleSetter
	cache       app.QuizCache
	ping        func(ctx context.Context) error
	closers     []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects to Postgres and Redis when configured and falls back to the
// in-memory store and cache otherwise.
func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger, migrate bool) (*backend, error) {
	b := &backend{}
	var loader memory.QuizLoader

	if cfg.Postgres.URL != "" {
		db := postgres.OpenBun(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if migrate {
			group, err := postgres.Migrate(ctx, db)
			if err != nil {
				b.Close()
				return nil, err
			}
			if !group.IsZero() {
				log.Info("migrations applied", zap.String("group", group.String()))
			}
		}
		pool, err := postgres.OpenPool(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		store := postgres.NewStore(db)
		b.users, b.quizzes, b.results, b.roles = store, store, store, store
		b.leaderboard = postgres.NewLeaderboardReader(pool)
		b.ping = store.Ping
		loader = store
	} else {
		log.Warn("postgres url not configured, using in-memory store")
		store := memory.NewStore()
		b.users, b.quizzes, b.results, b.roles = store, store, store, store
		b.leaderboard = store
		loader = store
	}

	ttl := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client, err := redisinfra.Connect(ctx, redisinfra.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.cache = redisinfra.NewQuizCache(client, loader, ttl)
		b.ping = chainPing(b.ping, func(ctx context.Context) error { return client.Ping(ctx).Err() })
	} else {
		b.cache = memory.NewQuizCache(loader, ttl)
	}
	return b, nil
}

func chainPing(checks ...func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
