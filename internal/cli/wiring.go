package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"codemaster/internal/app"
	"codemaster/internal/config"
	"codemaster/internal/importer"
	"codemaster/internal/infra/amqp"
	"codemaster/internal/infra/memory"
	"codemaster/internal/infra/postgres"
	infraredis "codemaster/internal/infra/redis"
	"codemaster/internal/infra/sqlite"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// openService wires the configured storage backend, caches and event publisher.
// Local commands replace the memory backend with the SQLite file so progress survives between runs.
func openService(ctx context.Context, cfg config.Config, local bool) (*app.QuizService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	backend := cfg.Store.Backend
	if local && backend == config.BackendMemory {
		backend = config.BackendSQLite
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	var (
		questions app.QuestionRepository
		sessions  app.SessionRepository
		badges    app.BadgeRepository
	)

	switch backend {
	case config.BackendMemory:
		starter, err := importer.Starter()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		questions = memory.NewCatalogCache(memory.NewQuestionStore(starter...), catalogTTL)
		sessions = memory.NewSessionStore()
		badges = memory.NewBadgeStore()
	case config.BackendSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			p, err := sqlite.DefaultDBPath()
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			path = p
		}
		store, err := sqlite.Open(path)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { store.Close() })
		if err := seedIfEmpty(ctx, store.Questions()); err != nil {
			cleanup()
			return nil, nil, err
		}
		questions = memory.NewCatalogCache(store.Questions(), catalogTTL)
		sessions = store.Sessions()
		badges = store.Badges()
	case config.BackendRedis:
		var source infraredis.QuestionSource
		if cfg.Postgres.URL != "" {
			pool, err := connectPostgres(ctx, cfg.Postgres.URL)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, pool.Close)
			source = postgres.NewQuestionRepository(pool)
		} else {
			source = memory.NewQuestionStore()
		}
		if err := seedIfEmpty(ctx, source); err != nil {
			cleanup()
			return nil, nil, err
		}
		questions = infraredis.NewQuestionCache(redisClient, source, catalogTTL)
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
		badges = infraredis.NewBadgeStore(redisClient)
	case config.BackendPostgres:
		pool, err := connectPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		repo := postgres.NewQuestionRepository(pool)
		if err := seedIfEmpty(ctx, repo); err != nil {
			cleanup()
			return nil, nil, err
		}
		if redisClient != nil {
			questions = infraredis.NewQuestionCache(redisClient, repo, catalogTTL)
		} else {
			questions = memory.NewCatalogCache(repo, catalogTTL)
		}
		sessions = postgres.NewSessionRepository(pool)
		badges = postgres.NewBadgeRepository(pool)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}

	loc, err := cfg.Location()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	opts := []app.Option{app.WithLocation(loc), app.WithDefaultCount(cfg.Quiz.DefaultCount)}

	publisher, err := amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if publisher.Enabled() {
		closers = append(closers, func() { publisher.Close() })
		opts = append(opts, app.WithPublisher(publisher))
	}

	log.Printf("using %s store", backend)
	return app.NewQuizService(questions, sessions, badges, opts...), cleanup, nil
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if err := postgres.Migrate(ctx, url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// seedIfEmpty loads the bundled starter catalog into an empty question store.
func seedIfEmpty(ctx context.Context, repo app.QuestionRepository) error {
	existing, err := repo.All(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	starter, err := importer.Starter()
	if err != nil {
		return err
	}
	if err := repo.SaveMany(ctx, starter); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	log.Printf("seeded catalog with %d starter questions", len(starter))
	return nil
}

// loadService reads the config at path and opens the service for a local command.
func loadService(ctx context.Context, path string) (*app.QuizService, func(), error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return openService(ctx, cfg, true)
}
