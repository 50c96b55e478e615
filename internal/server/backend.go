package server

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/repository"
	"github.com/noah-isme/unigrading-api/pkg/cache"
	"github.com/noah-isme/unigrading-api/pkg/config"
	"github.com/noah-isme/unigrading-api/pkg/database"
	"github.com/noah-isme/unigrading-api/pkg/storage"
)

// RecordNamespace prefixes record keys when they live in Redis next to the statistics cache.
const RecordNamespace = "unigrading:store:"

// Backend is an opened key-value backend plus the shared Redis client, if any.
type Backend struct {
	KV    repository.KVStore
	Redis *redis.Client

	closers []func() error
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// OpenBackend connects the record store backend selected by cfg.Store.Backend. A Redis client is
// also opened when the statistics cache is enabled so it can be shared.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{}

	needRedis := cfg.Store.Backend == config.BackendRedis || cfg.Stats.CacheEnabled
	if needRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		switch {
		case err == nil:
			b.Redis = client
			b.closers = append(b.closers, client.Close)
		case cfg.Store.Backend == config.BackendRedis:
			return nil, fmt.Errorf("open redis store: %w", err)
		default:
			logger.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		}
	}

	switch cfg.Store.Backend {
	case config.BackendRedis:
		b.KV = repository.NewRedisStore(b.Redis, RecordNamespace)
	case config.BackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		pg := repository.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("ensure kv_store schema: %w", err)
		}
		b.KV = pg
	case config.BackendFile:
		files, err := storage.NewLocalStorage(cfg.Store.FileDir)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open file store: %w", err)
		}
		b.KV = repository.NewFileStore(files)
	default:
		b.KV = repository.NewMemoryStore()
	}

	logger.Info("record store opened",
		zap.String("backend", cfg.Store.Backend),
		zap.String("write_policy", cfg.Store.WritePolicy),
		zap.Bool("stats_cache", b.Redis != nil && cfg.Stats.CacheEnabled),
	)
	return b, nil
}
