package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reggie/internal/config"
)

// Open connects the backend selected by cfg.Driver and instruments it.
func Open(ctx context.Context, cfg config.StorageConfig) (Bucket, error) {
	var (
		b   Bucket
		err error
	)
	switch cfg.Driver {
	case "postgres":
		b, err = NewPostgresBucket(ctx, cfg.Postgres.URL, cfg.Bucket)
	case "sqlite":
		b, err = NewSQLiteBucket(ctx, cfg.SQLite.Path, cfg.Bucket)
	case "redis":
		b, err = NewRedisBucket(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Bucket)
	case "memory", "":
		b = NewMemoryBucket()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	driver := cfg.Driver
	if driver == "" {
		driver = "memory"
	}
	return Instrument(b, driver), nil
}
