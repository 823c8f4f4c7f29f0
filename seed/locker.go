package seed

import (
	"context"

	"tracksvc/cache"
	"tracksvc/config"
	"tracksvc/logger"
)

const lockKey = "tracksvc:seed_lock"

// NewLocker returns a Redis-backed lock when Redis is configured, so replicas
// sharing one database do not seed over each other, and an in-process lock
// otherwise. Waiters give up after cfg.SeedLockTTL. The returned func closes
// any connection the lock holds.
func NewLocker(ctx context.Context, cfg *config.Config) (Locker, func(), error) {
	if !cfg.RedisEnabled() {
		return cache.NewLocalLocker(cfg.SeedLockTTL), func() {}, nil
	}

	client, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis seed lock", logger.String("addr", client.Options().Addr))

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", logger.ErrorField(err))
		}
	}
	return cache.NewRedisLocker(client, lockKey, cfg.SeedLockTTL, cfg.SeedLockTTL), closeFn, nil
}

// DatasetFor picks the seed file from cfg, or the embedded dataset.
func DatasetFor(cfg *config.Config) Dataset {
	if cfg.SeedFile != "" {
		return FromFile(cfg.SeedFile)
	}
	return Default()
}
