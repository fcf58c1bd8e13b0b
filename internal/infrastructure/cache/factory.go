package cache

import (
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore connects to Redis and falls back to the in-memory
// store when Redis is unreachable. The fallback keeps development
// environments working without a Redis instance; production deployments
// should alert on the warning.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return store
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.String("addr", cfg.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore()
}
