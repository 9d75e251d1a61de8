// Package session 控制台本地会话状态
// 保存认证流程 ID、界面偏好与配置页的搜索条件，后端可选内存、Redis 或内嵌 Redis
package session

import (
	"context"
	"strings"

	"soc-console/internal/config/schema"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/core/store"
	"soc-console/internal/core/store/embedded"
	"soc-console/internal/core/store/memory"
	redisstore "soc-console/internal/core/store/redis"
)

// OpenStateStore 按配置创建状态存储
func OpenStateStore(ctx context.Context, cfg schema.StateConfig, logger corelog.Logger) (store.StateStore, error) {
	logger = corelog.OrDefault(logger)

	switch strings.ToLower(cfg.Type) {
	case "", schema.StateTypeMemory:
		logger.Debugf("Session: using in-memory state store")
		return memory.NewMemoryStore[string, string](), nil

	case schema.StateTypeRedis:
		s, err := redisstore.NewRedisStoreFromConfig[string, string](ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password.Value(),
			DB:       cfg.Redis.DB,
		}, cfg.KeyPrefix)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "open redis state store")
		}
		logger.Infof("Session: using redis state store at %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
		return s, nil

	case schema.StateTypeEmbedded:
		s, err := embedded.NewEmbeddedStore[string, string](cfg.KeyPrefix)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "start embedded state store")
		}
		logger.Debugf("Session: using embedded state store at %s", s.Server().Addr())
		return s, nil

	default:
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "unknown state store type %q", cfg.Type)
	}
}
