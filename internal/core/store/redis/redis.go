// Package redis 提供 Redis 存储实现
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"soc-console/internal/core/store"
)

// Config Redis 连接配置
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisStore Redis 存储实现，值以 JSON 序列化
type RedisStore[K comparable, V any] struct {
	client    *redis.Client
	keyPrefix string
	ownClient bool
}

// NewRedisStore 使用已有客户端创建 Redis 存储，Close 不关闭该客户端
func NewRedisStore[K comparable, V any](client *redis.Client, keyPrefix string) *RedisStore[K, V] {
	return &RedisStore[K, V]{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// NewRedisStoreFromConfig 从配置创建 Redis 存储并测试连接
func NewRedisStoreFromConfig[K comparable, V any](ctx context.Context, cfg Config, keyPrefix string) (*RedisStore[K, V], error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	s := NewRedisStore[K, V](client, keyPrefix)
	s.ownClient = true
	return s, nil
}

func (s *RedisStore[K, V]) buildKey(key K) string {
	return fmt.Sprintf("%s%v", s.keyPrefix, key)
}

// Get 获取值
func (s *RedisStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	rkey := s.buildKey(key)

	data, err := s.client.Get(ctx, rkey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, store.ErrNotFound
		}
		return zero, store.NewStoreError("redis", "Get", rkey, err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, store.NewStoreError("redis", "Get", rkey, store.ErrDeserializationFailed)
	}
	return value, nil
}

// Set 设置值
func (s *RedisStore[K, V]) Set(ctx context.Context, key K, value V) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL 设置值并指定 TTL
func (s *RedisStore[K, V]) SetWithTTL(ctx context.Context, key K, value V, ttl time.Duration) error {
	rkey := s.buildKey(key)

	data, err := json.Marshal(value)
	if err != nil {
		return store.NewStoreError("redis", "Set", rkey, store.ErrSerializationFailed)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, rkey, data, ttl).Err(); err != nil {
		return store.NewStoreError("redis", "Set", rkey, err)
	}
	return nil
}

// Delete 删除值
func (s *RedisStore[K, V]) Delete(ctx context.Context, key K) error {
	rkey := s.buildKey(key)
	if err := s.client.Del(ctx, rkey).Err(); err != nil {
		return store.NewStoreError("redis", "Delete", rkey, err)
	}
	return nil
}

// Exists 检查键是否存在
func (s *RedisStore[K, V]) Exists(ctx context.Context, key K) (bool, error) {
	rkey := s.buildKey(key)
	n, err := s.client.Exists(ctx, rkey).Result()
	if err != nil {
		return false, store.NewStoreError("redis", "Exists", rkey, err)
	}
	return n > 0, nil
}

// Ping 健康检查
func (s *RedisStore[K, V]) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭存储，仅关闭自己创建的客户端
func (s *RedisStore[K, V]) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

var (
	_ store.StateStore    = (*RedisStore[string, string])(nil)
	_ store.HealthChecker = (*RedisStore[string, string])(nil)
)
