// Package embedded 提供内嵌 Redis (miniredis) 存储
// 本地运行控制台时无需外部 Redis
package embedded

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"soc-console/internal/core/store"
	redisstore "soc-console/internal/core/store/redis"
)

// EmbeddedRedis 内嵌 Redis 服务
type EmbeddedRedis struct {
	server *miniredis.Miniredis
	client *redis.Client
}

// NewEmbeddedRedis 启动内嵌 Redis
func NewEmbeddedRedis() (*EmbeddedRedis, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("start miniredis failed: %w", err)
	}
	return &EmbeddedRedis{
		server: server,
		client: redis.NewClient(&redis.Options{Addr: server.Addr()}),
	}, nil
}

// Client 获取 Redis 客户端
func (e *EmbeddedRedis) Client() *redis.Client {
	return e.client
}

// Addr 获取服务地址
func (e *EmbeddedRedis) Addr() string {
	return e.server.Addr()
}

// Close 关闭服务
func (e *EmbeddedRedis) Close() error {
	err := e.client.Close()
	e.server.Close()
	return err
}

// EmbeddedStore 内嵌 Redis 存储，接口与 RedisStore 一致
type EmbeddedStore[K comparable, V any] struct {
	*redisstore.RedisStore[K, V]
	embedded *EmbeddedRedis
}

// NewEmbeddedStore 创建内嵌 Redis 存储
func NewEmbeddedStore[K comparable, V any](keyPrefix string) (*EmbeddedStore[K, V], error) {
	embedded, err := NewEmbeddedRedis()
	if err != nil {
		return nil, err
	}
	return &EmbeddedStore[K, V]{
		RedisStore: redisstore.NewRedisStore[K, V](embedded.Client(), keyPrefix),
		embedded:   embedded,
	}, nil
}

// Ping 健康检查
func (s *EmbeddedStore[K, V]) Ping(ctx context.Context) error {
	return s.embedded.client.Ping(ctx).Err()
}

// Close 关闭存储与内嵌服务
func (s *EmbeddedStore[K, V]) Close() error {
	return s.embedded.Close()
}

// Server 获取内嵌 Redis 实例
func (s *EmbeddedStore[K, V]) Server() *EmbeddedRedis {
	return s.embedded
}

var _ store.StateStore = (*EmbeddedStore[string, string])(nil)
