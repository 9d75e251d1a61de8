// Package store 提供统一的键值存储抽象
//
// 用于持久化控制台本地状态（会话标志、搜索条件等），实现:
//   - memory: 进程内存储
//   - redis: 外部 Redis
//   - embedded: 内嵌 miniredis，本地单机使用
package store

import (
	"context"
	"time"
)

// Store 基础键值存储接口
type Store[K comparable, V any] interface {
	// Get 获取值，不存在返回 ErrNotFound
	Get(ctx context.Context, key K) (V, error)

	// Set 设置值
	Set(ctx context.Context, key K, value V) error

	// Delete 删除值，不存在不返回错误
	Delete(ctx context.Context, key K) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key K) (bool, error)
}

// TTLStore 支持 TTL 的存储
type TTLStore[K comparable, V any] interface {
	Store[K, V]

	// SetWithTTL 设置值并指定 TTL，ttl<=0 表示永不过期
	SetWithTTL(ctx context.Context, key K, value V, ttl time.Duration) error
}

// HealthChecker 健康检查接口
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Closer 关闭接口
type Closer interface {
	Close() error
}

// StateStore 控制台状态存储，键和值均为字符串
type StateStore interface {
	TTLStore[string, string]
	Closer
}
