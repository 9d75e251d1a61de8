// Package memory 提供内存存储实现
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"soc-console/internal/core/store"
)

// item 存储项
type item[V any] struct {
	value    V
	expireAt time.Time
}

func (i *item[V]) isExpired(now time.Time) bool {
	return !i.expireAt.IsZero() && now.After(i.expireAt)
}

// MemoryStore 内存存储实现
type MemoryStore[K comparable, V any] struct {
	data   map[K]*item[V]
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore[K comparable, V any]() *MemoryStore[K, V] {
	return &MemoryStore[K, V]{
		data: make(map[K]*item[V]),
		now:  time.Now,
	}
}

// Get 获取值
func (s *MemoryStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero V
	if s.closed {
		return zero, store.ErrClosed
	}
	it, ok := s.data[key]
	if !ok || it.isExpired(s.now()) {
		return zero, store.ErrNotFound
	}
	return it.value, nil
}

// Set 设置值
func (s *MemoryStore[K, V]) Set(ctx context.Context, key K, value V) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL 设置值并指定 TTL
func (s *MemoryStore[K, V]) SetWithTTL(ctx context.Context, key K, value V, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	var expireAt time.Time
	if ttl > 0 {
		expireAt = s.now().Add(ttl)
	}
	s.data[key] = &item[V]{value: value, expireAt: expireAt}
	return nil
}

// Delete 删除值
func (s *MemoryStore[K, V]) Delete(ctx context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	delete(s.data, key)
	return nil
}

// Exists 检查键是否存在
func (s *MemoryStore[K, V]) Exists(ctx context.Context, key K) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, store.ErrClosed
	}
	it, ok := s.data[key]
	return ok && !it.isExpired(s.now()), nil
}

// Len 未过期的键数量
func (s *MemoryStore[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, it := range s.data {
		if !it.isExpired(now) {
			n++
		}
	}
	return n
}

// CleanExpired 清理过期数据
func (s *MemoryStore[K, V]) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for key, it := range s.data {
		if it.isExpired(now) {
			delete(s.data, key)
			count++
		}
	}
	return count
}

// Close 关闭存储
func (s *MemoryStore[K, V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}

// Keys 获取所有未过期的字符串键，按字典序排序
func Keys[V any](s *MemoryStore[string, V]) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	keys := make([]string, 0, len(s.data))
	for key, it := range s.data {
		if !it.isExpired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

var _ store.StateStore = (*MemoryStore[string, string])(nil)
