// Package events 事件总线
// 按事件类型维护有序的监听器列表，Publish 在调用方 goroutine 中同步分发
package events

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
)

// Listener 事件监听器
type Listener interface {
	HandleEvent(env *Envelope) error
}

// funcListener 函数监听器，以指针身份参与去重
type funcListener struct {
	fn func(env *Envelope) error
}

func (l *funcListener) HandleEvent(env *Envelope) error {
	return l.fn(env)
}

// NewListener 将函数包装为监听器
// 每次调用返回新的身份，重复订阅需复用同一返回值
func NewListener(fn func(env *Envelope) error) Listener {
	return &funcListener{fn: fn}
}

// sameListener 判断两个监听器是否为同一身份，不可比较的类型永不相同
func sameListener(a, b Listener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

type entry struct {
	sub      *Subscription
	listener Listener
}

// Bus 事件总线
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Kind][]*entry
	logger      corelog.Logger
}

// NewBus 创建事件总线
func NewBus(logger corelog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[Kind][]*entry),
		logger:      corelog.OrDefault(logger),
	}
}

// Subscribe 订阅事件
// 同一监听器重复订阅同一类型为空操作，返回已有的订阅
func (b *Bus) Subscribe(kind Kind, listener Listener) (*Subscription, error) {
	if kind == "" {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "event kind cannot be empty")
	}
	if listener == nil {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "event listener cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.subscribers[kind] {
		if sameListener(e.listener, listener) {
			b.logger.Debugf("Listener already subscribed for event kind: %s", kind)
			return e.sub, nil
		}
	}

	sub := &Subscription{ID: uuid.NewString(), Kind: kind, bus: b}
	b.subscribers[kind] = append(b.subscribers[kind], &entry{sub: sub, listener: listener})
	b.logger.Debugf("Subscribed listener for event kind: %s, total listeners: %d", kind, len(b.subscribers[kind]))
	return sub, nil
}

// Unsubscribe 取消订阅，监听器未订阅时返回 false
func (b *Bus) Unsubscribe(kind Kind, listener Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.subscribers[kind] {
		if sameListener(e.listener, listener) {
			b.removeLocked(kind, i)
			return true
		}
	}
	return false
}

func (b *Bus) unsubscribeByID(kind Kind, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.subscribers[kind] {
		if e.sub.ID == id {
			b.removeLocked(kind, i)
			return true
		}
	}
	return false
}

func (b *Bus) removeLocked(kind Kind, i int) {
	list := b.subscribers[kind]
	rest := make([]*entry, 0, len(list)-1)
	rest = append(rest, list[:i]...)
	rest = append(rest, list[i+1:]...)
	if len(rest) == 0 {
		delete(b.subscribers, kind)
	} else {
		b.subscribers[kind] = rest
	}
	b.logger.Debugf("Unsubscribed listener for event kind: %s, remaining listeners: %d", kind, len(rest))
}

// Publish 发布事件
// 按订阅顺序同步调用监听器，遇到第一个错误即停止并返回该错误
func (b *Bus) Publish(env *Envelope) error {
	if env == nil {
		return coreerrors.New(coreerrors.CodeInvalidParam, "event envelope cannot be nil")
	}

	b.mu.RLock()
	list := b.subscribers[env.Kind]
	snapshot := make([]*entry, len(list))
	copy(snapshot, list)
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		b.logger.Debugf("No listeners for event kind: %s", env.Kind)
		return nil
	}

	for _, e := range snapshot {
		if err := e.listener.HandleEvent(env); err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeInternal, "listener for %s failed", env.Kind)
		}
	}
	return nil
}

// HandlerCount 获取指定事件类型的监听器数量
func (b *Bus) HandlerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[kind])
}

// Kinds 获取所有已订阅的事件类型
func (b *Bus) Kinds() []Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()

	kinds := make([]Kind, 0, len(b.subscribers))
	for kind := range b.subscribers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// WaitForEvent 等待指定类型的下一个事件
func (b *Bus) WaitForEvent(ctx context.Context, kind Kind) (*Envelope, error) {
	ch := make(chan *Envelope, 1)
	sub, err := b.Subscribe(kind, NewListener(func(env *Envelope) error {
		select {
		case ch <- env:
		default:
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	defer sub.Dispose()

	select {
	case env := <-ch:
		return env, nil
	case <-ctx.Done():
		return nil, coreerrors.Wrapf(ctx.Err(), coreerrors.CodeTimeout, "waiting for %s event", kind)
	}
}

// Subscription 订阅句柄
type Subscription struct {
	ID   string
	Kind Kind

	once sync.Once
	bus  *Bus
}

// Dispose 取消订阅，可重复调用
func (s *Subscription) Dispose() error {
	s.once.Do(func() {
		s.bus.unsubscribeByID(s.Kind, s.ID)
	})
	return nil
}
