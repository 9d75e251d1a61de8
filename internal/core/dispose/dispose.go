package dispose

import (
	"context"
	"errors"
	"fmt"
	"sync"

	corelog "soc-console/internal/core/log"
)

// DisposeError 清理过程中的错误信息
type DisposeError struct {
	HandlerIndex int
	Err          error
}

func (e *DisposeError) Error() string {
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

func (e *DisposeError) Unwrap() error {
	return e.Err
}

// Disposable 统一的资源释放接口
type Disposable interface {
	Dispose() error
}

// Func 函数形式的 Disposable
type Func func() error

// Dispose 调用函数本身，nil 函数视为空操作
func (f Func) Dispose() error {
	if f == nil {
		return nil
	}
	return f()
}

// Once 包装 Disposable，保证只释放一次
func Once(d Disposable) Disposable {
	var once sync.Once
	var err error
	return Func(func() error {
		once.Do(func() {
			if d != nil {
				err = d.Dispose()
			}
		})
		return err
	})
}

// All 依次释放所有资源，返回合并后的错误
func All(items ...Disposable) error {
	var errs []error
	for i, item := range items {
		if item == nil {
			continue
		}
		if err := item.Dispose(); err != nil {
			errs = append(errs, &DisposeError{HandlerIndex: i, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Dispose 资源管理结构体
// 嵌入到长期运行的组件中，持有组件的 context 与清理处理器
type Dispose struct {
	mu            sync.Mutex
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	cleanHandlers []func() error
}

// SetCtx 设置父 context 与关闭回调，父 context 取消时自动执行清理
func (c *Dispose) SetCtx(parent context.Context, onClose func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx != nil {
		corelog.Warnf("dispose: context already set")
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	if onClose != nil {
		c.cleanHandlers = append(c.cleanHandlers, onClose)
	}
	c.ctx, c.cancel = context.WithCancel(parent)

	ctx := c.ctx
	go func() {
		<-ctx.Done()
		if err := c.Close(); err != nil {
			corelog.Errorf("dispose: cleanup after context cancellation failed: %v", err)
		}
	}()
}

// Ctx 返回组件 context，未调用 SetCtx 时返回 Background
func (c *Dispose) Ctx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// IsClosed 是否已关闭
func (c *Dispose) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// AddCleanHandler 添加清理处理器，已关闭时立即执行
func (c *Dispose) AddCleanHandler(f func() error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if err := f(); err != nil {
			corelog.Errorf("dispose: late cleanup handler failed: %v", err)
		}
		return
	}
	c.cleanHandlers = append(c.cleanHandlers, f)
	c.mu.Unlock()
}

// Close 取消 context 并按注册顺序执行清理处理器，重复调用返回 nil
func (c *Dispose) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	handlers := c.cleanHandlers
	c.cleanHandlers = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler(); err != nil {
			corelog.Errorf("dispose: cleanup handler[%d] failed: %v", i, err)
			errs = append(errs, &DisposeError{HandlerIndex: i, Err: err})
		}
	}
	return errors.Join(errs...)
}
