package grid

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"soc-console/internal/client"
	"soc-console/internal/client/notify"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
)

const (
	DefaultCacheSize       = 1024
	DefaultCacheExpiration = 5 * time.Minute
)

// Backend 节点视图依赖的后端接口
type Backend interface {
	ListGridMembers(ctx context.Context) ([]client.GridMemberRecord, error)
	AcceptGridMember(ctx context.Context, id string) error
	RejectGridMember(ctx context.Context, id string) error
	DeleteGridMember(ctx context.Context, id string) error
}

// ViewOptions 节点视图选项
type ViewOptions struct {
	CacheSize       int
	CacheExpiration time.Duration
	Logger          corelog.Logger
}

type cachedNode struct {
	node     Node
	expireAt time.Time
}

// View 网格节点视图：加载、分组、接受、拒绝、删除
// 节点保存在 LRU 缓存中，任一条目过期后下次读取会重新加载
type View struct {
	backend  Backend
	notifier notify.Notifier
	logger   corelog.Logger
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cache  *lru.Cache[string, cachedNode]
	loaded bool
	// count 最近一次加载的节点数，缓存条目少于该值说明有节点被淘汰
	count int
}

// NewView 创建节点视图
func NewView(backend Backend, notifier notify.Notifier, opts ViewOptions) (*View, error) {
	if backend == nil {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "grid backend is required")
	}
	if notifier == nil {
		notifier = &notify.LogNotifier{Logger: opts.Logger}
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	ttl := opts.CacheExpiration
	if ttl <= 0 {
		ttl = DefaultCacheExpiration
	}
	cache, err := lru.New[string, cachedNode](size)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "failed to create grid node cache")
	}
	return &View{
		backend:  backend,
		notifier: notifier,
		logger:   corelog.OrDefault(opts.Logger),
		ttl:      ttl,
		now:      time.Now,
		cache:    cache,
	}, nil
}

// Load 从后端加载节点并替换缓存，失败时通知用户并保留原有缓存
func (v *View) Load(ctx context.Context) (Buckets, error) {
	nodes, err := v.fetch(ctx)
	if err != nil {
		return Buckets{}, err
	}
	return Group(nodes), nil
}

func (v *View) fetch(ctx context.Context) ([]Node, error) {
	records, err := v.backend.ListGridMembers(ctx)
	if err != nil {
		v.logger.Warnf("Grid: failed to load grid members: %v", err)
		v.notifier.ShowError(coreerrors.Message(err))
		return nil, err
	}
	nodes := NodesFromRecords(records)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.Purge()
	expireAt := v.now().Add(v.ttl)
	for _, n := range nodes {
		v.cache.Add(n.ID, cachedNode{node: n, expireAt: expireAt})
	}
	v.loaded = true
	v.count = len(nodes)
	if v.count > v.cache.Len() {
		v.logger.Debugf("Grid: %d grid members exceed the node cache size, cache bypassed", v.count)
	}
	v.logger.Debugf("Grid: loaded %d grid members", len(nodes))
	return nodes, nil
}

// cached 返回缓存中的节点（按加载顺序），缓存为空、已过期或不完整时返回 false
func (v *View) cached() ([]Node, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded || v.cache.Len() < v.count {
		return nil, false
	}
	now := v.now()
	keys := v.cache.Keys()
	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		entry, ok := v.cache.Peek(key)
		if !ok || !now.Before(entry.expireAt) {
			return nil, false
		}
		nodes = append(nodes, entry.node)
	}
	return nodes, true
}

// Nodes 返回节点列表，缓存有效时不访问后端
func (v *View) Nodes(ctx context.Context) ([]Node, error) {
	if nodes, ok := v.cached(); ok {
		return nodes, nil
	}
	return v.fetch(ctx)
}

// Get 按 ID 查找节点
func (v *View) Get(ctx context.Context, id string) (Node, bool, error) {
	nodes, err := v.Nodes(ctx)
	if err != nil {
		return Node{}, false, err
	}
	for _, n := range nodes {
		if n.ID == id {
			return n, true, nil
		}
	}
	return Node{}, false, nil
}

// Invalidate 使缓存失效
func (v *View) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.Purge()
	v.loaded = false
	v.count = 0
}

// Accept 接受节点，成功后重新加载并提示
func (v *View) Accept(ctx context.Context, id string) error {
	if err := v.act(ctx, id, "accept", v.backend.AcceptGridMember); err != nil {
		return err
	}
	v.notifier.ShowInfo(notify.KeyGridMemberAcceptSuccess)
	return nil
}

// Reject 拒绝节点
func (v *View) Reject(ctx context.Context, id string) error {
	return v.act(ctx, id, "reject", v.backend.RejectGridMember)
}

// Delete 删除节点
func (v *View) Delete(ctx context.Context, id string) error {
	return v.act(ctx, id, "delete", v.backend.DeleteGridMember)
}

func (v *View) act(ctx context.Context, id, name string, fn func(context.Context, string) error) error {
	if err := fn(ctx, id); err != nil {
		v.logger.Warnf("Grid: failed to %s grid member %s: %v", name, id, err)
		v.notifier.ShowError(coreerrors.Message(err))
		return err
	}
	v.logger.Infof("Grid: %s grid member %s", name, id)
	_, err := v.fetch(ctx)
	return err
}
