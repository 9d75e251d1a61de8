package status

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"soc-console/internal/client/notify"
	"soc-console/internal/core/dispose"
	coreerrors "soc-console/internal/core/errors"
	"soc-console/internal/core/events"
	corelog "soc-console/internal/core/log"
)

const (
	// ImportNoChanges import 事件表示导入无变化的内容
	ImportNoChanges = "no-changes"

	DefaultRefreshInterval = 5 * time.Minute
	refreshTimeout         = 30 * time.Second
)

// Subscriber 事件订阅接口，*connection.Manager 与 *events.Bus 均实现了该接口
type Subscriber interface {
	Subscribe(kind events.Kind, listener events.Listener) (*events.Subscription, error)
}

// ConnectionState 事件通道的连接状态
type ConnectionState interface {
	Connected() bool
	Reconnecting() bool
}

// Options 跟踪器选项
type Options struct {
	// ConsoleHost 控制台主机名，指向本主机的导入地址只显示其片段部分
	ConsoleHost string
	// RefreshInterval 服务信息刷新的最小间隔
	RefreshInterval time.Duration
	// Refresh 刷新服务信息，状态更新时按间隔节流调用
	Refresh func(ctx context.Context) error
	Logger  corelog.Logger
}

// SyncReport detection-sync 事件内容
type SyncReport struct {
	Engine string `json:"engine"`
	Status string `json:"status"`
}

// 同步结果
const (
	SyncSuccess = "success"
	SyncPartial = "partial"
	SyncError   = "error"
)

// Tracker 状态跟踪器
type Tracker struct {
	dispose.Dispose

	subscriber Subscriber
	conn       ConnectionState
	notifier   notify.Notifier
	logger     corelog.Logger
	host       string
	refresh    func(ctx context.Context) error
	sometimes  *rate.Sometimes

	mu      sync.RWMutex
	current *Status
	updates []func(Status)
	subs    []*events.Subscription
	closed  bool
	wg      sync.WaitGroup
}

// NewTracker 创建状态跟踪器
func NewTracker(parent context.Context, subscriber Subscriber, conn ConnectionState, notifier notify.Notifier, opts Options) *Tracker {
	if notifier == nil {
		notifier = &notify.LogNotifier{Logger: opts.Logger}
	}
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	t := &Tracker{
		subscriber: subscriber,
		conn:       conn,
		notifier:   notifier,
		logger:     corelog.OrDefault(opts.Logger),
		host:       opts.ConsoleHost,
		refresh:    opts.Refresh,
		sometimes:  &rate.Sometimes{Interval: interval},
	}
	t.SetCtx(parent, t.onClose)
	return t
}

// Start 订阅 status、import、detection-sync 事件
func (t *Tracker) Start() error {
	handlers := []struct {
		kind events.Kind
		fn   func(env *events.Envelope) error
	}{
		{events.KindStatus, t.handleStatus},
		{events.KindImport, t.handleImport},
		{events.KindDetectionSync, t.handleDetectionSync},
	}
	for _, h := range handlers {
		sub, err := t.subscriber.Subscribe(h.kind, events.NewListener(h.fn))
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.subs = append(t.subs, sub)
		t.mu.Unlock()
	}
	return nil
}

// OnUpdate 注册状态更新回调
func (t *Tracker) OnUpdate(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates = append(t.updates, fn)
}

// UpdateStatus 记录新状态（st 为 nil 时只触发刷新），并按间隔刷新服务信息
// 连接状态变化时以 nil 调用
func (t *Tracker) UpdateStatus(st *Status) {
	var callbacks []func(Status)
	if st != nil {
		c := *st
		t.mu.Lock()
		t.current = &c
		callbacks = append(callbacks, t.updates...)
		t.mu.Unlock()
	}
	for _, fn := range callbacks {
		fn(*st)
	}
	t.maybeRefresh()
}

func (t *Tracker) maybeRefresh() {
	if t.refresh == nil {
		return
	}
	t.sometimes.Do(func() {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.wg.Add(1)
		t.mu.Unlock()
		go func() {
			defer t.wg.Done()
			ctx, cancel := context.WithTimeout(t.Ctx(), refreshTimeout)
			defer cancel()
			if err := t.refresh(ctx); err != nil {
				t.logger.Debugf("Status: background refresh failed: %v", err)
			}
		}()
	})
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 事件处理
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (t *Tracker) handleStatus(env *events.Envelope) error {
	var st Status
	if err := env.Decode(&st); err != nil {
		t.logger.Warnf("Status: malformed status event: %v", err)
		return nil
	}
	t.UpdateStatus(&st)
	return nil
}

func (t *Tracker) handleImport(env *events.Envelope) error {
	var target string
	if err := env.Decode(&target); err != nil {
		t.logger.Warnf("Status: malformed import event: %v", err)
		return nil
	}
	switch {
	case target == ImportNoChanges:
		t.notifier.ShowInfo(notify.KeyGridMemberImportNoChanges)
	case target != "":
		t.notifier.ShowInfo(notify.Format(notify.KeyGridMemberImportSuccess, map[string]string{
			"url": t.shortenURL(target),
		}))
	}
	return nil
}

// shortenURL 指向控制台本身的地址只保留片段部分（"#/..."）
func (t *Tracker) shortenURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || t.host == "" || !strings.EqualFold(u.Host, t.host) {
		return raw
	}
	if u.Fragment == "" {
		return ""
	}
	return "#" + u.Fragment
}

func (t *Tracker) handleDetectionSync(env *events.Envelope) error {
	var report SyncReport
	if err := env.Decode(&report); err != nil {
		t.logger.Warnf("Status: malformed detection-sync event: %v", err)
		return nil
	}
	params := map[string]string{"engine": CorrectCasing(report.Engine)}
	switch report.Status {
	case SyncSuccess:
		t.notifier.ShowInfo(notify.Format(notify.KeySyncSuccess, params))
	case SyncPartial:
		t.notifier.ShowWarning(notify.Format(notify.KeySyncPartialSuccess, params))
	case SyncError:
		t.notifier.ShowError(notify.Format(notify.KeySyncFailure, params))
	default:
		t.logger.Debugf("Status: ignoring detection-sync status %q for %s", report.Status, report.Engine)
	}
	return nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 查询
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Current 返回最近一次收到的状态
func (t *Tracker) Current() (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return Status{}, false
	}
	return *t.current, true
}

func (t *Tracker) snapshot() *Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// DetectionEngineStatus 引擎状态摘要
func (t *Tracker) DetectionEngineStatus(engine string) EngineState {
	return t.snapshot().EngineState(engine)
}

// IsDetectionsUnhealthy 任一引擎失败
func (t *Tracker) IsDetectionsUnhealthy() bool {
	return t.snapshot().DetectionsUnhealthy()
}

// IsDetectionsUpdating 引擎正在更新且没有失败
func (t *Tracker) IsDetectionsUpdating() bool {
	return t.snapshot().DetectionsUpdating()
}

// IsGridUnhealthy 存在不健康节点
func (t *Tracker) IsGridUnhealthy() bool {
	return t.snapshot().GridUnhealthy()
}

// IsNewAlert 存在新告警
func (t *Tracker) IsNewAlert() bool {
	return t.snapshot().NewAlert()
}

// IsAttentionNeeded 有新告警、节点不健康、检测引擎失败，或事件通道未连接
func (t *Tracker) IsAttentionNeeded() bool {
	st := t.snapshot()
	if st.NewAlert() || st.GridUnhealthy() || st.DetectionsUnhealthy() {
		return true
	}
	if t.conn == nil {
		return false
	}
	return !t.conn.Connected() || t.conn.Reconnecting()
}

// WaitForStatus 等待第一个状态事件
func (t *Tracker) WaitForStatus(ctx context.Context) (Status, error) {
	if st, ok := t.Current(); ok {
		return st, nil
	}
	ch := make(chan Status, 1)
	t.OnUpdate(func(st Status) {
		select {
		case ch <- st:
		default:
		}
	})
	if st, ok := t.Current(); ok {
		return st, nil
	}
	select {
	case st := <-ch:
		return st, nil
	case <-ctx.Done():
		return Status{}, coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "no status received")
	}
}

func (t *Tracker) onClose() error {
	t.mu.Lock()
	subs := make([]dispose.Disposable, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.subs = nil
	t.closed = true
	t.mu.Unlock()

	err := dispose.All(subs...)
	t.wg.Wait()
	return err
}
