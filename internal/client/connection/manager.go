// Package connection 事件通道连接管理
//
// Manager 维护到后端 /ws 的唯一 WebSocket 连接：
//   - 保活定时器在已连接时发送 Ping，断开时重新拨号，永不放弃
//   - 每个连接周期一个读协程，按到达顺序把事件发布到事件总线
//   - 发送失败立即关闭连接，由下一次定时器触发重连
package connection

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"soc-console/internal/core/dispose"
	coreerrors "soc-console/internal/core/errors"
	"soc-console/internal/core/events"
	corelog "soc-console/internal/core/log"
)

// 默认参数
const (
	DefaultLivenessInterval = 15 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 5 * time.Second
)

// State 连接状态
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Status 连接状态快照，每次状态变化或保活成功后通知
type Status struct {
	State State
	Epoch uint64
	Err   error
}

// Connected 是否已连接
func (s Status) Connected() bool { return s.State == StateConnected }

// Reconnecting 是否正在拨号
func (s Status) Reconnecting() bool { return s.State == StateConnecting }

// Options 连接管理器配置
type Options struct {
	URL                string
	LivenessInterval   time.Duration
	HandshakeTimeout   time.Duration
	Header             http.Header
	InsecureSkipVerify bool
	Logger             corelog.Logger
}

// Manager 事件通道连接管理器
type Manager struct {
	dispose.Dispose

	opts   Options
	bus    *events.Bus
	dialer *websocket.Dialer
	logger corelog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	epoch     uint64
	started   bool
	listeners []statusListener

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

type statusListener struct {
	id string
	fn func(Status)
}

// NewManager 创建连接管理器，不会立即连接
func NewManager(parent context.Context, opts Options, bus *events.Bus) *Manager {
	if opts.LivenessInterval <= 0 {
		opts.LivenessInterval = DefaultLivenessInterval
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if bus == nil {
		bus = events.NewBus(opts.Logger)
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	if opts.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	m := &Manager{
		opts:   opts,
		bus:    bus,
		dialer: dialer,
		logger: corelog.OrDefault(opts.Logger).WithField("component", "connection"),
	}
	m.SetCtx(parent, m.onClose)
	return m
}

// Bus 事件总线
func (m *Manager) Bus() *events.Bus {
	return m.bus
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 订阅
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Subscribe 订阅事件并确保连接已建立
func (m *Manager) Subscribe(kind events.Kind, listener events.Listener) (*events.Subscription, error) {
	sub, err := m.bus.Subscribe(kind, listener)
	if err != nil {
		return nil, err
	}
	m.EnsureConnected()
	return sub, nil
}

// Unsubscribe 取消订阅，连接保持不变
func (m *Manager) Unsubscribe(kind events.Kind, listener events.Listener) bool {
	return m.bus.Unsubscribe(kind, listener)
}

// OnStatus 注册状态回调，返回的句柄用于注销
func (m *Manager) OnStatus(fn func(Status)) dispose.Disposable {
	id := uuid.NewString()
	m.mu.Lock()
	m.listeners = append(m.listeners, statusListener{id: id, fn: fn})
	m.mu.Unlock()

	return dispose.Once(dispose.Func(func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				break
			}
		}
		return nil
	}))
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 状态
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// State 当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected 是否已连接
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// Reconnecting 是否正在拨号
func (m *Manager) Reconnecting() bool {
	return m.State() == StateConnecting
}

// Epoch 当前连接周期编号，每次拨号递增
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 连接维护
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// EnsureConnected 首次调用时立即拨号并启动保活定时器，之后为空操作
func (m *Manager) EnsureConnected() {
	m.mu.Lock()
	if m.started || m.IsClosed() {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.wg.Add(1)
	m.mu.Unlock()

	m.tick()
	go m.livenessLoop()
}

func (m *Manager) livenessLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.LivenessInterval)
	defer ticker.Stop()

	ctx := m.Ctx()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick 断开时重新拨号，已连接时发送保活消息，拨号中不做处理
func (m *Manager) tick() {
	m.mu.Lock()
	if m.IsClosed() {
		m.mu.Unlock()
		return
	}

	switch m.state {
	case StateDisconnected:
		m.epoch++
		epoch := m.epoch
		m.state = StateConnecting
		status := m.statusLocked(nil)
		m.wg.Add(1)
		m.mu.Unlock()

		m.logger.Infof("WebSocket connecting to %s", m.opts.URL)
		m.notify(status)
		go m.dial(epoch)

	case StateConnected:
		conn := m.conn
		m.mu.Unlock()

		if err := m.send(conn, []byte(events.PingMessage)); err != nil {
			m.logger.Warnf("Failed to ping manager: %v", err)
			m.drop(conn, coreerrors.Wrap(err, coreerrors.CodeConnectionError, "ping failed"))
			return
		}
		m.notify(m.status(nil))

	default:
		m.mu.Unlock()
	}
}

func (m *Manager) dial(epoch uint64) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.Ctx(), m.opts.HandshakeTimeout)
	defer cancel()

	conn, _, err := m.dialer.DialContext(ctx, m.opts.URL, m.opts.Header)

	m.mu.Lock()
	if m.IsClosed() || epoch != m.epoch || m.state != StateConnecting {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.state = StateDisconnected
		cause := coreerrors.Wrap(err, coreerrors.CodeConnectionError, "websocket dial failed")
		status := m.statusLocked(cause)
		m.mu.Unlock()

		m.logger.Warnf("WebSocket closed, will attempt to reconnect: %v", err)
		m.notify(status)
		return
	}

	m.conn = conn
	m.state = StateConnected
	status := m.statusLocked(nil)
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Infof("WebSocket connected")
	go m.readLoop(conn)
	m.notify(status)
}

// readLoop 读取事件并按到达顺序发布，连接关闭后退出
func (m *Manager) readLoop(conn *websocket.Conn) {
	defer m.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !m.IsClosed() {
				m.logger.Infof("WebSocket closed, will attempt to reconnect: %v", err)
			}
			m.drop(conn, coreerrors.Wrap(err, coreerrors.CodeConnectionError, "websocket read failed"))
			return
		}

		env, err := events.ParseEnvelope(data)
		if err != nil {
			m.logger.Warnf("Discarding malformed event: %v", err)
			continue
		}
		if err := m.bus.Publish(env); err != nil {
			m.logger.WithError(err).Errorf("Event listener failed for %s", env.Kind)
		}
	}
}

func (m *Manager) send(conn *websocket.Conn, data []byte) error {
	if conn == nil {
		return coreerrors.ErrNotConnected
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// drop 关闭指定连接；仅当它仍是当前连接时切换到断开状态
func (m *Manager) drop(conn *websocket.Conn, cause error) {
	m.mu.Lock()
	current := m.conn == conn && conn != nil
	var status Status
	if current {
		m.conn = nil
		m.state = StateDisconnected
		status = m.statusLocked(cause)
	}
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if current {
		m.notify(status)
	}
}

func (m *Manager) status(cause error) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked(cause)
}

func (m *Manager) statusLocked(cause error) Status {
	return Status{State: m.state, Epoch: m.epoch, Err: cause}
}

func (m *Manager) notify(status Status) {
	m.mu.Lock()
	listeners := make([]statusListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l.fn(status)
	}
}

// onClose 关闭当前连接并等待所有协程退出
func (m *Manager) onClose() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	m.wg.Wait()
	m.logger.Debugf("Connection manager closed")
	return nil
}
