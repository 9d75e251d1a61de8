package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soc-console/internal/core/events"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/testutils"
)

const waitFor = 3 * time.Second
const pollEvery = 10 * time.Millisecond

func newTestManager(t *testing.T, backend *testutils.FakeBackend) *Manager {
	cfg := backend.ServerConfig()
	m := NewManager(context.Background(), Options{
		URL:              cfg.WebSocketURL(),
		LivenessInterval: cfg.WebSocketTimeout,
		HandshakeTimeout: time.Second,
		Logger:           corelog.NewTestLogger(t),
	}, nil)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// collector 收集事件，供测试读取
type collector struct {
	mu   sync.Mutex
	envs []*events.Envelope
}

func (c *collector) HandleEvent(env *events.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	return nil
}

func (c *collector) objects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.envs))
	for _, env := range c.envs {
		var s string
		_ = env.Decode(&s)
		out = append(out, s)
	}
	return out
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envs)
}

func TestManager_SubscribeConnectsAndDeliversInOrder(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)
	col := &collector{}

	_, err := m.Subscribe(events.KindImport, col)
	require.NoError(t, err)
	require.Eventually(t, m.Connected, waitFor, pollEvery)
	require.Eventually(t, func() bool { return backend.ActiveConnections() == 1 }, waitFor, pollEvery)

	backend.Push(events.KindImport, "one")
	backend.Push(events.KindStatus, "ignored")
	backend.Push(events.KindImport, "two")
	backend.Push(events.KindImport, "three")

	require.Eventually(t, func() bool { return col.len() == 3 }, waitFor, pollEvery)
	assert.Equal(t, []string{"one", "two", "three"}, col.objects())
}

func TestManager_SendsPingWhileConnected(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)

	m.EnsureConnected()
	assert.Eventually(t, func() bool { return backend.Pings() >= 2 }, waitFor, pollEvery)
	assert.Equal(t, 1, backend.TotalConnections())
}

func TestManager_ReconnectsAfterServerClose(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)
	col := &collector{}

	_, err := m.Subscribe(events.KindStatus, col)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Connected() && backend.ActiveConnections() == 1 }, waitFor, pollEvery)
	firstEpoch := m.Epoch()

	backend.DropConnections()

	require.Eventually(t, func() bool {
		return m.Connected() && m.Epoch() > firstEpoch && backend.ActiveConnections() == 1
	}, waitFor, pollEvery)
	assert.GreaterOrEqual(t, backend.TotalConnections(), 2)

	// 订阅在重连后仍然有效
	backend.Push(events.KindStatus, "after-reconnect")
	require.Eventually(t, func() bool { return col.len() == 1 }, waitFor, pollEvery)
	assert.Equal(t, []string{"after-reconnect"}, col.objects())
}

func TestManager_RetriesWhileBackendUnavailable(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.RejectWebSocket(true)
	m := newTestManager(t, backend)

	m.EnsureConnected()
	require.Eventually(t, func() bool { return m.Epoch() >= 3 }, waitFor, pollEvery)
	assert.False(t, m.Connected())

	backend.RejectWebSocket(false)
	assert.Eventually(t, m.Connected, waitFor, pollEvery)
}

func TestManager_DuplicateSubscriptionDeliversOnce(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)
	col := &collector{}

	first, err := m.Subscribe(events.KindImport, col)
	require.NoError(t, err)
	second, err := m.Subscribe(events.KindImport, col)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Bus().HandlerCount(events.KindImport))

	require.Eventually(t, func() bool { return backend.ActiveConnections() == 1 }, waitFor, pollEvery)
	backend.Push(events.KindImport, "x")
	require.Eventually(t, func() bool { return col.len() >= 1 }, waitFor, pollEvery)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, col.len())

	assert.True(t, m.Unsubscribe(events.KindImport, col))
	assert.True(t, m.Connected(), "unsubscribe leaves the connection open")
}

func TestManager_MalformedMessageIsSkipped(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)
	col := &collector{}

	_, err := m.Subscribe(events.KindImport, col)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return backend.ActiveConnections() == 1 }, waitFor, pollEvery)

	backend.PushRaw("not json")
	backend.Push(events.KindImport, "valid")

	require.Eventually(t, func() bool { return col.len() == 1 }, waitFor, pollEvery)
	assert.True(t, m.Connected())
}

func TestManager_StatusNotifications(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)

	var mu sync.Mutex
	var states []State
	handle := m.OnStatus(func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	m.EnsureConnected()
	require.Eventually(t, m.Connected, waitFor, pollEvery)

	mu.Lock()
	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, StateConnecting, states[0])
	assert.Equal(t, StateConnected, states[1])
	mu.Unlock()

	require.NoError(t, handle.Dispose())
	mu.Lock()
	n := len(states)
	mu.Unlock()

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, n, len(states))
	mu.Unlock()
}

func TestManager_DisposedStatusListenersAreRemoved(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)

	var calls []string
	keep := m.OnStatus(func(Status) { calls = append(calls, "keep") })
	for i := 0; i < 100; i++ {
		h := m.OnStatus(func(Status) { calls = append(calls, "dropped") })
		require.NoError(t, h.Dispose())
		require.NoError(t, h.Dispose())
	}

	m.mu.Lock()
	assert.Len(t, m.listeners, 1)
	m.mu.Unlock()

	m.notify(Status{State: StateDisconnected})
	assert.Equal(t, []string{"keep"}, calls)

	require.NoError(t, keep.Dispose())
	m.mu.Lock()
	assert.Empty(t, m.listeners)
	m.mu.Unlock()
}

func TestManager_CloseReleasesConnectionAndTicker(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	m := newTestManager(t, backend)

	m.EnsureConnected()
	require.Eventually(t, func() bool { return backend.ActiveConnections() == 1 }, waitFor, pollEvery)

	require.NoError(t, m.Close())
	assert.Equal(t, StateDisconnected, m.State())
	assert.Eventually(t, func() bool { return backend.ActiveConnections() == 0 }, waitFor, pollEvery)

	epoch := m.Epoch()
	pings := backend.Pings()
	m.EnsureConnected()
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, epoch, m.Epoch())
	assert.Equal(t, pings, backend.Pings())
	assert.Equal(t, 1, backend.TotalConnections())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
}
