package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soc-console/internal/core/dispose"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
)

func newTestBus(t *testing.T) *Bus {
	return NewBus(corelog.NewTestLogger(t))
}

// recorder 可比较的监听器类型
type recorder struct {
	name string
	log  *[]string
}

func (r *recorder) HandleEvent(env *Envelope) error {
	*r.log = append(*r.log, r.name+":"+string(env.Kind))
	return nil
}

func TestBus_PublishInRegistrationOrder(t *testing.T) {
	bus := newTestBus(t)
	var got []string

	_, err := bus.Subscribe(KindStatus, &recorder{name: "a", log: &got})
	require.NoError(t, err)
	_, err = bus.Subscribe(KindStatus, &recorder{name: "b", log: &got})
	require.NoError(t, err)
	_, err = bus.Subscribe(KindImport, &recorder{name: "c", log: &got})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(&Envelope{Kind: KindStatus}))
	assert.Equal(t, []string{"a:status", "b:status"}, got)
}

func TestBus_DuplicateSubscribeIsNoop(t *testing.T) {
	bus := newTestBus(t)
	calls := 0
	l := NewListener(func(env *Envelope) error {
		calls++
		return nil
	})

	first, err := bus.Subscribe(KindStatus, l)
	require.NoError(t, err)
	second, err := bus.Subscribe(KindStatus, l)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, bus.HandlerCount(KindStatus))

	require.NoError(t, bus.Publish(&Envelope{Kind: KindStatus}))
	assert.Equal(t, 1, calls)
}

func TestBus_DistinctFuncListenersAreDistinct(t *testing.T) {
	bus := newTestBus(t)
	fn := func(env *Envelope) error { return nil }

	_, err := bus.Subscribe(KindStatus, NewListener(fn))
	require.NoError(t, err)
	_, err = bus.Subscribe(KindStatus, NewListener(fn))
	require.NoError(t, err)

	assert.Equal(t, 2, bus.HandlerCount(KindStatus))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t)
	var got []string
	a := &recorder{name: "a", log: &got}
	b := &recorder{name: "b", log: &got}

	_, _ = bus.Subscribe(KindStatus, a)
	_, _ = bus.Subscribe(KindStatus, b)

	assert.True(t, bus.Unsubscribe(KindStatus, a))
	assert.False(t, bus.Unsubscribe(KindStatus, a))
	assert.False(t, bus.Unsubscribe(KindImport, b))

	require.NoError(t, bus.Publish(&Envelope{Kind: KindStatus}))
	assert.Equal(t, []string{"b:status"}, got)
}

func TestSubscription_Dispose(t *testing.T) {
	bus := newTestBus(t)
	sub, err := bus.Subscribe(KindImport, NewListener(func(env *Envelope) error { return nil }))
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)

	var d dispose.Disposable = sub
	require.NoError(t, d.Dispose())
	require.NoError(t, d.Dispose())
	assert.Equal(t, 0, bus.HandlerCount(KindImport))
	assert.Empty(t, bus.Kinds())
}

func TestBus_PublishStopsAtFirstError(t *testing.T) {
	bus := newTestBus(t)
	boom := errors.New("boom")
	var got []string

	_, _ = bus.Subscribe(KindStatus, NewListener(func(env *Envelope) error { return boom }))
	_, _ = bus.Subscribe(KindStatus, &recorder{name: "late", log: &got})

	err := bus.Publish(&Envelope{Kind: KindStatus})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)
}

func TestBus_PublishWithoutListeners(t *testing.T) {
	bus := newTestBus(t)
	assert.NoError(t, bus.Publish(&Envelope{Kind: "unknown"}))
	assert.True(t, coreerrors.IsCode(bus.Publish(nil), coreerrors.CodeInvalidParam))
}

func TestBus_SubscribeValidation(t *testing.T) {
	bus := newTestBus(t)

	_, err := bus.Subscribe("", NewListener(func(env *Envelope) error { return nil }))
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidParam))

	_, err = bus.Subscribe(KindStatus, nil)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidParam))
}

func TestBus_ListenerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := newTestBus(t)
	calls := 0
	var sub *Subscription
	sub, _ = bus.Subscribe(KindStatus, NewListener(func(env *Envelope) error {
		calls++
		return sub.Dispose()
	}))

	require.NoError(t, bus.Publish(&Envelope{Kind: KindStatus}))
	require.NoError(t, bus.Publish(&Envelope{Kind: KindStatus}))
	assert.Equal(t, 1, calls)
}

func TestBus_WaitForEvent(t *testing.T) {
	bus := newTestBus(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		env, _ := NewEnvelope(KindImport, map[string]string{"url": "/x"})
		_ = bus.Publish(env)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	env, err := bus.WaitForEvent(ctx, KindImport)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"/x"}`, string(env.Object))
	assert.Equal(t, 0, bus.HandlerCount(KindImport))
}

func TestBus_WaitForEventTimeout(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := bus.WaitForEvent(ctx, KindStatus)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeTimeout))
}
