package dispose

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispose_CloseRunsHandlersInOrder(t *testing.T) {
	var d Dispose
	var order []int

	d.SetCtx(context.Background(), func() error {
		order = append(order, 1)
		return nil
	})
	d.AddCleanHandler(func() error {
		order = append(order, 2)
		return nil
	})

	require.NoError(t, d.Close())
	assert.Equal(t, []int{1, 2}, order)
	assert.True(t, d.IsClosed())
	assert.Error(t, d.Ctx().Err(), "context should be cancelled")

	// 重复关闭不再执行
	require.NoError(t, d.Close())
	assert.Equal(t, []int{1, 2}, order)
}

func TestDispose_CloseCollectsErrors(t *testing.T) {
	var d Dispose
	boom := errors.New("boom")
	called := false

	d.AddCleanHandler(func() error { return boom })
	d.AddCleanHandler(func() error {
		called = true
		return nil
	})

	err := d.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, called, "later handlers still run after a failure")

	var de *DisposeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.HandlerIndex)
}

func TestDispose_ParentCancellation(t *testing.T) {
	var d Dispose
	var closed atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())

	d.SetCtx(ctx, func() error {
		closed.Store(true)
		return nil
	})
	cancel()

	assert.Eventually(t, closed.Load, time.Second, 10*time.Millisecond)
	assert.Eventually(t, d.IsClosed, time.Second, 10*time.Millisecond)
}

func TestDispose_AddAfterCloseRunsImmediately(t *testing.T) {
	var d Dispose
	require.NoError(t, d.Close())

	called := false
	d.AddCleanHandler(func() error {
		called = true
		return nil
	})
	assert.True(t, called)
}

func TestOnce(t *testing.T) {
	count := 0
	d := Once(Func(func() error {
		count++
		return nil
	}))

	require.NoError(t, d.Dispose())
	require.NoError(t, d.Dispose())
	assert.Equal(t, 1, count)
}

func TestAll(t *testing.T) {
	boom := errors.New("boom")
	count := 0
	inc := Func(func() error {
		count++
		return nil
	})

	err := All(inc, nil, Func(func() error { return boom }), inc)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, count)
	assert.NoError(t, All())
	assert.NoError(t, Func(nil).Dispose())
}
