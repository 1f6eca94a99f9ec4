package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolFunc func(task func()) error

func (f poolFunc) Submit(task func()) error { return f(task) }

func newPool(t *testing.T, size int) *ants.Pool {
	t.Helper()
	p, err := New(size)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

// occupy fills every worker until the returned func is called.
func occupy(t *testing.T, p *ants.Pool) func() {
	t.Helper()
	release := make(chan struct{})
	for i := 0; i < p.Cap(); i++ {
		require.NoError(t, p.Submit(func() { <-release }))
	}
	return func() { close(release) }
}

func TestNew_IsNonblocking(t *testing.T) {
	p := newPool(t, 1)
	release := occupy(t, p)
	defer release()

	assert.ErrorIs(t, p.Submit(func() {}), ants.ErrPoolOverload)
}

func TestSubmit_Runs(t *testing.T) {
	p := newPool(t, 2)
	done := make(chan struct{})

	require.NoError(t, Submit(context.Background(), p, func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestSubmit_WaitsForFreeWorker(t *testing.T) {
	p := newPool(t, 1)
	release := occupy(t, p)
	time.AfterFunc(20*time.Millisecond, release)

	var ran atomic.Bool
	done := make(chan struct{})
	err := Submit(context.Background(), p, func() {
		ran.Store(true)
		close(done)
	})
	require.NoError(t, err)
	<-done
	assert.True(t, ran.Load())
}

func TestSubmit_SaturatedPoolHonoursDeadline(t *testing.T) {
	p := newPool(t, 2)
	release := occupy(t, p)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	start := time.Now()
	err := Submit(ctx, p, func() { ran.Store(true) })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, ran.Load(), "task must not run after giving up")
}

func TestSubmit_CancelledBeforeSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Submit(ctx, poolFunc(func(func()) error {
		called = true
		return nil
	}), func() {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubmit_OtherErrorsReturnedAsIs(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	p.Release()

	err = Submit(context.Background(), p, func() {})
	assert.True(t, errors.Is(err, ants.ErrPoolClosed))
}
