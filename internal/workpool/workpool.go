// Package workpool schedules tasks on the shared ants pool without letting a
// saturated pool hold a caller past its context.
package workpool

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
)

// RetryInterval is how long Submit waits before retrying a saturated pool.
const RetryInterval = 5 * time.Millisecond

// Pool runs tasks; *ants.Pool satisfies it.
type Pool interface {
	Submit(task func()) error
}

// New creates a nonblocking pool: Submit fails with ants.ErrPoolOverload
// instead of parking the caller when every worker is busy.
func New(size int) (*ants.Pool, error) {
	return ants.NewPool(size, ants.WithNonblocking(true))
}

// Submit hands task to pool, retrying while the pool is saturated.
// It returns ctx.Err() once ctx is done and the task will never run.
func Submit(ctx context.Context, pool Pool, task func()) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := pool.Submit(task)
		if !errors.Is(err, ants.ErrPoolOverload) {
			return err
		}

		if timer == nil {
			timer = time.NewTimer(RetryInterval)
		} else {
			timer.Reset(RetryInterval)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
