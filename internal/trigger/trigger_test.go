package trigger

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsExactCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n int64
	s := New()
	s.Run(ctx, Spec{IntervalMs: 5, InitialDelayMs: 0, Count: 3, HasCount: true}, func(context.Context) {
		atomic.AddInt64(&n, 1)
	})

	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not terminate after exhausting count")
	}
	assert.EqualValues(t, 3, atomic.LoadInt64(&n))
}

func TestSchedulerZeroCountIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n int64
	s := New()
	s.Run(ctx, Spec{IntervalMs: 5, Count: 0, HasCount: true}, func(context.Context) {
		atomic.AddInt64(&n, 1)
	})

	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no-op trigger should return immediately without firing")
	}
	require.EqualValues(t, 0, atomic.LoadInt64(&n))
}

func TestSchedulerCancellationStopsFiring(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var n int64
	s := New()
	s.Run(ctx, Spec{IntervalMs: 5, InitialDelayMs: 0}, func(context.Context) {
		atomic.AddInt64(&n, 1)
	})

	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	fired := atomic.LoadInt64(&n)
	assert.Greater(t, fired, int64(0))

	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, fired, atomic.LoadInt64(&n), "no further ticks after cancel")
}
