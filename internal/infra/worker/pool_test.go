//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool(t *testing.T) {
	t.Run("should run every submitted task before Stop returns", func(t *testing.T) {
		// --- Arrange ---
		p := NewPool(3, nil)
		var ran int32
		p.Start(context.Background())

		// --- Act ---
		for i := 0; i < 20; i++ {
			if err := p.Submit(func(ctx context.Context) error {
				atomic.AddInt32(&ran, 1)
				return nil
			}); err != nil {
				t.Fatalf("submit failed: %v", err)
			}
		}
		p.Stop()

		// --- Assert ---
		if got := atomic.LoadInt32(&ran); got != 20 {
			t.Errorf("expected 20 tasks to run, got %d", got)
		}
	})

	t.Run("should run queued tasks when the context is cancelled before Stop", func(t *testing.T) {
		// --- Arrange ---
		p := NewPool(1, nil)
		ctx, cancel := context.WithCancel(context.Background())
		gate := make(chan struct{})
		var ran int32
		task := func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}
		p.Start(ctx)
		_ = p.Submit(func(ctx context.Context) error { <-gate; return nil })
		for i := 0; i < 5; i++ {
			if err := p.Submit(task); err != nil {
				t.Fatalf("submit failed: %v", err)
			}
		}

		// --- Act ---
		cancel()
		close(gate)
		p.Stop()

		// --- Assert ---
		if got := atomic.LoadInt32(&ran); got != 5 {
			t.Errorf("expected 5 queued tasks to run, got %d", got)
		}
	})

	t.Run("should survive failing and panicking tasks", func(t *testing.T) {
		p := NewPool(1, nil)
		p.Start(context.Background())
		done := make(chan struct{})

		_ = p.Submit(func(ctx context.Context) error { return errors.New("boom") })
		_ = p.Submit(func(ctx context.Context) error { panic("bad task") })
		_ = p.Submit(func(ctx context.Context) error { close(done); return nil })

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pool stopped processing after a failing task")
		}
		p.Stop()
	})

	t.Run("should reject when the queue is full", func(t *testing.T) {
		p := NewPool(1, nil) // not started, nothing drains
		var err error
		for i := 0; i < 100 && err == nil; i++ {
			err = p.Submit(func(ctx context.Context) error { return nil })
		}
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
	})

	t.Run("should reject a nil task", func(t *testing.T) {
		if err := NewPool(1, nil).Submit(nil); err == nil {
			t.Error("expected error for nil task")
		}
	})
}
