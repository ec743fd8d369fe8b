//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClient struct {
	mu      sync.Mutex
	counts  map[string]int64
	values  map[string]string
	expires map[string]time.Duration
	incrErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{counts: map[string]int64{}, values: map[string]string{}, expires: map[string]time.Duration{}}
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeClient) Expire(_ context.Context, key string, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = d
	return nil
}

func (f *fakeClient) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeClient) CompareAndDelete(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] == value {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit and set the window once", func(t *testing.T) {
		fc := newFakeClient()
		rl := NewRateLimiter(fc)
		key := OriginKey("login", "10.0.0.1")

		for i := 1; i <= 3; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil || !ok {
				t.Fatalf("attempt %d: expected allowed, got %v (%v)", i, ok, err)
			}
		}
		ok, _ := rl.Allow(ctx, key, 3, time.Minute)
		if ok {
			t.Fatal("expected the fourth attempt to be limited")
		}
		if fc.expires[key] != time.Minute {
			t.Errorf("expected window to be set, got %v", fc.expires[key])
		}
		if key != "portal:rl:login:10.0.0.1" {
			t.Errorf("unexpected key %s", key)
		}
	})

	t.Run("should not touch redis when the limit is disabled", func(t *testing.T) {
		fc := newFakeClient()
		fc.incrErr = errors.New("must not be called")
		ok, err := NewRateLimiter(fc).Allow(ctx, OriginKey("redeem", "10.0.0.2"), 0, time.Minute)
		if err != nil || !ok {
			t.Fatalf("expected allowed without error, got %v (%v)", ok, err)
		}
	})

	t.Run("should share one bucket for requests without an origin", func(t *testing.T) {
		if got := OriginKey("login", ""); got != "portal:rl:login:unknown" {
			t.Errorf("unexpected key %s", got)
		}
	})

	t.Run("should surface redis errors", func(t *testing.T) {
		fc := newFakeClient()
		fc.incrErr = errors.New("connection refused")
		if _, err := NewRateLimiter(fc).Allow(ctx, "k", 1, time.Second); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker(newFakeClient())

	token, err := l.TryLock(ctx, JobKey("retention"), time.Minute)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := l.TryLock(ctx, JobKey("retention"), time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if err := l.Unlock(ctx, JobKey("retention"), "someone-else"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, JobKey("retention"), time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatal("a foreign token must not release the lock")
	}
	_ = l.Unlock(ctx, JobKey("retention"), token)
	if _, err := l.TryLock(ctx, JobKey("retention"), time.Minute); err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
}
