package drive

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when the limiter sleeps or the test moves it.
type fakeClock struct {
	t      time.Time
	slept  []time.Duration
	sleepE error
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	if c.sleepE != nil {
		return c.sleepE
	}
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	c := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(max, window, nil)
	l.now, l.sleep = c.now, c.sleep
	return l, c
}

func TestLimiterUnderLimit(t *testing.T) {
	l, c := newTestLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(c.slept) != 0 {
		t.Errorf("slept %v under the limit", c.slept)
	}
}

func TestLimiterWaitsForOldestCall(t *testing.T) {
	l, c := newTestLimiter(20, 120*time.Second)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		l.Wait(ctx)
		c.t = c.t.Add(time.Second)
	}
	// 20 calls at t=0..19s, now t=20s: the oldest leaves the window at 120s.
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	want := 100*time.Second + Leeway
	if len(c.slept) != 1 || c.slept[0] != want {
		t.Fatalf("slept %v, want [%v]", c.slept, want)
	}
	// The next call finds the first one expired and goes straight through.
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if len(c.slept) != 1 {
		t.Errorf("slept again: %v", c.slept)
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l, c := newTestLimiter(2, 10*time.Second)
	ctx := context.Background()
	l.Wait(ctx)
	l.Wait(ctx)
	c.t = c.t.Add(11 * time.Second)
	l.Wait(ctx)
	if len(c.slept) != 0 {
		t.Errorf("slept %v after window expired", c.slept)
	}
}

func TestLimiterRingWrapsAround(t *testing.T) {
	l, c := newTestLimiter(2, 10*time.Second)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		l.Wait(ctx)
		if i < 2 {
			c.t = c.t.Add(time.Second)
		}
	}
	// Calls at 0s, 1s, then 2s waits for the 0s call: 10-2+2.
	// The wrapped ring now holds 1s and 12s; at 12s the 1s call has
	// expired, so one more goes through and the next waits on 12s.
	l.Wait(ctx)
	l.Wait(ctx)
	want := []time.Duration{10 * time.Second, 12 * time.Second}
	if len(c.slept) != 2 || c.slept[0] != want[0] || c.slept[1] != want[1] {
		t.Errorf("slept %v, want %v", c.slept, want)
	}
}

func TestLimiterFixedStorage(t *testing.T) {
	l, c := newTestLimiter(5, time.Minute)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatal(err)
		}
		c.t = c.t.Add(time.Second)
	}
	if len(l.calls) != 5 || cap(l.calls) != 5 || l.n > 5 {
		t.Errorf("ring len=%d cap=%d n=%d, want 5 slots", len(l.calls), cap(l.calls), l.n)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l, c := newTestLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		l.Wait(context.Background())
	}
	if len(c.slept) != 0 || l.calls != nil {
		t.Errorf("disabled limiter slept %v or recorded calls", c.slept)
	}
}

func TestLimiterCancelled(t *testing.T) {
	l, c := newTestLimiter(1, time.Minute)
	ctx := context.Background()
	l.Wait(ctx)
	c.sleepE = context.Canceled
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
