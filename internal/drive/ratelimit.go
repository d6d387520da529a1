package drive

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Leeway is added to every computed wait.
const Leeway = 2 * time.Second

// Limiter allows at most Max calls in any Window. Wait blocks until the
// oldest call in the window has aged out. Call times are kept in a ring of
// Max slots; a Max of zero or less disables limiting.
type Limiter struct {
	Max    int
	Window time.Duration
	Leeway time.Duration
	Logger *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu    sync.Mutex
	calls []time.Time // ring, oldest at head
	head  int
	n     int
}

// NewLimiter returns a limiter using the wall clock.
func NewLimiter(max int, window time.Duration, log *slog.Logger) *Limiter {
	return &Limiter{Max: max, Window: window, Leeway: Leeway, Logger: log}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait records a call, first sleeping if Max calls already happened inside
// the window.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.Max <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now, sleep := time.Now, sleepCtx
	if l.now != nil {
		now = l.now
	}
	if l.sleep != nil {
		sleep = l.sleep
	}

	if len(l.calls) != l.Max {
		l.calls, l.head, l.n = make([]time.Time, l.Max), 0, 0
	}

	t := now()
	for l.n > 0 && t.Sub(l.calls[l.head]) > l.Window {
		l.pop()
	}
	if l.n == l.Max {
		d := l.Window - t.Sub(l.calls[l.head]) + l.Leeway
		if l.Logger != nil {
			l.Logger.Warn("waiting to avoid reaching rate limit", "seconds", int(d/time.Second))
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
		l.pop()
	}
	l.calls[(l.head+l.n)%l.Max] = now()
	l.n++
	return nil
}

func (l *Limiter) pop() {
	l.head = (l.head + 1) % len(l.calls)
	l.n--
}
