package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter allows at most perWindow requests in any sliding window and at most
// concurrent requests in flight.
type Limiter struct {
	perWindow int
	window    time.Duration

	attemptsLock sync.Mutex
	attempts     []time.Time

	concurrentReqs chan struct{}
}

func NewLimiter(perWindow int, window time.Duration, concurrent int) *Limiter {
	l := &Limiter{
		perWindow:      max(perWindow, 1),
		window:         window,
		concurrentReqs: make(chan struct{}, max(concurrent, 1)),
	}
	for i := 0; i < cap(l.concurrentReqs); i++ {
		l.concurrentReqs <- struct{}{}
	}
	return l
}

// Acquire takes a concurrency token. The returned func gives it back.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.concurrentReqs:
		return func() { l.concurrentReqs <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until another request fits in the window.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.attemptsLock.Lock()
		now := time.Now()
		att := l.attempts
		if len(att) < l.perWindow || now.Sub(att[0]) > l.window {
			att = append(att, now)
			if len(att) > l.perWindow {
				att = att[1:]
			}
			l.attempts = att
			l.attemptsLock.Unlock()
			return nil
		}
		wait := att[0].Add(l.window).Sub(now) + time.Millisecond
		l.attemptsLock.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}
