package gateway

import (
	"context"
	"sync"
	"time"
)

// SlidingWindowRateLimiter 滑动窗口限流器：窗口内最多放行 capacity 次调用。
// Acquire 不会拒绝，只会等待；醒来后重新检查（并发调用可能已占用名额）。
type SlidingWindowRateLimiter struct {
	capacity int
	window   time.Duration

	mu         sync.Mutex
	timestamps []time.Time

	clock Clock
}

func NewSlidingWindowRateLimiter(capacity int, window time.Duration) *SlidingWindowRateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &SlidingWindowRateLimiter{
		capacity:   capacity,
		window:     window,
		timestamps: make([]time.Time, 0, capacity),
		clock:      SystemClock,
	}
}

// Acquire 占用一个名额；窗口已满则等待最早的名额过期后重试。
// 只在成功占位时修改状态，等待中被 ctx 取消不留痕迹。
func (l *SlidingWindowRateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.prune(now.Add(-l.window))
		if len(l.timestamps) < l.capacity {
			l.timestamps = append(l.timestamps, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.timestamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Admitted 返回当前窗口内已放行的次数。
func (l *SlidingWindowRateLimiter) Admitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.clock.Now().Add(-l.window))
	return len(l.timestamps)
}

// prune 调用方必须持有 l.mu。
func (l *SlidingWindowRateLimiter) prune(cutoff time.Time) {
	i := 0
	for ; i < len(l.timestamps); i++ {
		if l.timestamps[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		l.timestamps = l.timestamps[i:]
	}
}
