package gateway

import (
	"context"
	"sync"
	"time"
)

// PacingGovernor 保证订单类请求之间的最小间隔：
// 全局至少 minGlobal，同一标的至少 minSymbol。
type PacingGovernor struct {
	minGlobal time.Duration
	minSymbol time.Duration

	mu         sync.Mutex
	lastGlobal time.Time
	lastSymbol map[string]time.Time

	clock Clock
}

func NewPacingGovernor(minGlobal, minSymbol time.Duration) *PacingGovernor {
	return &PacingGovernor{
		minGlobal:  minGlobal,
		minSymbol:  minSymbol,
		lastSymbol: make(map[string]time.Time),
		clock:      SystemClock,
	}
}

// Pace 阻塞到两个间隔都满足后原子提交放行时间戳。
// 每次醒来都在锁内重算等待时间：同一标的的两个并发调用不会同时认为闸门已开。
func (g *PacingGovernor) Pace(ctx context.Context, symbol string) error {
	for {
		g.mu.Lock()
		now := g.clock.Now()

		var wait time.Duration
		if !g.lastGlobal.IsZero() {
			if d := g.lastGlobal.Add(g.minGlobal).Sub(now); d > wait {
				wait = d
			}
		}
		if last, ok := g.lastSymbol[symbol]; ok {
			if d := last.Add(g.minSymbol).Sub(now); d > wait {
				wait = d
			}
		}

		if wait <= 0 {
			g.lastGlobal = now
			g.lastSymbol[symbol] = now
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SetIntervals 热更新间隔（配置热加载用）；不影响已提交的时间戳。
func (g *PacingGovernor) SetIntervals(minGlobal, minSymbol time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.minGlobal = minGlobal
	g.minSymbol = minSymbol
}
