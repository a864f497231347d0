package gateway

import (
	"context"
	"errors"
	"time"
)

// Observer 网关侧指标出口；Prometheus 实现见 metrics 包。
type Observer interface {
	ObserveRequest(path string, dur time.Duration, err error)
	ObserveBackoff(stage, cycles int)
	ObserveAmendRejected()
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, time.Duration, error) {}
func (nopObserver) ObserveBackoff(int, int)                     {}
func (nopObserver) ObserveAmendRejected()                       {}

// Config 网关治理参数；默认值对应 KIS 实盘接口。
type Config struct {
	RateLimit         int           // 窗口内最大调用数
	RateWindow        time.Duration // 限流窗口
	MinGlobalInterval time.Duration // 订单类请求全局最小间隔
	MinSymbolInterval time.Duration // 同一标的最小间隔
	MaxAmendsPerOrder int           // 单订单정정/취소上限
	OrderTimeout      time.Duration // 订单类请求响应超时
	RetryDelay        time.Duration // 重试前固定等待
	Backoff           BackoffConfig
	SLO               SLOConfig
}

func DefaultConfig() Config {
	return Config{
		RateLimit:         10,
		RateWindow:        time.Second,
		MinGlobalInterval: 150 * time.Millisecond,
		MinSymbolInterval: 300 * time.Millisecond,
		MaxAmendsPerOrder: 5,
		OrderTimeout:      2500 * time.Millisecond,
		RetryDelay:        5 * time.Second,
		Backoff:           DefaultBackoffConfig(),
		SLO:               DefaultSLOConfig(),
	}
}

// OrderGateway 把限流、下单节流、改单限制、退避、SLO 观测和单次重试
// 组合在传输调用周围。各组件各持一把锁，任何锁都不会跨组件或跨网络持有。
type OrderGateway struct {
	transport Transport

	limiter *SlidingWindowRateLimiter
	pacing  *PacingGovernor
	amends  *AmendLimiter
	backoff *BackoffController
	slo     *SLOMonitor
	retry   *RetryPolicy

	timeout time.Duration
	clock   Clock
	obs     Observer
}

// New 组装订单网关。sink 为 nil 时 SLO 告警被丢弃；obs 为 nil 时不上报指标。
func New(transport Transport, cfg Config, sink AlertSink, obs Observer) *OrderGateway {
	if obs == nil {
		obs = nopObserver{}
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 2500 * time.Millisecond
	}
	return &OrderGateway{
		transport: transport,
		limiter:   NewSlidingWindowRateLimiter(cfg.RateLimit, cfg.RateWindow),
		pacing:    NewPacingGovernor(cfg.MinGlobalInterval, cfg.MinSymbolInterval),
		amends:    NewAmendLimiter(cfg.MaxAmendsPerOrder),
		backoff:   NewBackoffController(cfg.Backoff),
		slo:       NewSLOMonitor(cfg.SLO, sink),
		retry:     NewRetryPolicy(cfg.RetryDelay),
		timeout:   cfg.OrderTimeout,
		clock:     SystemClock,
		obs:       obs,
	}
}

// Call 查询类请求：只过限流和退避，不做下单节流，也不重试。
func (g *OrderGateway) Call(ctx context.Context, path string, payload, headers map[string]string) (*APIResponse, error) {
	return g.attempt(path, payload, headers)(ctx)
}

// OrderCall 订单类请求（下单）：先过节流闸门，再带单次重试地调用传输。
// 节流提交 happens-before 传输调用。
func (g *OrderGateway) OrderCall(ctx context.Context, symbol, path string, payload, headers map[string]string) (*APIResponse, error) {
	if err := g.pacing.Pace(ctx, symbol); err != nil {
		return nil, err
	}
	return g.retry.Execute(ctx, g.attempt(path, payload, headers))
}

// AmendCall 정정/취소（改单/撤单）：先过改单上限，超限即终止，绝不触网。
func (g *OrderGateway) AmendCall(ctx context.Context, orderID, symbol, path string, payload, headers map[string]string) (*APIResponse, error) {
	if err := g.amends.CheckAndIncrement(orderID); err != nil {
		g.obs.ObserveAmendRejected()
		return nil, err
	}
	return g.OrderCall(ctx, symbol, path, payload, headers)
}

// attempt 包装单次传输调用：限流占位、退避等待、计时、SLO 记录、退避推进。
// 重试时每次尝试都独立走一遍限流与退避。
func (g *OrderGateway) attempt(path string, payload, headers map[string]string) Operation {
	return func(ctx context.Context) (*APIResponse, error) {
		if err := g.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		if err := g.waitBackoff(ctx); err != nil {
			return nil, err
		}

		start := g.clock.Now()
		resp, err := g.transport.Post(ctx, path, payload, headers, g.timeout)
		dur := g.clock.Now().Sub(start)

		g.slo.Record(dur, err == nil)
		g.backoff.Observe(err)
		g.obs.ObserveRequest(path, dur, err)
		_, stage, cycles := g.backoff.Snapshot()
		g.obs.ObserveBackoff(stage, cycles)

		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}

// waitBackoff 退避延迟是透明等待，不会以错误形式上抛（ctx 取消除外）。
func (g *OrderGateway) waitBackoff(ctx context.Context) error {
	d := g.backoff.NextDelay()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacing 供配置热加载调整间隔。
func (g *OrderGateway) Pacing() *PacingGovernor { return g.pacing }

// Amends 供配置热加载调整上限。
func (g *OrderGateway) Amends() *AmendLimiter { return g.amends }

// Backoff 供指标探针读取退避状态。
func (g *OrderGateway) Backoff() *BackoffController { return g.backoff }

// IsAmendLimit 判断错误是否为改单超限（治理类错误，先于网络产生，不重试）。
func IsAmendLimit(err error) bool {
	return errors.Is(err, ErrAmendLimitExceeded)
}
