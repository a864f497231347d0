package gateway

import (
	"errors"
	"sync"
	"time"
)

// BackoffConfig 连续失败退避配置。
type BackoffConfig struct {
	// TriggerErrors 连续失败达到该数后进入退避。
	TriggerErrors int
	// Sequence 各档退避时长，依次升级。
	Sequence []time.Duration
	// CyclesBeforeCooldown 序列耗尽后再失败多少个周期进入长冷却。
	CyclesBeforeCooldown int
	// Cooldown 长冷却时长。
	Cooldown time.Duration
}

// DefaultBackoffConfig 对应 KIS 接口的实盘默认值。
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		TriggerErrors:        3,
		Sequence:             []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
		CyclesBeforeCooldown: 3,
		Cooldown:             120 * time.Second,
	}
}

// BackoffController 在连续限流/服务端错误下逐档升级冷却时间，
// 独立于单次重试，保护已经劣化的对端。
// 它从不报错，只产出调用方必须遵守的延迟。
type BackoffController struct {
	cfg BackoffConfig

	mu                sync.Mutex
	consecutiveErrors int
	stage             int // 0 = 未退避，1..len(Sequence)
	cycles            int
}

func NewBackoffController(cfg BackoffConfig) *BackoffController {
	if cfg.TriggerErrors <= 0 {
		cfg.TriggerErrors = 3
	}
	if len(cfg.Sequence) == 0 {
		cfg.Sequence = DefaultBackoffConfig().Sequence
	}
	if cfg.CyclesBeforeCooldown <= 0 {
		cfg.CyclesBeforeCooldown = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 120 * time.Second
	}
	return &BackoffController{cfg: cfg}
}

// Observe 根据一次调用结果推进状态：成功立即全部清零，
// 限流/服务端错误计入连续失败，其余错误不影响退避。
func (b *BackoffController) Observe(err error) {
	if err == nil {
		b.Reset()
		return
	}
	if !qualifiesForBackoff(err) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveErrors++
	if b.consecutiveErrors < b.cfg.TriggerErrors {
		return
	}
	if b.stage < len(b.cfg.Sequence) {
		b.stage++
		return
	}
	// 序列耗尽仍在失败：停在最高档并累计周期数，供升级告警使用。
	b.cycles++
}

// NextDelay 返回下一次请求前应等待的冷却时间；无退避时为 0。
func (b *BackoffController) NextDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stage == 0 {
		return 0
	}
	if b.cycles >= b.cfg.CyclesBeforeCooldown {
		return b.cfg.Cooldown
	}
	return b.cfg.Sequence[b.stage-1]
}

// Reset 成功后无条件清零，没有渐进衰减。
func (b *BackoffController) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveErrors = 0
	b.stage = 0
	b.cycles = 0
}

// Snapshot 返回 (连续失败数, 档位, 周期数)，用于指标上报。
func (b *BackoffController) Snapshot() (int, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveErrors, b.stage, b.cycles
}

// qualifiesForBackoff 只有限流和服务端类错误（429/5xx）才计入退避。
func qualifiesForBackoff(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case ErrKindRateLimited, ErrKindServer:
		return true
	}
	return apiErr.Code == "429"
}
