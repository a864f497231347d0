package gateway

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// AlertSink 接收 SLO 告警事件；由 infrastructure/alert 适配实现。
// 告警只是旁路信号，绝不阻塞也绝不失败调用方。
type AlertSink interface {
	Warn(message string, fields map[string]interface{})
}

// SLOConfig 滚动观测窗口与阈值。
type SLOConfig struct {
	Window          time.Duration
	MinEvents       int
	P95Target       time.Duration
	ErrorRateTarget float64
}

// DefaultSLOConfig KIS REST 的默认 SLO：5 分钟窗口、p95 2.5s、错误率 3%。
func DefaultSLOConfig() SLOConfig {
	return SLOConfig{
		Window:          300 * time.Second,
		MinEvents:       20,
		P95Target:       2500 * time.Millisecond,
		ErrorRateTarget: 0.03,
	}
}

type sloEvent struct {
	ts      time.Time
	dur     time.Duration
	success bool
}

// SLOMonitor 维护已完成请求的滚动窗口，超过阈值时向告警通道发出经营告警。
type SLOMonitor struct {
	cfg  SLOConfig
	sink AlertSink

	mu     sync.Mutex
	events []sloEvent

	clock Clock
}

func NewSLOMonitor(cfg SLOConfig, sink AlertSink) *SLOMonitor {
	if cfg.Window <= 0 {
		cfg.Window = 300 * time.Second
	}
	if cfg.MinEvents <= 0 {
		cfg.MinEvents = 20
	}
	if cfg.P95Target <= 0 {
		cfg.P95Target = 2500 * time.Millisecond
	}
	if cfg.ErrorRateTarget <= 0 {
		cfg.ErrorRateTarget = 0.03
	}
	return &SLOMonitor{
		cfg:    cfg,
		sink:   sink,
		events: make([]sloEvent, 0, 256),
		clock:  SystemClock,
	}
}

// Record 记录一次已完成的传输调用并评估 SLO。
// 样本数不足 MinEvents 时不评估；评估结果只作告警，不影响控制流。
func (m *SLOMonitor) Record(dur time.Duration, success bool) {
	m.mu.Lock()
	now := m.clock.Now()
	m.events = append(m.events, sloEvent{ts: now, dur: dur, success: success})
	m.trim(now.Add(-m.cfg.Window))

	if len(m.events) < m.cfg.MinEvents {
		m.mu.Unlock()
		return
	}

	durations := make([]float64, 0, len(m.events))
	failed := 0
	for _, e := range m.events {
		durations = append(durations, e.dur.Seconds())
		if !e.success {
			failed++
		}
	}
	total := len(m.events)
	m.mu.Unlock()

	// 锁外发告警，sink 可能（有节流地）落盘或推送。
	p95 := percentile(durations, 0.95)
	if target := m.cfg.P95Target.Seconds(); p95 > target {
		m.warn(
			fmt.Sprintf("KIS REST latency p95 = %.2fs > %gs", p95, target),
			map[string]interface{}{
				"metric":         "latency_p95",
				"p95_seconds":    p95,
				"target_seconds": target,
				"window_events":  total,
			},
		)
	}

	errorRate := float64(failed) / float64(total)
	if errorRate > m.cfg.ErrorRateTarget {
		m.warn(
			fmt.Sprintf("KIS REST error rate = %.2f%% exceeds %.2f%%",
				errorRate*100, m.cfg.ErrorRateTarget*100),
			map[string]interface{}{
				"metric":        "error_rate",
				"error_rate":    errorRate,
				"target":        m.cfg.ErrorRateTarget,
				"window_events": total,
			},
		)
	}
}

// EventCount 返回窗口内样本数。
func (m *SLOMonitor) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trim(m.clock.Now().Add(-m.cfg.Window))
	return len(m.events)
}

func (m *SLOMonitor) warn(msg string, fields map[string]interface{}) {
	if m.sink != nil {
		m.sink.Warn(msg, fields)
	}
}

// trim 调用方必须持有 m.mu。
func (m *SLOMonitor) trim(cutoff time.Time) {
	i := 0
	for ; i < len(m.events); i++ {
		if m.events[i].ts.After(cutoff) {
			break
		}
	}
	if i > 0 {
		m.events = m.events[i:]
	}
}

// percentile 线性插值分位数：idx = p*(N-1)，在相邻样本间按小数部分插值。
func percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0.0
	}
	if n == 1 {
		return values[0]
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := p * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if hi >= n {
		hi = n - 1
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
