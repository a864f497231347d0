package metrics

import (
	"time"
)

// Collector 实现 gateway.Observer，把网关事件写入 Prometheus 指标。
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) ObserveRequest(path string, dur time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	GatewayRequests.WithLabelValues(path, result).Inc()
	GatewayLatency.WithLabelValues(path).Observe(dur.Seconds())
}

func (c *Collector) ObserveBackoff(stage, cycles int) {
	BackoffStage.Set(float64(stage))
	BackoffCycles.Set(float64(cycles))
}

func (c *Collector) ObserveAmendRejected() {
	AmendRejects.Inc()
}

// BreachSink 告警 sink 包装：转发前按 metric 字段累计违约计数。
type BreachSink struct {
	Next interface {
		Warn(message string, fields map[string]interface{})
	}
}

func (s BreachSink) Warn(message string, fields map[string]interface{}) {
	kind := "unknown"
	if m, ok := fields["metric"].(string); ok && m != "" {
		kind = m
	}
	SLOBreaches.WithLabelValues(kind).Inc()
	if s.Next != nil {
		s.Next.Warn(message, fields)
	}
}
