// Package metrics provides Prometheus metrics for the order gateway
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GatewayRequests REST 请求数量（按路径、结果分类）
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_rest_requests_total",
		Help: "KIS REST 请求数量",
	}, []string{"path", "result"})

	// GatewayLatency REST 请求耗时
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_rest_latency_seconds",
		Help:    "KIS REST 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// BackoffStage 当前退避阶段
	BackoffStage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_backoff_stage",
		Help: "当前退避阶段(0=正常)",
	})

	// BackoffCycles 连续退避轮次
	BackoffCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_backoff_cycles",
		Help: "退避序列走完的轮次",
	})

	// AmendRejects 超过每单修改上限被拒绝的次数
	AmendRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_amend_rejects_total",
		Help: "超过每单修改上限被拒绝的次数",
	})

	// SLOBreaches SLO 告警次数（按指标分类）
	SLOBreaches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_slo_breaches_total",
		Help: "SLO 告警次数",
	}, []string{"metric"})

	// ExecNotices 成交通知帧数量
	ExecNotices = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_exec_notices_total",
		Help: "WS 체결통보 帧数量",
	})
)

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
