package container

import (
	"context"
	"fmt"
	"os"
	"time"

	"kis-gateway-go/config"
	"kis-gateway-go/gateway"
	"kis-gateway-go/infrastructure/alert"
	"kis-gateway-go/infrastructure/logger"
	"kis-gateway-go/internal/store"
	"kis-gateway-go/metrics"
	"kis-gateway-go/monitor/logschema"
	"kis-gateway-go/order"
)

// Container 依赖注入容器，按 配置→基础设施→网关→订单服务 的顺序组装组件。
type Container struct {
	cfg config.AppConfig

	Logger *logger.Logger
	Alerts *alert.Manager

	Transport *gateway.KISRESTClient
	Gateway   *gateway.OrderGateway
	Orders    *order.Service
	Exposure  *store.Store

	lifecycle *LifecycleManager
}

// New 加载配置并创建容器；组件在 Build 时才实例化。
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return &Container{
		cfg:       cfg,
		lifecycle: NewLifecycleManager(),
	}, nil
}

// Config 只读配置。
func (c *Container) Config() config.AppConfig { return c.cfg }

// Build 构建所有组件。
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	c.buildGateway()
	c.buildOrderService()
	c.registerLifecycleComponents()
	return nil
}

func (c *Container) buildInfrastructure() error {
	zlog, err := logger.New(logger.Config{
		Level:  c.cfg.Log.Level,
		Format: c.cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.Logger = zlog

	c.Alerts = alert.NewManager([]alert.Channel{
		alert.NewZapChannel("log", zlog),
	}, 5*time.Minute)
	return nil
}

func (c *Container) buildGateway() {
	c.Transport = &gateway.KISRESTClient{
		BaseURL: c.cfg.KIS.BaseURL,
		Auth: EnvAuth{
			AppKey:    c.cfg.KIS.AppKey,
			AppSecret: c.cfg.KIS.AppSecret,
		},
		HTTPClient: gateway.NewDefaultHTTPClient(),
	}
	c.Gateway = gateway.New(c.Transport, BuildGatewayConfig(c.cfg),
		metrics.BreachSink{Next: c.Alerts}, metrics.NewCollector())
}

// LogEvent 구조화 이벤트 출력。스키마에 어긋나면 버리지 않고 표시만 한다。
func (c *Container) LogEvent(event string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err := logschema.Validate(event, fields); err != nil {
		fields["schemaError"] = err.Error()
	}
	c.Logger.LogOrder(event, "", fields)
}

func (c *Container) buildOrderService() {
	c.Exposure = store.New(c.LogEvent)
	c.Orders = order.NewService(order.ServiceConfig{
		AccountNo:   c.cfg.KIS.AccountNo,
		ProductCode: c.cfg.KIS.ProductCode,
		Paper:       c.cfg.KIS.PaperTrading,
	}, c.Gateway)
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register(NewMetricsServer(c.cfg.Metrics.Addr, c.Logger))
	}
}

// Start 启动后台组件（当前只有 metrics 服务器）。
func (c *Container) Start(ctx context.Context) error {
	return c.lifecycle.StartAll(ctx)
}

// Stop 逆序停止组件并关闭日志。
func (c *Container) Stop() error {
	err := c.lifecycle.StopAll()
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// EnvAuth 认证头提供者：appkey/appsecret 来自配置，
// 访问令牌从 KIS_ACCESS_TOKEN 环境变量读取。令牌签发协议不在本进程内。
type EnvAuth struct {
	AppKey    string
	AppSecret string
}

func (a EnvAuth) AuthHeaders(ctx context.Context) (map[string]string, error) {
	headers := map[string]string{
		"appkey":    a.AppKey,
		"appsecret": a.AppSecret,
	}
	if token := os.Getenv("KIS_ACCESS_TOKEN"); token != "" {
		headers["authorization"] = "Bearer " + token
	}
	return headers, nil
}

// BuildGatewayConfig 把 YAML 配置换算成网关治理参数。
func BuildGatewayConfig(cfg config.AppConfig) gateway.Config {
	g := cfg.Gateway
	seq := make([]time.Duration, 0, len(g.Backoff.SequenceSeconds))
	for _, s := range g.Backoff.SequenceSeconds {
		seq = append(seq, time.Duration(s)*time.Second)
	}
	return gateway.Config{
		RateLimit:         g.RateLimit,
		RateWindow:        time.Duration(g.RateWindowSeconds) * time.Second,
		MinGlobalInterval: time.Duration(g.OrderMinIntervalMs) * time.Millisecond,
		MinSymbolInterval: time.Duration(g.OrderSameSymbolIntervalMs) * time.Millisecond,
		MaxAmendsPerOrder: g.MaxAmendsPerOrder,
		OrderTimeout:      g.OrderTimeout(),
		RetryDelay:        g.RetryDelay(),
		Backoff: gateway.BackoffConfig{
			TriggerErrors:        g.Backoff.TriggerErrors,
			Sequence:             seq,
			CyclesBeforeCooldown: g.Backoff.CyclesBeforeCooldown,
			Cooldown:             time.Duration(g.Backoff.CooldownSeconds) * time.Second,
		},
		SLO: gateway.SLOConfig{
			Window:          time.Duration(cfg.SLO.WindowSeconds) * time.Second,
			MinEvents:       cfg.SLO.MinEvents,
			P95Target:       time.Duration(cfg.SLO.P95TargetSeconds * float64(time.Second)),
			ErrorRateTarget: cfg.SLO.ErrorRateTarget,
		},
	}
}
