package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	KIS     KISConfig     `yaml:"kis"`
	Gateway GatewayConfig `yaml:"gateway"`
	SLO     SLOConfig     `yaml:"slo"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// KISConfig KIS 접속/계좌 정보。
type KISConfig struct {
	BaseURL      string `yaml:"baseURL"`
	WSURL        string `yaml:"wsURL"`
	AppKey       string `yaml:"appKey"`
	AppSecret    string `yaml:"appSecret"`
	AccountNo    string `yaml:"accountNo"`
	ProductCode  string `yaml:"productCode"`
	PaperTrading bool   `yaml:"paperTrading"`
}

// GatewayConfig 주문 게이트웨이 거버넌스 파라미터。
type GatewayConfig struct {
	RateLimit                   int       `yaml:"rateLimit"`                   // 윈도우당 최대 호출 수
	RateWindowSeconds           int       `yaml:"rateWindowSeconds"`           // 限流 윈도우（초）
	OrderMinIntervalMs          int       `yaml:"orderMinIntervalMs"`          // 주문 간 전역 최소 간격
	OrderSameSymbolIntervalMs   int       `yaml:"orderSameSymbolIntervalMs"`   // 동일 종목 최소 간격
	MaxAmendsPerOrder           int       `yaml:"maxAmendsPerOrder"`           // 주문당 정정/취소 상한
	OrderResponseTimeoutSeconds float64   `yaml:"orderResponseTimeoutSeconds"` // 주문류 응답 타임아웃
	RetryDelaySeconds           float64   `yaml:"retryDelaySeconds"`           // 재시도 전 고정 대기
	Backoff                     Backoff   `yaml:"backoff"`
}

// Backoff 연속 실패 退避 설정。
type Backoff struct {
	TriggerErrors        int   `yaml:"triggerErrors"`
	SequenceSeconds      []int `yaml:"sequenceSeconds"`
	CyclesBeforeCooldown int   `yaml:"cyclesBeforeCooldown"`
	CooldownSeconds      int   `yaml:"cooldownSeconds"`
}

// SLOConfig 롤링 SLO 모니터 임계값。
type SLOConfig struct {
	WindowSeconds    int     `yaml:"windowSeconds"`
	MinEvents        int     `yaml:"minEvents"`
	P95TargetSeconds float64 `yaml:"p95TargetSeconds"`
	ErrorRateTarget  float64 `yaml:"errorRateTarget"`
}

// LogConfig 로그 설정（infrastructure/logger 로 전달）。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig Prometheus 노출 설정。
type MetricsConfig struct {
	Addr string `yaml:"addr"` // 빈 값이면 비활성
}

// DefaultAppConfig KIS 실전 기본값。
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Env: "dev",
		KIS: KISConfig{
			BaseURL:     "https://openapi.koreainvestment.com:9443",
			WSURL:       "ws://ops.koreainvestment.com:21000",
			ProductCode: "01",
		},
		Gateway: GatewayConfig{
			RateLimit:                   10,
			RateWindowSeconds:           1,
			OrderMinIntervalMs:          150,
			OrderSameSymbolIntervalMs:   300,
			MaxAmendsPerOrder:           5,
			OrderResponseTimeoutSeconds: 2.5,
			RetryDelaySeconds:           5,
			Backoff: Backoff{
				TriggerErrors:        3,
				SequenceSeconds:      []int{5, 10, 20},
				CyclesBeforeCooldown: 3,
				CooldownSeconds:      120,
			},
		},
		SLO: SLOConfig{
			WindowSeconds:    300,
			MinEvents:        20,
			P95TargetSeconds: 2.5,
			ErrorRateTarget:  0.03,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Addr: ":9100"},
	}
}

// Load reads YAML config from path and applies basic validation.
// 파일에 없는 항목은 기본값을 유지한다。
func Load(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("KIS_APP_KEY"); v != "" {
		cfg.KIS.AppKey = v
	}
	if v := os.Getenv("KIS_APP_SECRET"); v != "" {
		cfg.KIS.AppSecret = v
	}
	if v := os.Getenv("KIS_ACCOUNT_NO"); v != "" {
		cfg.KIS.AccountNo = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.KIS.BaseURL == "" {
		return errors.New("kis.baseURL is required")
	}
	if cfg.KIS.AppKey == "" || cfg.KIS.AppSecret == "" {
		return errors.New("kis.appKey/appSecret is required (or env overrides)")
	}
	if cfg.KIS.AccountNo == "" {
		return errors.New("kis.accountNo is required (or env override)")
	}
	if cfg.Gateway.RateLimit <= 0 {
		return errors.New("gateway.rateLimit must be > 0")
	}
	if cfg.Gateway.RateWindowSeconds <= 0 {
		return errors.New("gateway.rateWindowSeconds must be > 0")
	}
	if cfg.Gateway.OrderMinIntervalMs < 0 || cfg.Gateway.OrderSameSymbolIntervalMs < 0 {
		return errors.New("gateway order intervals must be >= 0")
	}
	if cfg.Gateway.MaxAmendsPerOrder <= 0 {
		return errors.New("gateway.maxAmendsPerOrder must be > 0")
	}
	if cfg.Gateway.OrderResponseTimeoutSeconds <= 0 {
		return errors.New("gateway.orderResponseTimeoutSeconds must be > 0")
	}
	if cfg.Gateway.RetryDelaySeconds < 0 {
		return errors.New("gateway.retryDelaySeconds must be >= 0")
	}
	if cfg.Gateway.Backoff.TriggerErrors <= 0 {
		return errors.New("gateway.backoff.triggerErrors must be > 0")
	}
	if len(cfg.Gateway.Backoff.SequenceSeconds) == 0 {
		return errors.New("gateway.backoff.sequenceSeconds is required")
	}
	for _, s := range cfg.Gateway.Backoff.SequenceSeconds {
		if s <= 0 {
			return errors.New("gateway.backoff.sequenceSeconds entries must be > 0")
		}
	}
	if cfg.SLO.WindowSeconds <= 0 || cfg.SLO.MinEvents <= 0 {
		return errors.New("slo.windowSeconds/minEvents must be > 0")
	}
	if cfg.SLO.P95TargetSeconds <= 0 {
		return errors.New("slo.p95TargetSeconds must be > 0")
	}
	if cfg.SLO.ErrorRateTarget <= 0 || cfg.SLO.ErrorRateTarget >= 1 {
		return errors.New("slo.errorRateTarget must be in (0, 1)")
	}
	return nil
}

// OrderTimeout 주문류 응답 타임아웃。
func (g GatewayConfig) OrderTimeout() time.Duration {
	return time.Duration(g.OrderResponseTimeoutSeconds * float64(time.Second))
}

// RetryDelay 재시도 대기。
func (g GatewayConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelaySeconds * float64(time.Second))
}
