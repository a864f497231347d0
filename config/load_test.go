package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const validConfig = `
env: dev
kis:
  baseURL: https://openapi.test
  appKey: foo
  appSecret: bar
  accountNo: "12345678"
  paperTrading: true
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" || cfg.KIS.AppKey != "foo" {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	// 명시하지 않은 항목은 기본값 유지。
	if cfg.Gateway.RateLimit != 10 || cfg.Gateway.OrderMinIntervalMs != 150 {
		t.Fatalf("defaults not applied: %+v", cfg.Gateway)
	}
	if cfg.SLO.WindowSeconds != 300 || cfg.SLO.MinEvents != 20 {
		t.Fatalf("slo defaults not applied: %+v", cfg.SLO)
	}
}

func TestLoadOverridesGovernance(t *testing.T) {
	path := writeTempConfig(t, validConfig+`
gateway:
  orderMinIntervalMs: 200
  orderSameSymbolIntervalMs: 500
  maxAmendsPerOrder: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.OrderMinIntervalMs != 200 || cfg.Gateway.MaxAmendsPerOrder != 3 {
		t.Fatalf("overrides not applied: %+v", cfg.Gateway)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
env: prod
kis:
  baseURL: https://openapi.test
  appKey: file_key
  appSecret: file_secret
  accountNo: "12345678"
`)
	t.Setenv("KIS_APP_KEY", "env_key")
	t.Setenv("KIS_APP_SECRET", "env_secret")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KIS.AppKey != "env_key" || cfg.KIS.AppSecret != "env_secret" {
		t.Fatalf("env overrides not applied: %+v", cfg.KIS)
	}
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	path := writeTempConfig(t, `
env: prod
kis:
  baseURL: https://openapi.test
  accountNo: "12345678"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for missing credentials")
	}
}

func TestValidateRejectsBadGovernance(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.KIS.AppKey = "k"
	cfg.KIS.AppSecret = "s"
	cfg.KIS.AccountNo = "1"
	if err := Validate(cfg); err != nil {
		t.Fatalf("baseline should validate: %v", err)
	}

	bad := cfg
	bad.Gateway.MaxAmendsPerOrder = 0
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for zero amend limit")
	}

	bad = cfg
	bad.SLO.ErrorRateTarget = 1.5
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for error-rate target out of range")
	}

	bad = cfg
	bad.Gateway.Backoff.SequenceSeconds = nil
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for empty backoff sequence")
	}
}
