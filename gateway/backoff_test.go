package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testBackoffConfig() BackoffConfig {
	return BackoffConfig{
		TriggerErrors:        3,
		Sequence:             []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
		CyclesBeforeCooldown: 3,
		Cooldown:             120 * time.Second,
	}
}

func TestBackoffNotTriggeredBelowThreshold(t *testing.T) {
	b := NewBackoffController(testBackoffConfig())
	serverErr := NewServerError("500", "boom")

	b.Observe(serverErr)
	b.Observe(serverErr)
	assert.Equal(t, time.Duration(0), b.NextDelay())

	errs, stage, cycles := b.Snapshot()
	assert.Equal(t, 2, errs)
	assert.Equal(t, 0, stage)
	assert.Equal(t, 0, cycles)
}

func TestBackoffStageEscalation(t *testing.T) {
	b := NewBackoffController(testBackoffConfig())
	serverErr := NewServerError("503", "unavailable")

	for i := 0; i < 3; i++ {
		b.Observe(serverErr)
	}
	assert.Equal(t, 5*time.Second, b.NextDelay())

	b.Observe(serverErr)
	assert.Equal(t, 10*time.Second, b.NextDelay())

	b.Observe(serverErr)
	assert.Equal(t, 20*time.Second, b.NextDelay())
}

func TestBackoffHoldsAtMaxAndCountsCycles(t *testing.T) {
	b := NewBackoffController(testBackoffConfig())
	rateErr := NewRateLimitError("429", "throttled")

	// 触发 + 升满三档。
	for i := 0; i < 5; i++ {
		b.Observe(rateErr)
	}
	assert.Equal(t, 20*time.Second, b.NextDelay())

	// 序列耗尽后继续失败：停在最高档、累计周期。
	b.Observe(rateErr)
	b.Observe(rateErr)
	_, stage, cycles := b.Snapshot()
	assert.Equal(t, 3, stage)
	assert.Equal(t, 2, cycles)
	assert.Equal(t, 20*time.Second, b.NextDelay())

	// 周期数达到阈值后进入长冷却。
	b.Observe(rateErr)
	assert.Equal(t, 120*time.Second, b.NextDelay())
}

func TestBackoffResetClearsEverything(t *testing.T) {
	b := NewBackoffController(testBackoffConfig())
	serverErr := NewServerError("500", "boom")
	for i := 0; i < 8; i++ {
		b.Observe(serverErr)
	}

	b.Reset()

	errs, stage, cycles := b.Snapshot()
	assert.Equal(t, 0, errs)
	assert.Equal(t, 0, stage)
	assert.Equal(t, 0, cycles)
	assert.Equal(t, time.Duration(0), b.NextDelay())
}

func TestBackoffSuccessResets(t *testing.T) {
	b := NewBackoffController(testBackoffConfig())
	serverErr := NewServerError("500", "boom")
	for i := 0; i < 4; i++ {
		b.Observe(serverErr)
	}
	assert.NotEqual(t, time.Duration(0), b.NextDelay())

	b.Observe(nil)
	assert.Equal(t, time.Duration(0), b.NextDelay())
}

func TestBackoffIgnoresClientErrors(t *testing.T) {
	b := NewBackoffController(testBackoffConfig())
	clientErr := NewClientError("400", "bad request")
	for i := 0; i < 10; i++ {
		b.Observe(clientErr)
	}
	errs, stage, _ := b.Snapshot()
	assert.Equal(t, 0, errs)
	assert.Equal(t, 0, stage)
}
