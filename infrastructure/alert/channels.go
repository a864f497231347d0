package alert

import (
	"fmt"

	"kis-gateway-go/infrastructure/logger"
)

// ZapChannel 把告警写入结构化日志。
type ZapChannel struct {
	log  *logger.Logger
	name string
}

// NewZapChannel 创建日志告警通道
func NewZapChannel(name string, log *logger.Logger) *ZapChannel {
	return &ZapChannel{log: log, name: name}
}

// Send 发送告警到日志
func (c *ZapChannel) Send(alert Alert) error {
	if c.log == nil {
		return fmt.Errorf("logger not set")
	}
	fields := make(map[string]interface{}, len(alert.Fields)+1)
	for k, v := range alert.Fields {
		fields[k] = v
	}
	fields["level"] = alert.Level
	c.log.LogSLO(alert.Message, fields)
	return nil
}

// Name 返回通道名称
func (c *ZapChannel) Name() string {
	return c.name
}

// MockChannel 模拟告警通道（用于测试）
type MockChannel struct {
	name      string
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{
		name:   name,
		alerts: make([]Alert, 0),
	}
}

// Send 记录告警（用于测试验证）
func (c *MockChannel) Send(alert Alert) error {
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

// Name 返回通道名称
func (c *MockChannel) Name() string {
	return c.name
}

// GetAlerts 获取所有接收到的告警
func (c *MockChannel) GetAlerts() []Alert {
	return c.alerts
}

// SetShouldError 设置是否返回错误
func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.shouldErr = shouldErr
}

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int {
	return len(c.alerts)
}
