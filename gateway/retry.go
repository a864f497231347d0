package gateway

import (
	"context"
	"errors"
	"time"
)

// Operation 一次传输调用。RetryPolicy 不关心业务载荷，只看分类错误。
type Operation func(ctx context.Context) (*APIResponse, error)

// RetryPolicy 对订单类请求至多追加一次重试，限制重复下单风险。
// 可重试：超时、限流、5xx、429；其余错误原样立即上抛。
type RetryPolicy struct {
	delay time.Duration
}

func NewRetryPolicy(delay time.Duration) *RetryPolicy {
	if delay < 0 {
		delay = 0
	}
	return &RetryPolicy{delay: delay}
}

// Execute 执行 op；首次失败且可重试时等待固定延迟后再试一次，
// 第二次的结果即最终结果。
func (r *RetryPolicy) Execute(ctx context.Context, op Operation) (*APIResponse, error) {
	resp, err := op(ctx)
	if err == nil {
		return resp, nil
	}
	if !IsRetryable(err) {
		return nil, err
	}

	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return op(ctx)
}

// IsRetryable 重试判定只基于封闭的错误分类。
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
