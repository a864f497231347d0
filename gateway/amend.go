package gateway

import (
	"fmt"
	"sync"
)

// AmendLimiter 限制单个订单号的정정/취소（修改/撤单）尝试次数，防止对同一订单反复改单。
// 计数只增不减，进程重启才会清零。
type AmendLimiter struct {
	max int

	mu     sync.Mutex
	counts map[string]int
}

func NewAmendLimiter(max int) *AmendLimiter {
	if max <= 0 {
		max = 5
	}
	return &AmendLimiter{
		max:    max,
		counts: make(map[string]int),
	}
}

// CheckAndIncrement 登记一次尝试；超出上限返回 ErrAmendLimitExceeded，
// 此时不得再发起网络请求。不同订单号独立计数。
func (a *AmendLimiter) CheckAndIncrement(orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := a.counts[orderID] + 1
	if count > a.max {
		return fmt.Errorf("%w: %s", ErrAmendLimitExceeded, orderID)
	}
	a.counts[orderID] = count
	return nil
}

// Count 返回某订单号已登记的尝试次数。
func (a *AmendLimiter) Count(orderID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[orderID]
}

// SetMax 热更新上限（配置热加载用）。
func (a *AmendLimiter) SetMax(max int) {
	if max <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.max = max
}
