package gateway

import (
	"errors"
	"testing"
)

func TestAmendLimiterAllowsUpToMax(t *testing.T) {
	a := NewAmendLimiter(5)
	for i := 1; i <= 5; i++ {
		if err := a.CheckAndIncrement("ORDER_001"); err != nil {
			t.Fatalf("attempt %d rejected: %v", i, err)
		}
		if got := a.Count("ORDER_001"); got != i {
			t.Fatalf("count = %d, want %d", got, i)
		}
	}
}

func TestAmendLimiterRejectsOverMax(t *testing.T) {
	a := NewAmendLimiter(5)
	for i := 0; i < 5; i++ {
		if err := a.CheckAndIncrement("ORDER_002"); err != nil {
			t.Fatalf("attempt %d rejected: %v", i+1, err)
		}
	}
	err := a.CheckAndIncrement("ORDER_002")
	if !errors.Is(err, ErrAmendLimitExceeded) {
		t.Fatalf("6th attempt: got %v, want ErrAmendLimitExceeded", err)
	}
	// 拒绝之后计数保持在上限。
	if got := a.Count("ORDER_002"); got != 5 {
		t.Fatalf("count after rejection = %d, want 5", got)
	}
}

func TestAmendLimiterIndependentOrders(t *testing.T) {
	a := NewAmendLimiter(5)
	_ = a.CheckAndIncrement("ORDER_A")
	_ = a.CheckAndIncrement("ORDER_A")
	_ = a.CheckAndIncrement("ORDER_B")

	if got := a.Count("ORDER_A"); got != 2 {
		t.Fatalf("ORDER_A count = %d, want 2", got)
	}
	if got := a.Count("ORDER_B"); got != 1 {
		t.Fatalf("ORDER_B count = %d, want 1", got)
	}
}
