package store

import (
	"sync"
	"testing"

	"kis-gateway-go/order"
)

func openOrder(id, symbol string, side order.Side, qty, filled int64) order.Order {
	st := order.StatusSubmitted
	if filled > 0 {
		st = order.StatusPartial
	}
	return order.Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		FilledQty: filled,
		Status:    st,
	}
}

func TestApplyAggregatesBySide(t *testing.T) {
	s := New(nil)
	s.Apply(openOrder("A", "005930", order.SideBuy, 10, 0))
	s.Apply(openOrder("B", "005930", order.SideBuy, 5, 2))
	s.Apply(openOrder("C", "005930", order.SideSell, 7, 0))
	s.Apply(openOrder("D", "000660", order.SideBuy, 100, 0))

	if got := s.PendingBuyQty("005930"); got != 13 {
		t.Errorf("pending buy = %d, want 13", got)
	}
	if got := s.PendingSellQty("005930"); got != 7 {
		t.Errorf("pending sell = %d, want 7", got)
	}
	if got := s.PendingBuyQty("000660"); got != 100 {
		t.Errorf("pending buy other symbol = %d, want 100", got)
	}
}

func TestTerminalStatusRemovesOrder(t *testing.T) {
	s := New(nil)
	s.Apply(openOrder("A", "005930", order.SideBuy, 10, 0))

	filled := openOrder("A", "005930", order.SideBuy, 10, 10)
	filled.Status = order.StatusFilled
	s.Apply(filled)

	if got := s.PendingBuyQty("005930"); got != 0 {
		t.Errorf("pending buy = %d, want 0 after fill", got)
	}
	if ids := s.OpenOrderIDs(); len(ids) != 0 {
		t.Errorf("open ids = %v, want empty", ids)
	}
}

func TestApplyEmitsOnChangeOnly(t *testing.T) {
	var events []string
	s := New(func(event string, fields map[string]interface{}) {
		events = append(events, event)
	})

	o := openOrder("A", "005930", order.SideBuy, 10, 0)
	s.Apply(o)
	s.Apply(o) // 수량 변화 없음
	s.Apply(openOrder("A", "005930", order.SideBuy, 10, 4))

	if len(events) != 2 {
		t.Fatalf("events = %v, want 2 order_update", events)
	}
}

func TestReplaceOverwritesSnapshot(t *testing.T) {
	s := New(nil)
	s.Apply(openOrder("A", "005930", order.SideBuy, 10, 0))
	s.Apply(openOrder("B", "005930", order.SideSell, 5, 0))

	canceled := openOrder("B", "005930", order.SideSell, 5, 0)
	canceled.Status = order.StatusCanceled
	s.Replace([]order.Order{
		openOrder("C", "000660", order.SideSell, 3, 0),
		canceled,
	})

	if got := s.PendingBuyQty("005930"); got != 0 {
		t.Errorf("old orders must be dropped, pending buy = %d", got)
	}
	if got := s.PendingSellQty("000660"); got != 3 {
		t.Errorf("pending sell = %d, want 3", got)
	}
	if ids := s.OpenOrderIDs(); len(ids) != 1 || ids[0] != "C" {
		t.Errorf("open ids = %v, want [C]", ids)
	}
}

func TestConcurrentApply(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Apply(openOrder(string(rune('A'+n)), "005930", order.SideBuy, 10, int64(j%10)))
				s.PendingBuyQty("005930")
			}
		}(i)
	}
	wg.Wait()

	// 각 goroutine 의 마지막 쓰기: filled = 99%10 = 9 → open 1 씩。
	if got := s.PendingBuyQty("005930"); got != 8 {
		t.Errorf("pending buy = %d, want 8", got)
	}
}
