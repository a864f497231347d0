// Package store 维护账户侧未体결 주문의 노출 집계。
package store

import (
	"sync"

	"kis-gateway-go/order"
)

// EventSink 구조화 이벤트 출력（주입형, nil 허용）。
type EventSink func(event string, fields map[string]interface{})

// Store 활성 주문의 미체결 수량을 종목/방향별로 집계한다。
// order.Book 이 개별 주문의 진실원이고, Store 는 그 위의 파생 뷰다。
type Store struct {
	mu     sync.RWMutex
	orders map[string]entry

	sink EventSink
}

type entry struct {
	symbol  string
	side    order.Side
	openQty int64
}

func New(sink EventSink) *Store {
	return &Store{
		orders: make(map[string]entry),
		sink:   sink,
	}
}

// Apply 주문 스냅샷을 반영한다。터미널 상태면 집계에서 제거된다。
func (s *Store) Apply(o order.Order) {
	openQty := openQuantity(o)

	s.mu.Lock()
	prev, existed := s.orders[o.ID]
	if openQty == 0 {
		delete(s.orders, o.ID)
	} else {
		s.orders[o.ID] = entry{symbol: o.Symbol, side: o.Side, openQty: openQty}
	}
	changed := !existed && openQty > 0 || existed && (prev.openQty != openQty || prev.side != o.Side)
	buy, sell := s.pendingLocked(o.Symbol)
	s.mu.Unlock()

	if changed {
		s.emit("order_update", map[string]interface{}{
			"symbol":      o.Symbol,
			"orderId":     o.ID,
			"status":      string(o.Status),
			"openQty":     openQty,
			"pendingBuy":  buy,
			"pendingSell": sell,
		})
	}
}

// Replace 전체 스냅샷으로 덮어쓴다（재기동/재동기화 경로）。
func (s *Store) Replace(orders []order.Order) {
	s.mu.Lock()
	s.orders = make(map[string]entry, len(orders))
	for _, o := range orders {
		openQty := openQuantity(o)
		if openQty == 0 {
			continue
		}
		s.orders[o.ID] = entry{symbol: o.Symbol, side: o.Side, openQty: openQty}
	}
	count := len(s.orders)
	s.mu.Unlock()

	s.emit("order_snapshot", map[string]interface{}{
		"orderCount": count,
	})
}

// PendingBuyQty 종목의 미체결 매수 수량 합。
func (s *Store) PendingBuyQty(symbol string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buy, _ := s.pendingLocked(symbol)
	return buy
}

// PendingSellQty 종목의 미체결 매도 수량 합。
func (s *Store) PendingSellQty(symbol string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, sell := s.pendingLocked(symbol)
	return sell
}

// OpenOrderIDs 미체결 수량이 남아 있는 주문 ID 목록。
func (s *Store) OpenOrderIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) pendingLocked(symbol string) (buy, sell int64) {
	for _, e := range s.orders {
		if e.symbol != symbol {
			continue
		}
		switch e.side {
		case order.SideBuy:
			buy += e.openQty
		case order.SideSell:
			sell += e.openQty
		}
	}
	return buy, sell
}

func openQuantity(o order.Order) int64 {
	switch o.Status {
	case order.StatusPending, order.StatusSubmitted, order.StatusPartial:
		return o.Remaining()
	default:
		return 0
	}
}

func (s *Store) emit(event string, fields map[string]interface{}) {
	if s.sink == nil {
		return
	}
	s.sink(event, fields)
}
