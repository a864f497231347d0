package order

import "sync"

// Book 记录订单和状态，支持查询。进程内存储，关系库持久化在外部适配层。
type Book struct {
	mu     sync.RWMutex
	orders map[string]Order
	byNo   map[string]string // ODNO -> ID，체결통보 매칭용
}

func NewBook() *Book {
	return &Book{
		orders: make(map[string]Order),
		byNo:   make(map[string]string),
	}
}

func (b *Book) Set(o Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.ID] = o
	if o.OrderNo != "" {
		b.byNo[o.OrderNo] = o.ID
	}
}

func (b *Book) Get(id string) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

// GetByOrderNo ODNO 로 조회（체결통보는 주문번호만 실어온다）。
func (b *Book) GetByOrderNo(orderNo string) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.byNo[orderNo]
	if !ok {
		return Order{}, false
	}
	o, ok := b.orders[id]
	return o, ok
}

// List 返回全部订单（拷贝）。
func (b *Book) List() []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		res = append(res, o)
	}
	return res
}

// ListByStatus 按状态过滤。
func (b *Book) ListByStatus(st Status) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res := make([]Order, 0)
	for _, o := range b.orders {
		if o.Status == st {
			res = append(res, o)
		}
	}
	return res
}
