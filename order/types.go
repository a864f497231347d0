package order

import "time"

// Side 매수/매도。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PriceType 가격 유형。
type PriceType string

const (
	PriceMarket PriceType = "market"
	PriceLimit  PriceType = "limit"
)

// Status represents order lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusPartial   Status = "PARTIALLY_FILLED"
	StatusFilled    Status = "FILLED"
	StatusCanceled  Status = "CANCELED"
	StatusRejected  Status = "REJECTED"
)

// Order KIS 주문의 로컬 뷰。ID = KRX 접수지점번호(5자리) + 주문번호(ODNO)。
type Order struct {
	ID             string
	OrderNo        string
	AccountNo      string
	Symbol         string
	Side           Side
	PriceType      PriceType
	Price          int64
	Quantity       int64
	FilledQty      int64
	FilledAvgPrice float64
	Status         Status
	StatusMessage  string
	OrderTime      time.Time
	FilledTime     time.Time
}

// Remaining 미체결 수량。
func (o *Order) Remaining() int64 {
	r := o.Quantity - o.FilledQty
	if r < 0 {
		return 0
	}
	return r
}

// orgNo/odno 분리：ID 형식 "{ORG_NO 5}{ODNO}"。
func splitOrderID(id string) (orgNo, odno string) {
	if len(id) >= 10 {
		return id[:5], id[5:]
	}
	return "", id
}
