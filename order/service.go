package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"kis-gateway-go/gateway"
)

var (
	ErrUnknownOrder = errors.New("unknown order")
	// ErrNothingToModify 정정 요청에 가격도 수량도 없음。
	ErrNothingToModify = errors.New("at least one of price or quantity must be provided")
)

// CreateRequest 주문 생성 요청。
type CreateRequest struct {
	AccountNo string
	Symbol    string
	Side      Side
	PriceType PriceType
	Price     int64
	Quantity  int64
}

// ServiceConfig 계좌/상품 식별 정보。
type ServiceConfig struct {
	AccountNo   string
	ProductCode string // ACNT_PRDT_CD
	Paper       bool   // 모의투자 여부
}

// Service 주문 생성·정정·취소·체결 동기화。
// 거버넌스（限流·节流·改单限制·退避·重试）는 전부 gateway 가 담당한다。
type Service struct {
	cfg   ServiceConfig
	gw    *gateway.OrderGateway
	book  *Book
	sm    *StateMachine
	clock gateway.Clock
}

func NewService(cfg ServiceConfig, gw *gateway.OrderGateway) *Service {
	return &Service{
		cfg:   cfg,
		gw:    gw,
		book:  NewBook(),
		sm:    NewStateMachine(),
		clock: gateway.SystemClock,
	}
}

// Book 조회용。
func (s *Service) Book() *Book { return s.book }

// Create 현금주문（매수/매도）。
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	accountNo := req.AccountNo
	if accountNo == "" {
		accountNo = s.cfg.AccountNo
	}

	payload := map[string]string{
		"CANO":         accountNo,
		"ACNT_PRDT_CD": s.cfg.ProductCode,
		"PDNO":         req.Symbol,
		"ORD_DVSN":     OrdDvsn(req.PriceType),
		"ORD_QTY":      strconv.FormatInt(req.Quantity, 10),
		"ORD_UNPR":     strconv.FormatInt(req.Price, 10),
	}
	headers := map[string]string{"tr_id": orderTRID(s.cfg.Paper, req.Side)}

	resp, err := s.gw.OrderCall(ctx, req.Symbol, PathOrderCash, payload, headers)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	o := Order{
		ID:            resp.Output["KRX_FWDG_ORD_ORGNO"] + resp.Output["ODNO"],
		OrderNo:       resp.Output["ODNO"],
		AccountNo:     accountNo,
		Symbol:        req.Symbol,
		Side:          req.Side,
		PriceType:     req.PriceType,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Status:        StatusSubmitted,
		StatusMessage: resp.Msg1,
		OrderTime:     s.clock.Now(),
	}
	s.book.Set(o)
	return o, nil
}

// Cancel 주문 취소。체결/취소 완료 주문은 거부；수량 0 이면 잔량 전체。
func (s *Service) Cancel(ctx context.Context, orderID string, quantity int64) (Order, error) {
	o, ok := s.book.Get(orderID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if o.Status == StatusFilled || o.Status == StatusCanceled {
		return Order{}, fmt.Errorf("cannot cancel order with status %s", o.Status)
	}
	if quantity <= 0 {
		quantity = o.Remaining()
	}

	orgNo, odno := splitOrderID(o.ID)
	payload := map[string]string{
		"CANO":               o.AccountNo,
		"ACNT_PRDT_CD":       s.cfg.ProductCode,
		"KRX_FWDG_ORD_ORGNO": orgNo,
		"ORGN_ODNO":          odno,
		"ORD_DVSN":           OrdDvsn(o.PriceType),
		"RVSE_CNCL_DVSN_CD":  rvseCdCancel,
		"ORD_QTY":            strconv.FormatInt(quantity, 10),
		"ORD_UNPR":           "0", // 취소 시 가격은 0
	}
	headers := map[string]string{"tr_id": amendTRID(s.cfg.Paper)}

	resp, err := s.gw.AmendCall(ctx, o.ID, o.Symbol, PathOrderCancel, payload, headers)
	if err != nil {
		return Order{}, fmt.Errorf("cancel order: %w", err)
	}

	next, err := s.sm.Transition(o.Status, StatusCanceled)
	if err != nil {
		return Order{}, err
	}
	o.Status = next
	o.StatusMessage = resp.Msg1
	s.book.Set(o)
	return o, nil
}

// Modify 가격/수량 정정。SUBMITTED/PENDING 상태에서만 허용。
func (s *Service) Modify(ctx context.Context, orderID string, newPrice, newQuantity int64) (Order, error) {
	if newPrice <= 0 && newQuantity <= 0 {
		return Order{}, ErrNothingToModify
	}
	o, ok := s.book.Get(orderID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if o.Status != StatusSubmitted && o.Status != StatusPending {
		return Order{}, fmt.Errorf("cannot modify order with status %s", o.Status)
	}

	price := o.Price
	if newPrice > 0 {
		price = newPrice
	}
	quantity := o.Quantity
	if newQuantity > 0 {
		quantity = newQuantity
	}

	orgNo, odno := splitOrderID(o.ID)
	payload := map[string]string{
		"CANO":               o.AccountNo,
		"ACNT_PRDT_CD":       s.cfg.ProductCode,
		"KRX_FWDG_ORD_ORGNO": orgNo,
		"ORGN_ODNO":          odno,
		"ORD_DVSN":           OrdDvsn(o.PriceType),
		"RVSE_CNCL_DVSN_CD":  rvseCdModify,
		"ORD_QTY":            strconv.FormatInt(quantity, 10),
		"ORD_UNPR":           strconv.FormatInt(price, 10),
	}
	headers := map[string]string{"tr_id": amendTRID(s.cfg.Paper)}

	resp, err := s.gw.AmendCall(ctx, o.ID, o.Symbol, PathOrderModify, payload, headers)
	if err != nil {
		return Order{}, fmt.Errorf("modify order: %w", err)
	}

	o.Price = price
	o.Quantity = quantity
	o.StatusMessage = resp.Msg1
	s.book.Set(o)
	return o, nil
}

// SyncFills 당일 체결 조회로 주문 상태를 동기화한다。조회는 주문류가 아니므로
// 節流 없이 Call 로 나간다。
func (s *Service) SyncFills(ctx context.Context, orderID string) (Order, error) {
	o, ok := s.book.Get(orderID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	_, odno := splitOrderID(o.ID)

	now := s.clock.Now()
	payload := map[string]string{
		"CANO":            o.AccountNo,
		"ACNT_PRDT_CD":    s.cfg.ProductCode,
		"INQR_STRT_DT":    o.OrderTime.Format("20060102"),
		"INQR_END_DT":     now.Format("20060102"),
		"SLL_BUY_DVSN_CD": "00",
		"INQR_DVSN":       "00",
		"PDNO":            o.Symbol,
		"CCLD_DVSN":       "00",
		"ORD_GNO_BRNO":    "",
		"ODNO":            odno,
		"INQR_DVSN_3":     "00",
		"INQR_DVSN_1":     "",
		"CTX_AREA_FK100":  "",
		"CTX_AREA_NK100":  "",
	}
	headers := map[string]string{"tr_id": fillsTRID(s.cfg.Paper)}

	resp, err := s.gw.Call(ctx, PathDailyFills, payload, headers)
	if err != nil {
		return Order{}, fmt.Errorf("sync fills: %w", err)
	}

	var row map[string]string
	for _, item := range resp.Output1 {
		if item["odno"] == odno {
			row = item
			break
		}
	}
	if row == nil {
		// 체결 정보 없음：현재 상태 유지。
		return o, nil
	}

	filledQty, _ := strconv.ParseInt(row["tot_ccld_qty"], 10, 64)
	avgPrice, _ := strconv.ParseFloat(row["avg_prvs"], 64)
	orderQty := o.Quantity
	if v, err := strconv.ParseInt(row["ord_qty"], 10, 64); err == nil && v > 0 {
		orderQty = v
	}

	target := StatusSubmitted
	switch {
	case filledQty == 0:
		target = StatusSubmitted
	case filledQty < orderQty:
		target = StatusPartial
	default:
		target = StatusFilled
	}

	next, err := s.sm.Transition(o.Status, target)
	if err != nil {
		return Order{}, err
	}
	o.Status = next
	o.FilledQty = filledQty
	o.FilledAvgPrice = avgPrice
	if o.Status == StatusFilled && o.FilledTime.IsZero() {
		o.FilledTime = now
	}
	s.book.Set(o)
	return o, nil
}

// ApplyExecNotice 실시간 체결통보를 주문 장부에 반영한다。
func (s *Service) ApplyExecNotice(n gateway.ExecNotice) {
	o, ok := s.book.GetByOrderNo(n.OrderNo)
	if !ok {
		return
	}
	if n.FilledQty <= 0 {
		return
	}
	o.FilledQty += n.FilledQty
	if o.FilledQty >= o.Quantity {
		if next, err := s.sm.Transition(o.Status, StatusFilled); err == nil {
			o.Status = next
			if o.FilledTime.IsZero() {
				o.FilledTime = s.clock.Now()
			}
		}
	} else {
		if next, err := s.sm.Transition(o.Status, StatusPartial); err == nil {
			o.Status = next
		}
	}
	if n.FillPrice > 0 {
		o.FilledAvgPrice = n.FillPrice
	}
	s.book.Set(o)
}

// Adopt 프로세스 밖에서 접수된 주문을 로컬 북에 등록한다。
// 재기동 후 복구나 수동 도구에서 정정/취소/조회 전에 호출한다。
func (s *Service) Adopt(o Order) (Order, error) {
	if o.ID == "" {
		return Order{}, fmt.Errorf("%w: empty order id", ErrUnknownOrder)
	}
	if o.AccountNo == "" {
		o.AccountNo = s.cfg.AccountNo
	}
	if o.Status == "" {
		o.Status = StatusSubmitted
	}
	if o.OrderTime.IsZero() {
		o.OrderTime = s.clock.Now()
	}
	if o.OrderNo == "" {
		_, o.OrderNo = splitOrderID(o.ID)
	}
	s.book.Set(o)
	return o, nil
}

// Get 주문 조회。
func (s *Service) Get(orderID string) (Order, error) {
	o, ok := s.book.Get(orderID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	return o, nil
}
