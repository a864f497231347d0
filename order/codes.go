package order

// KIS 국내주식 주문 API 경로。
const (
	PathOrderCash   = "/uapi/domestic-stock/v1/trading/order-cash"
	PathOrderModify = "/uapi/domestic-stock/v1/trading/order-rvsecncl"
	PathOrderCancel = "/uapi/domestic-stock/v1/trading/order-cancel"
	PathDailyFills  = "/uapi/domestic-stock/v1/trading/inquire-daily-ccld"
)

// 정정/취소 구분 코드。
const (
	rvseCdModify = "01"
	rvseCdCancel = "02"
)

// OrdDvsn 주문 구분 코드：00 지정가, 01 시장가。
func OrdDvsn(priceType PriceType) string {
	if priceType == PriceMarket {
		return "01"
	}
	return "00"
}

// orderTRID 현금주문 TR ID（실전/모의 × 매수/매도）。
func orderTRID(paper bool, side Side) string {
	switch {
	case !paper && side == SideBuy:
		return "TTTC0802U"
	case !paper && side == SideSell:
		return "TTTC0801U"
	case paper && side == SideBuy:
		return "VTTC0802U"
	default:
		return "VTTC0801U"
	}
}

// amendTRID 정정/취소 TR ID。
func amendTRID(paper bool) string {
	if paper {
		return "VTTC0803U"
	}
	return "TTTC0803U"
}

// fillsTRID 당일 체결 조회 TR ID。
func fillsTRID(paper bool) string {
	if paper {
		return "VTTC8001R"
	}
	return "TTTC8001R"
}
