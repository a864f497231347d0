package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"kis-gateway-go/internal/container"
	"kis-gateway-go/order"
)

// orderctl 주문 수동 제출·정정·취소 도구。운영 규칙상 KIS REST 를 직접 호출하지
// 않고, 데몬과 동일한 게이트웨이（限流·节流·退避·重试）를 통과한다。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	action := flag.String("action", "", "buy | sell | modify | cancel | status")
	symbol := flag.String("symbol", "", "종목코드（예: 005930）")
	qty := flag.Int64("qty", 0, "수량")
	price := flag.Int64("price", 0, "가격（0 = 시장가）")
	orderID := flag.String("orderId", "", "정정/취소/조회 대상 주문 ID")
	flag.Parse()

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("组装组件失败: %v", err)
	}
	defer c.Stop()
	svc := c.Orders

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 정정/취소/조회는 기존 주문을 북에 먼저 등록한다。
	switch *action {
	case "modify", "cancel", "status":
		if _, err := svc.Adopt(order.Order{
			ID:       *orderID,
			Symbol:   *symbol,
			Quantity: *qty,
			Price:    *price,
		}); err != nil {
			log.Fatalf("주문 등록 실패: %v", err)
		}
	}

	switch *action {
	case "buy", "sell":
		side := order.SideBuy
		if *action == "sell" {
			side = order.SideSell
		}
		priceType := order.PriceLimit
		if *price == 0 {
			priceType = order.PriceMarket
		}
		o, err := svc.Create(ctx, order.CreateRequest{
			Symbol:    *symbol,
			Side:      side,
			PriceType: priceType,
			Price:     *price,
			Quantity:  *qty,
		})
		if err != nil {
			log.Fatalf("주문 실패: %v", err)
		}
		fmt.Printf("주문 접수: id=%s odno=%s\n", o.ID, o.OrderNo)
	case "modify":
		o, err := svc.Modify(ctx, *orderID, *price, *qty)
		if err != nil {
			log.Fatalf("정정 실패: %v", err)
		}
		fmt.Printf("정정 접수: id=%s price=%d qty=%d\n", o.ID, o.Price, o.Quantity)
	case "cancel":
		o, err := svc.Cancel(ctx, *orderID, *qty)
		if err != nil {
			log.Fatalf("취소 실패: %v", err)
		}
		fmt.Printf("취소 접수: id=%s status=%s\n", o.ID, o.Status)
	case "status":
		o, err := svc.SyncFills(ctx, *orderID)
		if err != nil {
			log.Fatalf("조회 실패: %v", err)
		}
		fmt.Printf("id=%s status=%s filled=%d/%d avg=%.2f\n", o.ID, o.Status, o.FilledQty, o.Quantity, o.FilledAvgPrice)
	default:
		log.Fatalf("알 수 없는 action: %q", *action)
	}
}
