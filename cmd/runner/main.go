package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kis-gateway-go/config"
	"kis-gateway-go/gateway"
	"kis-gateway-go/internal/container"
	"kis-gateway-go/metrics"

	"github.com/coreos/go-systemd/v22/daemon"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	syncInterval := flag.Duration("syncInterval", 10*time.Second, "체결 동기화 주기")
	flag.Parse()

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("组装组件失败: %v", err)
	}
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动组件失败: %v", err)
	}

	// 체결통보 WS。approval key 가 없으면 폴링만으로 동작한다。
	if approvalKey := os.Getenv("KIS_APPROVAL_KEY"); approvalKey != "" {
		feed := gateway.NewExecFeed(c.Config().KIS.WSURL, approvalKey, os.Getenv("KIS_HTS_ID"))
		go runExecFeed(ctx, c, feed)
	}

	// 未完成 주문의 체결 폴링。WS 가 놓친 체결을 보충한다。
	go syncLoop(ctx, c, *syncInterval)

	// 配置热加载：只下发治理参数，认证信息与账户不热更。
	watcher := config.Watcher{Path: *cfgPath}
	go func() {
		err := watcher.Start(ctx, func(next config.AppConfig) {
			c.Gateway.Pacing().SetIntervals(
				time.Duration(next.Gateway.OrderMinIntervalMs)*time.Millisecond,
				time.Duration(next.Gateway.OrderSameSymbolIntervalMs)*time.Millisecond,
			)
			c.Gateway.Amends().SetMax(next.Gateway.MaxAmendsPerOrder)
			c.LogEvent("config_reload", map[string]interface{}{
				"orderMinIntervalMs":        next.Gateway.OrderMinIntervalMs,
				"orderSameSymbolIntervalMs": next.Gateway.OrderSameSymbolIntervalMs,
				"maxAmendsPerOrder":         next.Gateway.MaxAmendsPerOrder,
			})
		})
		if err != nil && ctx.Err() == nil {
			c.Logger.LogError(err, map[string]interface{}{"path": *cfgPath})
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	c.LogEvent("runner_exit", nil)
}

// runExecFeed WS 断开后固定间隔重连。
func runExecFeed(ctx context.Context, c *container.Container, feed *gateway.ExecFeed) {
	for {
		err := feed.Run(ctx, func(n gateway.ExecNotice) {
			metrics.ExecNotices.Inc()
			c.Orders.ApplyExecNotice(n)
			if o, ok := c.Orders.Book().GetByOrderNo(n.OrderNo); ok {
				c.Exposure.Apply(o)
			}
			c.LogEvent("exec_notice", map[string]interface{}{
				"orderNo":   n.OrderNo,
				"symbol":    n.Symbol,
				"filledQty": n.FilledQty,
				"fillPrice": n.FillPrice,
			})
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.Logger.LogError(err, map[string]interface{}{"component": "exec_feed"})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func syncLoop(ctx context.Context, c *container.Container, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range c.Exposure.OpenOrderIDs() {
				o, err := c.Orders.SyncFills(ctx, id)
				if err != nil {
					if ctx.Err() == nil {
						c.Logger.LogError(err, map[string]interface{}{"orderId": id})
					}
					continue
				}
				c.Exposure.Apply(o)
			}
		}
	}
}

// watchdogLoop systemd watchdog 가 설정된 경우에만 동작한다。
func watchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
