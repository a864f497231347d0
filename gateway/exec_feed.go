package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// 체결통보（执行回报）实时流的 TR ID。
const execNoticeTRID = "H0STCNI0"

// ExecNotice 一条执行回报：订单号、标的与累计成交。
type ExecNotice struct {
	OrderNo   string
	Symbol    string
	FilledQty int64
	FillPrice float64
}

// ExecHandler 收到执行回报后的回调。
type ExecHandler func(ExecNotice)

// ExecFeed 订阅 KIS 执行回报的 WebSocket 客户端。
// 仅提供最小骨架：订阅 + 读取 + 解析；断线由调用方决定是否重连。
type ExecFeed struct {
	Endpoint    string // 例如 ws://ops.koreainvestment.com:21000
	ApprovalKey string
	HTSID       string
	Dialer      *websocket.Dialer
}

func NewExecFeed(endpoint, approvalKey, htsID string) *ExecFeed {
	return &ExecFeed{
		Endpoint:    endpoint,
		ApprovalKey: approvalKey,
		HTSID:       htsID,
		Dialer:      websocket.DefaultDialer,
	}
}

type wsSubscribeRequest struct {
	Header wsSubscribeHeader `json:"header"`
	Body   wsSubscribeBody   `json:"body"`
}

type wsSubscribeHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type wsSubscribeBody struct {
	Input wsSubscribeInput `json:"input"`
}

type wsSubscribeInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

// Run 建立连接、订阅执行回报并循环读取，ctx 取消或连接断开时返回。
func (f *ExecFeed) Run(ctx context.Context, handler ExecHandler) error {
	if f.ApprovalKey == "" {
		return fmt.Errorf("approval key required")
	}
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, f.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := wsSubscribeRequest{
		Header: wsSubscribeHeader{
			ApprovalKey: f.ApprovalKey,
			CustType:    "P",
			TrType:      "1",
			ContentType: "utf-8",
		},
		Body: wsSubscribeBody{Input: wsSubscribeInput{TrID: execNoticeTRID, TrKey: f.HTSID}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		notice, ok := parseExecNotice(message)
		if !ok {
			continue
		}
		if handler != nil {
			handler(notice)
		}
	}
}

// parseExecNotice 解析管道分隔的实时数据帧：
// "0|H0STCNI0|001|<caret 分隔字段>"。JSON 控制帧（PINGPONG 等）直接忽略。
func parseExecNotice(message []byte) (ExecNotice, bool) {
	if len(message) == 0 || message[0] == '{' {
		// 控制帧：订阅应答或 PINGPONG。
		return ExecNotice{}, false
	}
	parts := strings.Split(string(message), "|")
	if len(parts) < 4 || parts[1] != execNoticeTRID {
		return ExecNotice{}, false
	}
	fields := strings.Split(parts[3], "^")
	// 체결통보 字段序：2=계좌번호, 2번째 이후 주요 필드만 사용。
	if len(fields) < 12 {
		return ExecNotice{}, false
	}
	qty, _ := strconv.ParseInt(fields[9], 10, 64)
	price, _ := strconv.ParseFloat(fields[10], 64)
	return ExecNotice{
		OrderNo:   fields[2],
		Symbol:    fields[8],
		FilledQty: qty,
		FillPrice: price,
	}, true
}
