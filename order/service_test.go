package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kis-gateway-go/gateway"
)

// scriptedTransport 按路径返回预设响应。
type scriptedTransport struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]*gateway.APIResponse
	errs      map[string]error
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		responses: make(map[string]*gateway.APIResponse),
		errs:      make(map[string]error),
	}
}

func (s *scriptedTransport) Post(ctx context.Context, path string, payload, headers map[string]string, timeout time.Duration) (*gateway.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, path)
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	if resp, ok := s.responses[path]; ok {
		return resp, nil
	}
	return &gateway.APIResponse{RtCd: "0"}, nil
}

func (s *scriptedTransport) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == path {
			n++
		}
	}
	return n
}

func newTestService(tr gateway.Transport) *Service {
	cfg := gateway.DefaultConfig()
	cfg.MinGlobalInterval = time.Millisecond
	cfg.MinSymbolInterval = time.Millisecond
	cfg.RetryDelay = time.Millisecond
	gw := gateway.New(tr, cfg, nil, nil)
	return NewService(ServiceConfig{
		AccountNo:   "12345678",
		ProductCode: "01",
		Paper:       true,
	}, gw)
}

func TestServiceCreateOrder(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd: "0",
		Msg1: "주문 전송 완료",
		Output: map[string]string{
			"KRX_FWDG_ORD_ORGNO": "06010",
			"ODNO":               "0000012345",
		},
	}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol:    "005930",
		Side:      SideBuy,
		PriceType: PriceLimit,
		Price:     70000,
		Quantity:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "060100000012345", o.ID)
	assert.Equal(t, "0000012345", o.OrderNo)
	assert.Equal(t, StatusSubmitted, o.Status)
	assert.Equal(t, int64(10), o.Remaining())

	stored, err := svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)
}

func TestServiceCancelOrder(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd:   "0",
		Output: map[string]string{"KRX_FWDG_ORD_ORGNO": "06010", "ODNO": "0000012345"},
	}
	tr.responses[PathOrderCancel] = &gateway.APIResponse{RtCd: "0", Msg1: "취소 완료"}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol: "005930", Side: SideBuy, PriceType: PriceLimit, Price: 70000, Quantity: 10,
	})
	require.NoError(t, err)

	canceled, err := svc.Cancel(context.Background(), o.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	// 취소 완료 주문은 다시 취소 불가。
	_, err = svc.Cancel(context.Background(), o.ID, 0)
	assert.Error(t, err)
}

func TestServiceCancelUnknownOrder(t *testing.T) {
	svc := newTestService(newScriptedTransport())
	_, err := svc.Cancel(context.Background(), "NOPE", 0)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestServiceModifyOrder(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd:   "0",
		Output: map[string]string{"KRX_FWDG_ORD_ORGNO": "06010", "ODNO": "0000012345"},
	}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol: "005930", Side: SideBuy, PriceType: PriceLimit, Price: 70000, Quantity: 10,
	})
	require.NoError(t, err)

	modified, err := svc.Modify(context.Background(), o.ID, 71000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(71000), modified.Price)
	assert.Equal(t, int64(10), modified.Quantity)

	_, err = svc.Modify(context.Background(), o.ID, 0, 0)
	assert.ErrorIs(t, err, ErrNothingToModify)
}

func TestServiceAmendLimitTerminal(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd:   "0",
		Output: map[string]string{"KRX_FWDG_ORD_ORGNO": "06010", "ODNO": "0000012345"},
	}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol: "005930", Side: SideBuy, PriceType: PriceLimit, Price: 70000, Quantity: 10,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.Modify(context.Background(), o.ID, int64(70000+i), 0)
		require.NoError(t, err, "amend %d", i+1)
	}
	before := tr.callCount(PathOrderModify)

	_, err = svc.Modify(context.Background(), o.ID, 80000, 0)
	assert.True(t, errors.Is(err, gateway.ErrAmendLimitExceeded), "got %v", err)
	// 한도 초과는 네트워크 호출 전에 거부된다。
	assert.Equal(t, before, tr.callCount(PathOrderModify))
}

func TestServiceSyncFills(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd:   "0",
		Output: map[string]string{"KRX_FWDG_ORD_ORGNO": "06010", "ODNO": "0000012345"},
	}
	tr.responses[PathDailyFills] = &gateway.APIResponse{
		RtCd: "0",
		Output1: []map[string]string{
			{"odno": "0000012345", "tot_ccld_qty": "4", "avg_prvs": "70100", "ord_qty": "10"},
		},
	}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol: "005930", Side: SideBuy, PriceType: PriceLimit, Price: 70000, Quantity: 10,
	})
	require.NoError(t, err)

	synced, err := svc.SyncFills(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, synced.Status)
	assert.Equal(t, int64(4), synced.FilledQty)
	assert.Equal(t, 70100.0, synced.FilledAvgPrice)
	assert.Equal(t, int64(6), synced.Remaining())

	// 전량 체결。
	tr.responses[PathDailyFills] = &gateway.APIResponse{
		RtCd: "0",
		Output1: []map[string]string{
			{"odno": "0000012345", "tot_ccld_qty": "10", "avg_prvs": "70150", "ord_qty": "10"},
		},
	}
	synced, err = svc.SyncFills(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, synced.Status)
	assert.False(t, synced.FilledTime.IsZero())
}

func TestServiceSyncFillsNoMatchKeepsState(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd:   "0",
		Output: map[string]string{"KRX_FWDG_ORD_ORGNO": "06010", "ODNO": "0000012345"},
	}
	tr.responses[PathDailyFills] = &gateway.APIResponse{RtCd: "0"}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol: "005930", Side: SideBuy, PriceType: PriceLimit, Price: 70000, Quantity: 10,
	})
	require.NoError(t, err)

	synced, err := svc.SyncFills(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, synced.Status)
}

func TestServiceAdoptThenCancel(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCancel] = &gateway.APIResponse{RtCd: "0", Msg1: "취소 완료"}
	svc := newTestService(tr)

	// 외부에서 접수된 주문을 등록 후 취소。
	adopted, err := svc.Adopt(Order{
		ID:       "060100000012345",
		Symbol:   "005930",
		Quantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, adopted.Status)
	assert.Equal(t, "0000012345", adopted.OrderNo)
	assert.Equal(t, "12345678", adopted.AccountNo)

	canceled, err := svc.Cancel(context.Background(), adopted.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	_, err = svc.Adopt(Order{})
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestServiceApplyExecNotice(t *testing.T) {
	tr := newScriptedTransport()
	tr.responses[PathOrderCash] = &gateway.APIResponse{
		RtCd:   "0",
		Output: map[string]string{"KRX_FWDG_ORD_ORGNO": "06010", "ODNO": "0000012345"},
	}
	svc := newTestService(tr)

	o, err := svc.Create(context.Background(), CreateRequest{
		Symbol: "005930", Side: SideBuy, PriceType: PriceLimit, Price: 70000, Quantity: 10,
	})
	require.NoError(t, err)

	svc.ApplyExecNotice(gateway.ExecNotice{OrderNo: "0000012345", Symbol: "005930", FilledQty: 4, FillPrice: 70100})
	got, _ := svc.Get(o.ID)
	assert.Equal(t, StatusPartial, got.Status)
	assert.Equal(t, int64(4), got.FilledQty)

	svc.ApplyExecNotice(gateway.ExecNotice{OrderNo: "0000012345", Symbol: "005930", FilledQty: 6, FillPrice: 70200})
	got, _ = svc.Get(o.ID)
	assert.Equal(t, StatusFilled, got.Status)
	assert.Equal(t, int64(0), got.Remaining())
}
