package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// KIS 限流拒绝时返回的网关错误码。
const kisThrottleCode = "EGW00201"

// APIResponse KIS REST 响应的公共骨架。KIS 的字段值一律是字符串。
type APIResponse struct {
	RtCd    string              `json:"rt_cd"`
	MsgCd   string              `json:"msg_cd"`
	Msg1    string              `json:"msg1"`
	Output  map[string]string   `json:"output"`
	Output1 []map[string]string `json:"output1"`
}

// OK rt_cd == "0" 表示业务成功。
func (r *APIResponse) OK() bool { return r.RtCd == "0" }

// AuthProvider 提供认证头（authorization/appkey/appsecret）。
// 令牌的获取与续期由外部适配器负责，本包不关心认证协议。
type AuthProvider interface {
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

// Transport 订单网关依赖的传输抽象，便于测试注入。
type Transport interface {
	Post(ctx context.Context, path string, payload map[string]string, headers map[string]string, timeout time.Duration) (*APIResponse, error)
}

// KISRESTClient 可注入 http.Client 的简化 KIS 客户端；默认不发起真实网络调用，
// HTTPClient 可换成 httptest 的客户端。
type KISRESTClient struct {
	BaseURL    string
	Auth       AuthProvider
	HTTPClient *http.Client
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// Post 发送 JSON POST 并把结果归入封闭错误分类：
// 网络超时 → TIMEOUT；429/EGW00201 → RATE_LIMITED；>=500 → SERVER；
// 其它非 2xx 或 rt_cd != "0" → CLIENT；连接类故障 → OTHER。
func (c *KISRESTClient) Post(ctx context.Context, path string, payload map[string]string, headers map[string]string, timeout time.Duration) (*APIResponse, error) {
	if c == nil || c.HTTPClient == nil {
		return nil, &APIError{Kind: ErrKindOther, Msg: "http client not set"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &APIError{Kind: ErrKindOther, Msg: fmt.Sprintf("encode payload: %v", err)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Kind: ErrKindOther, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.Auth != nil {
		auth, err := c.Auth.AuthHeaders(ctx)
		if err != nil {
			return nil, &APIError{Kind: ErrKindOther, Msg: fmt.Sprintf("auth headers: %v", err)}
		}
		for k, v := range auth {
			req.Header.Set(k, v)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewRateLimitError("429", "too many requests")
	case resp.StatusCode >= 500:
		return nil, NewServerError(strconv.Itoa(resp.StatusCode), "server error")
	case resp.StatusCode >= 400:
		return nil, NewClientError(strconv.Itoa(resp.StatusCode), "request rejected")
	}

	var parsed APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &APIError{Kind: ErrKindOther, Msg: fmt.Sprintf("decode response: %v", err)}
	}
	if !parsed.OK() {
		if parsed.MsgCd == kisThrottleCode {
			return nil, NewRateLimitError(parsed.MsgCd, parsed.Msg1)
		}
		return nil, NewClientError(parsed.MsgCd, parsed.Msg1)
	}
	return &parsed, nil
}

func classifyTransportError(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err.Error())
	}
	return &APIError{Kind: ErrKindOther, Msg: err.Error()}
}
