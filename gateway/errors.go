package gateway

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrAmendLimitExceeded 주문당 정정/취소 한도 초과。네트워크 호출 전에 발생한다。
var ErrAmendLimitExceeded = errors.New("amend limit exceeded")

// ErrorKind 传输错误的封闭分类。
type ErrorKind int

const (
	ErrKindOther ErrorKind = iota
	ErrKindTimeout
	ErrKindRateLimited
	ErrKindServer
	ErrKindClient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindTimeout:
		return "TIMEOUT"
	case ErrKindRateLimited:
		return "RATE_LIMITED"
	case ErrKindServer:
		return "SERVER"
	case ErrKindClient:
		return "CLIENT"
	default:
		return "OTHER"
	}
}

// APIError KIS REST 调用的分类错误。Code 是 HTTP 状态码或 KIS msg_cd。
type APIError struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Retryable 超时/限流恒可重试；数字码 >= 500 或字面 "429" 可重试。
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case ErrKindTimeout, ErrKindRateLimited:
		return true
	}
	if e.Code == "429" {
		return true
	}
	if n, err := strconv.Atoi(e.Code); err == nil && n >= 500 {
		return true
	}
	return false
}

func NewTimeoutError(msg string) *APIError {
	return &APIError{Kind: ErrKindTimeout, Msg: msg}
}

func NewRateLimitError(code, msg string) *APIError {
	return &APIError{Kind: ErrKindRateLimited, Code: code, Msg: msg}
}

func NewServerError(code, msg string) *APIError {
	return &APIError{Kind: ErrKindServer, Code: code, Msg: msg}
}

func NewClientError(code, msg string) *APIError {
	return &APIError{Kind: ErrKindClient, Code: code, Msg: msg}
}
