package http

import (
	"context"
	"fmt"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

type BasicAuth struct {
	Username string
	Password string
}

type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	BasicAuth  *BasicAuth
	Body       interface{}
	// Response 为 *[]byte 时保存原始响应体，否则按 JSON 解析
	Response interface{}

	Timeout time.Duration

	// StatusCode 请求完成后回填
	StatusCode int
}

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.StatusCode, string(e.Body))
}
