package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type HTTPClient struct {
	client *http.Client
}

type Option func(*options)

type options struct {
	client  *http.Client
	timeout time.Duration
}

// WithTimeout 设置整个请求的超时时间，0 表示不限制
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithClient 使用自定义的 *http.Client（代理、连接池等），不会修改传入的 client
func WithClient(cli *http.Client) Option {
	return func(o *options) {
		if cli != nil {
			o.client = cli
		}
	}
}

// NewHTTPClient 默认不设置超时，交给调用方的 ctx 或 WithTimeout
func NewHTTPClient(opts ...Option) IClient {
	o := &options{client: &http.Client{}}
	for _, opt := range opts {
		opt(o)
	}

	cli := o.client
	if o.timeout > 0 {
		copied := *cli
		copied.Timeout = o.timeout
		cli = &copied
	}
	return &HTTPClient{client: cli}
}

func (c *HTTPClient) DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error {
	if requestParam == nil {
		return errors.New("request param is nil")
	}

	if requestParam.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestParam.Timeout)
		defer cancel()
	}

	body, err := requestBody(requestParam.Body)
	if err != nil {
		return err
	}

	method := requestParam.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, requestParam.RequestURI, body)
	if err != nil {
		return err
	}
	for k, v := range requestParam.Header {
		req.Header.Set(k, v)
	}
	if requestParam.BasicAuth != nil {
		req.SetBasicAuth(requestParam.BasicAuth.Username, requestParam.BasicAuth.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	requestParam.StatusCode = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	// 状态码优先，读 body 出错时带上已读到的部分
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	slog.Debug("http response", "method", method, "uri", requestParam.RequestURI, "status", resp.StatusCode, "bytes", len(data))

	switch out := requestParam.Response.(type) {
	case nil:
		return nil
	case *[]byte:
		*out = data
		return nil
	default:
		if len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}
}

func requestBody(body interface{}) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
