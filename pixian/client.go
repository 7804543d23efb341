package pixian

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	nhttp "github.com/chaos-io/pixian/util/http"
)

const DefaultEndpoint = "https://api.pixian.ai/api/v2/remove-background"

// Client Pixian.ai 去背景 API 客户端。构造后只读，可并发使用。
type Client struct {
	apiID     string
	apiSecret string
	endpoint  string
	cli       nhttp.IClient
	logger    *slog.Logger
}

type Option func(*Client)

// WithEndpoint 替换 API 地址，测试时指向假服务
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func WithHTTPClient(cli nhttp.IClient) Option {
	return func(c *Client) {
		c.cli = cli
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiID, apiSecret string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiID) == "" {
		return nil, &ConfigurationError{Field: "api_id", Reason: "is required"}
	}
	if strings.TrimSpace(apiSecret) == "" {
		return nil, &ConfigurationError{Field: "api_secret", Reason: "is required"}
	}

	c := &Client{
		apiID:     apiID,
		apiSecret: apiSecret,
		endpoint:  DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cli == nil {
		c.cli = nhttp.NewHTTPClient()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.endpoint == "" {
		return nil, &ConfigurationError{Field: "endpoint", Reason: "is required"}
	}
	return c, nil
}

// Endpoint 当前使用的 API 地址
func (c *Client) Endpoint() string { return c.endpoint }

// RemoveBackground 去除 src 的背景。opts 的 key 用下划线写法，发送前转换为点号，
// 值不做校验，由服务端判断。
func (c *Client) RemoveBackground(ctx context.Context, src Source, opts Options) (*Image, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return c.send(ctx, src, opts.Fields())
}

// RemoveBackgroundWithParams 先在本地校验 p，再发送
func (c *Client) RemoveBackgroundWithParams(ctx context.Context, src Source, p Params) (*Image, error) {
	fields, err := p.Fields()
	if err != nil {
		return nil, err
	}
	return c.send(ctx, src, fields)
}

func (c *Client) send(ctx context.Context, src Source, fields map[string]string) (*Image, error) {
	if src == nil {
		return nil, &ValidationError{Reason: "either image_path, image_base64, image_url must be provided"}
	}
	if err := src.validate(); err != nil {
		return nil, err
	}

	body, contentType, err := buildForm(src, fields)
	if err != nil {
		return nil, err
	}

	var data []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: c.endpoint,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": contentType},
		BasicAuth:  &nhttp.BasicAuth{Username: c.apiID, Password: c.apiSecret},
		Body:       body,
		Response:   &data,
	}

	c.logger.Debug("remove background", "source", src.String(), "fields", len(fields), "bytes", body.Len())

	err = c.cli.DoHTTPRequest(ctx, reqParam)
	if err != nil {
		var statusErr *nhttp.StatusError
		if errors.As(err, &statusErr) {
			return nil, &RemoteError{StatusCode: statusErr.StatusCode, Body: statusErr.Body}
		}
		return nil, &TransportError{Err: err}
	}

	c.logger.Debug("get the response", "status", reqParam.StatusCode, "bytes", len(data))

	return NewImage(data)
}

// buildForm 生成 multipart 表单；文件读取失败时直接返回，不会发请求
func buildForm(src Source, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := src.attach(writer); err != nil {
		return nil, "", err
	}

	for _, k := range sortedKeys(fields) {
		if err := writer.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
