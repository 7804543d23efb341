package pixian

import "fmt"

// ConfigurationError 客户端构造参数有误（如凭证为空）
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pixian: invalid configuration: %s %s", e.Field, e.Reason)
}

// ValidationError 调用参数有误，请求不会发出
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "pixian: " + e.Reason
	}
	return fmt.Sprintf("pixian: invalid value: %s. %s", e.Field, e.Reason)
}

// RemoteError API 返回非 2xx
type RemoteError struct {
	StatusCode int
	Body       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("pixian: remote error: status %d: %s", e.StatusCode, e.Message())
}

// Message 响应体文本
func (e *RemoteError) Message() string {
	return string(e.Body)
}

type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "pixian: transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "pixian: decode result image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }
