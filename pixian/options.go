package pixian

import (
	"sort"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindString valueKind = iota + 1
	kindNumber
	kindBool
)

// Value 标量参数：字符串、数字或布尔
type Value struct {
	kind valueKind
	s    string
	n    float64
	b    bool
}

func String(s string) Value { return Value{kind: kindString, s: s} }

func Int(n int) Value { return Value{kind: kindNumber, n: float64(n)} }

func Float(f float64) Value { return Value{kind: kindNumber, n: f} }

func Bool(b bool) Value { return Value{kind: kindBool, b: b} }

// ParseValue 命令行等场景下把文本猜成 bool / 数字 / 字符串
func ParseValue(s string) Value {
	if s == "true" || s == "false" {
		return Bool(s == "true")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}

// String 发送到表单里的文本
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Options 透传给 API 的参数，key 使用下划线写法，如 background_color
type Options map[string]Value

// FieldName 把 SDK 的 key 转成 API 字段名：background_color -> background.color。
// 已经带点的 key 视为 API 字段名原样发送。
func FieldName(key string) string {
	if strings.Contains(key, ".") {
		return key
	}
	return strings.ReplaceAll(key, "_", ".")
}

// Fields 翻译后的表单字段。background_color 和 background.color 同时出现时，
// 带点的 key 优先。
func (o Options) Fields() map[string]string {
	fields := make(map[string]string, len(o))
	for k, v := range o {
		if !strings.Contains(k, ".") {
			fields[FieldName(k)] = v.String()
		}
	}
	for k, v := range o {
		if strings.Contains(k, ".") {
			fields[k] = v.String()
		}
	}
	return fields
}

// validate 输入图片只能通过 Source 传，不能借 key 再塞一个
func (o Options) validate() error {
	for _, k := range sortedKeys(o) {
		switch FieldName(k) {
		case fieldImage, fieldImageBase64, fieldImageURL:
			return &ValidationError{Field: k, Reason: "image input must be passed as a Source, not as an option"}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
