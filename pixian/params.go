package pixian

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinMaxPixels     = 100
	DefaultMaxPixels = 25000000

	AlignTop    = "top"
	AlignMiddle = "middle"
	AlignBottom = "bottom"

	OutputAuto     = "auto"
	OutputPNG      = "png"
	OutputJPEG     = "jpeg"
	OutputDeltaPNG = "delta_png"
)

var (
	hexColorRe   = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	cssSizeRe    = regexp.MustCompile(`^(\d+\.\d+%|\d+px)(\s+(\d+\.\d+%|\d+px)){0,3}$`)
	targetSizeRe = regexp.MustCompile(`^\d+(\.\d+)?\s+\d+(\.\d+)?$`)
)

// Params API 已知参数的类型化写法，发送前在本地校验。
// 零值字段不发送，由服务端使用默认值；DefaultParams 显式填上这些默认值。
type Params struct {
	MaxPixels int
	// BackgroundColor #RRGGBB，空表示保留透明背景
	BackgroundColor   string
	CropToForeground  bool
	Margin            string
	TargetSize        string
	VerticalAlignment string
	OutputFormat      string
	JPEGQuality       int
	// Test 测试模式，结果带水印，不计费
	Test bool
	// Extra 其他透传参数，规则同 Options，覆盖同名字段
	Extra Options
}

func DefaultParams() Params {
	return Params{
		MaxPixels:         DefaultMaxPixels,
		Margin:            "0px",
		VerticalAlignment: AlignMiddle,
		OutputFormat:      OutputAuto,
		JPEGQuality:       75,
	}
}

func (p Params) Validate() error {
	if p.MaxPixels != 0 && (p.MaxPixels < MinMaxPixels || p.MaxPixels > DefaultMaxPixels) {
		return &ValidationError{
			Field:  "max_pixels",
			Reason: fmt.Sprintf("Valid range is: %d to %d", MinMaxPixels, DefaultMaxPixels),
		}
	}
	if p.BackgroundColor != "" && !hexColorRe.MatchString(p.BackgroundColor) {
		return &ValidationError{Field: "background_color", Reason: "Hex color code provided: " + p.BackgroundColor}
	}
	if p.Margin != "" && !cssSizeRe.MatchString(p.Margin) {
		return &ValidationError{Field: "result_margin", Reason: "CSS size provided: " + p.Margin}
	}
	if p.TargetSize != "" && !targetSizeRe.MatchString(p.TargetSize) {
		return &ValidationError{Field: "result_target_size", Reason: "Width height provided: " + p.TargetSize}
	}
	if p.VerticalAlignment != "" {
		if err := oneOf("result_vertical_alignment", p.VerticalAlignment, AlignTop, AlignMiddle, AlignBottom); err != nil {
			return err
		}
	}
	if p.OutputFormat != "" {
		if err := oneOf("output_format", p.OutputFormat, OutputAuto, OutputPNG, OutputJPEG, OutputDeltaPNG); err != nil {
			return err
		}
	}
	if p.JPEGQuality != 0 && (p.JPEGQuality < 1 || p.JPEGQuality > 100) {
		return &ValidationError{Field: "output_jpeg_quality", Reason: "Valid range is: 1 to 100"}
	}
	return p.Extra.validate()
}

// Fields 校验后转成 API 表单字段
func (p Params) Fields() (map[string]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"result.crop_to_foreground": strconv.FormatBool(p.CropToForeground),
	}
	set := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}
	if p.MaxPixels != 0 {
		set("max_pixels", strconv.Itoa(p.MaxPixels))
	}
	set("background.color", p.BackgroundColor)
	set("result.margin", p.Margin)
	set("result.target_size", p.TargetSize)
	set("result.vertical_alignment", p.VerticalAlignment)
	set("output.format", p.OutputFormat)
	if p.JPEGQuality != 0 {
		set("output.jpeg_quality", strconv.Itoa(p.JPEGQuality))
	}
	if p.Test {
		fields["test"] = "true"
	}
	for k, v := range p.Extra.Fields() {
		fields[k] = v
	}
	return fields, nil
}

func oneOf(field, value string, options ...string) error {
	for _, o := range options {
		if value == o {
			return nil
		}
	}
	return &ValidationError{Field: field, Reason: "Valid options are: " + strings.Join(options, ", ")}
}
