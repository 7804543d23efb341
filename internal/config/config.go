package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/chaos-io/pixian/pixian"
)

type Config struct {
	APIID     string        `env:"PIXIAN_API_ID"`
	APISecret string        `env:"PIXIAN_API_SECRET"`
	Endpoint  string        `env:"PIXIAN_ENDPOINT"`
	Timeout   time.Duration `env:"PIXIAN_TIMEOUT"` // 0 表示不限制
	Debug     bool          `env:"PIXIAN_DEBUG"`
	DryRun    bool          `env:"PIXIAN_DRY_RUN"` // 使用进程内的假 API
	Local     bool          `env:"PIXIAN_LOCAL"`   // 本地解码、缩小后再上传

	// 输入，三选一
	ImagePath   string
	ImageBase64 string
	ImageURL    string

	Output    string
	OutputDir string `env:"PIXIAN_OUTPUT_DIR"`

	// Watch 模式：按 Schedule 扫描目录
	WatchDir string `env:"PIXIAN_WATCH_DIR"`
	Schedule string `env:"PIXIAN_WATCH_SCHEDULE"`

	Params pixian.Params
}

// Defaults 默认值，会被 .env、环境变量和命令行参数覆盖
func Defaults() *Config {
	return &Config{
		Endpoint:  pixian.DefaultEndpoint,
		OutputDir: "output",
		Schedule:  "@every 30s",
		Params:    pixian.DefaultParams(),
	}
}

// Load 依次读取 .env、环境变量、命令行参数
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("pixian", flag.ContinueOnError)
	fs.StringVar(&cfg.APIID, "api-id", cfg.APIID, "Pixian API id (PIXIAN_API_ID)")
	fs.StringVar(&cfg.APISecret, "api-secret", cfg.APISecret, "Pixian API secret (PIXIAN_API_SECRET)")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "API endpoint")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout, 0 = none")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "send requests to an in-process fake API")
	fs.BoolVar(&cfg.Local, "local", cfg.Local, "decode the input locally, downscale to -max-pixels and upload as base64")

	fs.StringVar(&cfg.ImagePath, "image", cfg.ImagePath, "input image file")
	fs.StringVar(&cfg.ImageBase64, "base64", cfg.ImageBase64, "input image as base64")
	fs.StringVar(&cfg.ImageURL, "url", cfg.ImageURL, "input image url")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "output file, format from extension")
	fs.StringVar(&cfg.OutputDir, "out-dir", cfg.OutputDir, "output directory when -o is empty")
	fs.StringVar(&cfg.WatchDir, "watch", cfg.WatchDir, "watch a directory and process new images")
	fs.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "cron spec for -watch")

	p := &cfg.Params
	fs.IntVar(&p.MaxPixels, "max-pixels", p.MaxPixels, "max_pixels")
	fs.StringVar(&p.BackgroundColor, "bg", p.BackgroundColor, "background.color, #RRGGBB")
	fs.BoolVar(&p.CropToForeground, "crop", p.CropToForeground, "result.crop_to_foreground")
	fs.StringVar(&p.Margin, "margin", p.Margin, "result.margin")
	fs.StringVar(&p.TargetSize, "target-size", p.TargetSize, "result.target_size, \"W H\"")
	fs.StringVar(&p.VerticalAlignment, "align", p.VerticalAlignment, "result.vertical_alignment: top|middle|bottom")
	fs.StringVar(&p.OutputFormat, "format", p.OutputFormat, "output.format: auto|png|jpeg|delta_png")
	fs.IntVar(&p.JPEGQuality, "jpeg-quality", p.JPEGQuality, "output.jpeg_quality")
	fs.BoolVar(&p.Test, "test", p.Test, "test mode, watermarked and free")

	fs.Func("opt", "extra API parameter key=value, repeatable (background_color=#fff)", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return fmt.Errorf("option %q: want key=value", s)
		}
		if p.Extra == nil {
			p.Extra = pixian.Options{}
		}
		p.Extra[k] = pixian.ParseValue(v)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.DryRun && (c.APIID == "" || c.APISecret == "") {
		return errors.New("PIXIAN_API_ID and PIXIAN_API_SECRET are required")
	}
	if c.WatchDir == "" && c.ImagePath == "" && c.ImageBase64 == "" && c.ImageURL == "" {
		return errors.New("one of -image, -base64, -url or -watch is required")
	}
	return c.Params.Validate()
}
