package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chaos-io/pixian/internal/config"
	"github.com/chaos-io/pixian/pixian"
	"github.com/chaos-io/pixian/pixiantest"
	"github.com/chaos-io/pixian/util"
	nhttp "github.com/chaos-io/pixian/util/http"
)

const dryRunID, dryRunSecret = "dry-run", "dry-run"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, cleanup, err := newClient(cfg)
	if err != nil {
		sugar.Fatalw("Failed to create client", "error", err)
	}
	defer cleanup()

	if cfg.WatchDir != "" {
		sugar.Infow("Starting watch", "dir", cfg.WatchDir, "schedule", cfg.Schedule, "out", cfg.OutputDir)
		if err := runWatch(ctx, client, cfg, sugar); err != nil {
			sugar.Fatalw("Watch failed", "error", err)
		}
		return
	}

	src, err := pixian.NewSource(cfg.ImagePath, cfg.ImageBase64, cfg.ImageURL)
	if err != nil {
		sugar.Fatalw("Invalid input", "error", err)
	}

	out, err := processOne(ctx, client, cfg, src, cfg.Output)
	if err != nil {
		sugar.Fatalw("Remove background failed", "source", src.String(), "error", err)
	}
	sugar.Infow("Done", "source", src.String(), "output", out)
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if !debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return zc.Build()
}

// newClient -dry-run 时启动进程内假服务
func newClient(cfg *config.Config) (*pixian.Client, func(), error) {
	id, secret, endpoint := cfg.APIID, cfg.APISecret, cfg.Endpoint
	cleanup := func() {}

	if cfg.DryRun {
		server := pixiantest.NewServer(dryRunID, dryRunSecret)
		id, secret, endpoint = dryRunID, dryRunSecret, server.Endpoint()
		cleanup = server.Close
	}

	client, err := pixian.NewClient(id, secret,
		pixian.WithEndpoint(endpoint),
		pixian.WithHTTPClient(nhttp.NewHTTPClient(nhttp.WithTimeout(cfg.Timeout))),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return client, cleanup, nil
}

// processOne 去背景并保存，output 为空时在输出目录生成 <name>_<ksuid>.<ext>
func processOne(ctx context.Context, client *pixian.Client, cfg *config.Config, src pixian.Source, output string) (string, error) {
	defer util.Trace("remove background " + src.String())()

	if cfg.Local {
		return processLocal(ctx, client, cfg, src, output)
	}

	img, err := client.RemoveBackgroundWithParams(ctx, src, cfg.Params)
	if err != nil {
		return "", err
	}

	if output == "" {
		output = filepath.Join(cfg.OutputDir, outputName(src, img.Format()))
	}
	if err := img.Save(output); err != nil {
		return "", err
	}
	return output, nil
}

// processLocal 本地解码，超过 max_pixels 先缩小再上传；结果按输出扩展名重新编码
func processLocal(ctx context.Context, client *pixian.Client, cfg *config.Config, src pixian.Source, output string) (string, error) {
	img, err := loadImage(ctx, src)
	if err != nil {
		return "", err
	}

	result, err := pixian.NewRemover(client, cfg.Params).Remove(ctx, img)
	if err != nil {
		return "", err
	}

	if output == "" {
		output = filepath.Join(cfg.OutputDir, outputName(src, util.FormatPNG))
	}
	format, err := util.FormatFromPath(output)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := util.EncodeImage(&buf, result, format); err != nil {
		return "", err
	}
	if err := util.WriteFile(output, buf.Bytes()); err != nil {
		return "", err
	}
	return output, nil
}

func loadImage(ctx context.Context, src pixian.Source) (image.Image, error) {
	switch s := src.(type) {
	case pixian.PathSource:
		return util.OpenImage(s.Path)
	case pixian.URLSource:
		return util.DownloadImage(ctx, s.URL)
	case pixian.Base64Source:
		data, err := base64.StdEncoding.DecodeString(s.Data)
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
		img, _, err := util.DecodeImage(data)
		return img, err
	default:
		return nil, fmt.Errorf("unsupported source %s", src)
	}
}

func outputName(src pixian.Source, format string) string {
	base := "image"
	if p, ok := src.(pixian.PathSource); ok {
		base = util.TrimExt(filepath.Base(p.Path))
	}
	ext := "." + format
	if format == util.FormatJPEG {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s_%s%s", base, ksuid.New().String(), ext)
}
