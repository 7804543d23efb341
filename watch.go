package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chaos-io/pixian/internal/config"
	"github.com/chaos-io/pixian/pixian"
	"github.com/chaos-io/pixian/util"
)

// watcher 定时扫描目录，处理还没处理过的图片
type watcher struct {
	client *pixian.Client
	cfg    *config.Config
	logger *zap.SugaredLogger

	mu   sync.Mutex
	seen map[string]bool
}

func newWatcher(client *pixian.Client, cfg *config.Config, logger *zap.SugaredLogger) *watcher {
	return &watcher{
		client: client,
		cfg:    cfg,
		logger: logger,
		seen:   make(map[string]bool),
	}
}

func runWatch(ctx context.Context, client *pixian.Client, cfg *config.Config, logger *zap.SugaredLogger) error {
	w := newWatcher(client, cfg, logger)

	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		logger.Debug("[CRON] Running scan")
		processed, failed := w.scan(ctx)
		if processed > 0 || failed > 0 {
			logger.Infow("[CRON] Scan finished", "processed", processed, "failed", failed)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Watch stopped")
	return nil
}

// scan 同一时刻只跑一轮；网络错误的文件下次重试
func (w *watcher) scan(ctx context.Context) (processed, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		w.logger.Errorw("Read watch dir", "dir", w.cfg.WatchDir, "error", err)
		return 0, 0
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !util.IsImageFile(e.Name()) {
			continue
		}
		path := filepath.Join(w.cfg.WatchDir, e.Name())
		if !w.seen[path] {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return processed, failed
		}
		out, err := processOne(ctx, w.client, w.cfg, pixian.FromPath(path), "")
		if err != nil {
			w.logger.Errorw("Remove background failed", "file", path, "error", err)
			failed++
			var transportErr *pixian.TransportError
			if !errors.As(err, &transportErr) {
				w.seen[path] = true
			}
			continue
		}
		w.seen[path] = true
		processed++
		w.logger.Infow("Processed", "file", path, "output", out)
	}
	return processed, failed
}
