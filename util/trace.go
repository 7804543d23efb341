package util

import (
	"log/slog"
	"time"
)

// Trace 用法: defer util.Trace("remove background")()
func Trace(msg string) func() {
	start := time.Now()
	slog.Debug("enter", "op", msg)
	return func() {
		slog.Info("exit", "op", msg, "elapsed", time.Since(start))
	}
}
