// Package cmdlog wraps CLI commands with run/error counters and a log line.
package cmdlog

import (
	"time"

	"biaslens/internal/logging"
	"biaslens/internal/metrics"
)

func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"took_ms": time.Since(start).Milliseconds()})
	}
	return err
}
