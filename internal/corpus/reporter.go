package corpus

import (
	"log/slog"
	"sync/atomic"
)

// Reporter receives the items a scan skipped. Implementations must be safe
// for concurrent use.
type Reporter interface {
	SkipFile(path string, err error)
	SkipRecord(path string, line int, err error)
}

// SlogReporter logs skipped items. Unreadable files are warnings; malformed
// records are routine in live logs and go to debug.
type SlogReporter struct {
	Logger *slog.Logger
}

func (r SlogReporter) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r SlogReporter) SkipFile(path string, err error) {
	r.logger().Warn("skipping file", "path", path, "error", err)
}

func (r SlogReporter) SkipRecord(path string, line int, err error) {
	r.logger().Debug("skipping record", "path", path, "line", line, "error", err)
}

// CountingReporter counts skipped items.
type CountingReporter struct {
	Files   atomic.Int64
	Records atomic.Int64
}

func (r *CountingReporter) SkipFile(string, error)        { r.Files.Add(1) }
func (r *CountingReporter) SkipRecord(string, int, error) { r.Records.Add(1) }

// discard is used when no Reporter is configured.
type discard struct{}

func (discard) SkipFile(string, error)        {}
func (discard) SkipRecord(string, int, error) {}
