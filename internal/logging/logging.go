// Package logging provides structured logging for the ingestion pipeline.
//
// Two constructors are available:
//   - New: process-wide logger configured from LOG_LEVEL
//   - NewCapture: a logger that additionally tees every line into a bounded
//     in-memory buffer, used by the scheduler for per-execution log capture
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a LOG_LEVEL string to a zap level.
// Unknown values default to Info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL":
		return zapcore.DPanicLevel
	}
	return zapcore.InfoLevel
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

// New creates the process logger writing JSON to stderr.
func New(level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core)
}

// LineBuffer collects log lines up to a fixed capacity.
// Lines past the cap are counted but dropped.
type LineBuffer struct {
	mu      sync.Mutex
	lines   []string
	cap     int
	dropped int
}

// NewLineBuffer creates a buffer holding at most capacity lines.
func NewLineBuffer(capacity int) *LineBuffer {
	return &LineBuffer{cap: capacity}
}

// Write implements io.Writer. Each write is one encoded log line.
func (b *LineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) >= b.cap {
		b.dropped++
		return len(p), nil
	}
	b.lines = append(b.lines, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Lines returns a copy of the captured lines.
func (b *LineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Dropped returns the count of lines discarded after the cap was reached.
func (b *LineBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// NewCapture returns a child of parent that also writes every entry into the
// returned LineBuffer. The buffer caps at maxLines.
func NewCapture(parent *zap.Logger, maxLines int) (*zap.Logger, *LineBuffer) {
	buf := NewLineBuffer(maxLines)
	captureCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	logger := parent.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, captureCore)
	}))
	return logger, buf
}
