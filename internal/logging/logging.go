// Package logging provides named, structured component loggers.
//
// Usage mirrors the rest of the acme-shop services:
//
//	logger := logging.NewLogger("order-service")
//	logger.Info("Order created", logging.Fields{"order_id": id})
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Fields carries structured key/value pairs for a log line.
type Fields map[string]interface{}

var (
	mu      sync.RWMutex
	handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
)

// Configure sets the process-wide output format ("json" or "text") and level.
func Configure(format, level string, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	mu.Lock()
	defer mu.Unlock()
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() slog.Handler {
	mu.RLock()
	defer mu.RUnlock()
	return handler
}

// Logger is a component-scoped structured logger.
type Logger struct {
	component string
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
	os.Exit(1)
}

func (l *Logger) log(level slog.Level, msg string, fields []Fields) {
	h := current()
	ctx := context.Background()
	if !h.Enabled(ctx, level) {
		return
	}

	logger := slog.New(h)
	if l != nil && l.component != "" {
		logger = logger.With("component", l.component)
	}
	logger.Log(ctx, level, msg, flatten(fields)...)
}

func flatten(fields []Fields) []any {
	var args []any
	for _, f := range fields {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, k, f[k])
		}
	}
	return args
}

// Infof logs a formatted line without a component.
func Infof(format string, args ...interface{}) {
	(&Logger{}).log(slog.LevelInfo, fmt.Sprintf(format, args...), nil)
}
