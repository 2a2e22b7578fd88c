// Package obs holds the process logger, per-request correlation and tracing.
//
// Every log line is one JSON object on stderr. Loggers returned by From carry
// the request_id, trace_id and user_id of the request in ctx.
package obs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

type correlationContextKey struct{}

// Correlation identifies the request a log line belongs to.
type Correlation struct {
	RequestID string
	TraceID   string
	UserID    string
}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
	level    = new(slog.LevelVar)
)

// Init installs the global JSON logger at slog.LevelInfo unless SetLevel
// ran first. Later calls are no-ops.
func Init() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return
	}
	logger = newLogger(os.Stderr)
	slog.SetDefault(logger)
}

// SetLevel changes the minimum level of every logger, including ones
// already handed out. Accepts debug, info, warn or error.
func SetLevel(name string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	level.Set(l)
	return nil
}

// SetOutputForTests redirects the global logger to w at debug level. The
// returned func restores the previous logger.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev, prevLevel := logger, level.Level()
	level.Set(slog.LevelDebug)
	logger = newLogger(w)
	slog.SetDefault(logger)
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		level.Set(prevLevel)
		if prev == nil {
			prev = newLogger(os.Stderr)
		}
		logger = prev
		slog.SetDefault(logger)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key != slog.TimeKey {
				return attr
			}
			if t, ok := attr.Value.Any().(time.Time); ok {
				return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
			}
			return attr
		},
	})
	return slog.New(handler)
}

func globalLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return globalLogger().With("pkg", pkg)
}

// From returns a logger with the correlation fields stored in ctx.
func From(ctx context.Context) *slog.Logger {
	l := globalLogger()
	if attrs := CorrelationFromContext(ctx).attrs(); len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

// WithCorrelation merges the non-empty fields of corr into ctx's correlation.
func WithCorrelation(ctx context.Context, corr Correlation) context.Context {
	merged := CorrelationFromContext(ctx)
	if corr.RequestID != "" {
		merged.RequestID = corr.RequestID
	}
	if corr.TraceID != "" {
		merged.TraceID = corr.TraceID
	}
	if corr.UserID = strings.TrimSpace(corr.UserID); corr.UserID != "" {
		merged.UserID = corr.UserID
	}
	return context.WithValue(ctx, correlationContextKey{}, merged)
}

// CorrelationFromContext returns the correlation stored in ctx, if any.
func CorrelationFromContext(ctx context.Context) Correlation {
	if ctx == nil {
		return Correlation{}
	}
	corr, _ := ctx.Value(correlationContextKey{}).(Correlation)
	return corr
}

func (c Correlation) attrs() []any {
	attrs := make([]any, 0, 6)
	if c.RequestID != "" {
		attrs = append(attrs, "request_id", c.RequestID)
	}
	if c.TraceID != "" {
		attrs = append(attrs, "trace_id", c.TraceID)
	}
	if c.UserID != "" {
		attrs = append(attrs, "user_id", c.UserID)
	}
	return attrs
}

func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "req-fallback"
	}
	return "req-" + hex.EncodeToString(buf)
}
