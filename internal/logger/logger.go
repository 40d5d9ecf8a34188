// Package logger provides levelled logging for the compliance engine.
// Debug and Info messages are printed only in verbose mode (the --verbose
// flag or COMPLIANCE_VERBOSE=1); warnings and errors are always printed so
// that failed requirements and storage errors are never silent.
//
// Text output is one "[LEVEL] message" line per call. JSON output is a
// log/slog record per call, carrying trace_id and span_id when the
// context holds a span.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Format selects the line format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text or json)", s)
	}
}

var (
	mu         sync.Mutex
	verbose    bool
	timestamps bool
)

var (
	lineFormat Format       = FormatText
	output     io.Writer    = os.Stderr
	handler    slog.Handler = newJSONHandler(os.Stderr)
)

func newJSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// SetVerbose enables or disables Debug and Info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is on.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetTimestamps prefixes text lines with an RFC3339 timestamp. JSON
// records always carry a time.
func SetTimestamps(t bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = t
}

// SetFormat switches between text and JSON output.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	lineFormat = f
}

// SetOutput redirects all output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	handler = newJSONHandler(w)
}

// Debug logs in verbose mode.
func Debug(format string, args ...any) {
	logf(context.Background(), slog.LevelDebug, format, args...)
}

// Info logs in verbose mode.
func Info(format string, args ...any) {
	logf(context.Background(), slog.LevelInfo, format, args...)
}

// Warn always logs.
func Warn(format string, args ...any) {
	logf(context.Background(), slog.LevelWarn, format, args...)
}

// Error always logs.
func Error(format string, args ...any) {
	logf(context.Background(), slog.LevelError, format, args...)
}

// WarnContext is Warn with trace correlation from ctx.
func WarnContext(ctx context.Context, format string, args ...any) {
	logf(ctx, slog.LevelWarn, format, args...)
}

// ErrorContext is Error with trace correlation from ctx.
func ErrorContext(ctx context.Context, format string, args ...any) {
	logf(ctx, slog.LevelError, format, args...)
}

// Section marks the start of a unit of work in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	if lineFormat == FormatJSON {
		emit(context.Background(), slog.LevelInfo, "section", slog.String("section", name))
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}

func logf(ctx context.Context, level slog.Level, msg string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < slog.LevelWarn && !verbose {
		return
	}
	msg = fmt.Sprintf(msg, args...)

	if lineFormat == FormatJSON {
		emit(ctx, level, msg)
		return
	}
	prefix := "[" + level.String() + "] "
	if timestamps {
		prefix = time.Now().UTC().Format(time.RFC3339) + " " + prefix
	}
	fmt.Fprintln(output, prefix+msg)
}

// emit writes a JSON record. Callers hold mu.
func emit(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	rec := slog.NewRecord(time.Now(), level, msg, 0)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	rec.AddAttrs(attrs...)
	_ = handler.Handle(ctx, rec)
}
