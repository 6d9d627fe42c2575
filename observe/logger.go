package observe

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging is best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
	// WithCall returns a logger scoped to one outbound call.
	WithCall(meta CallMeta) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a JSON logger, or a human-readable tint logger when
// format is "text".
func NewLogger(format, level string, w io.Writer) Logger {
	if format == "text" {
		return newTextLogger(ParseLogLevel(level), w)
	}
	return &jsonLogger{
		level:  ParseLogLevel(level),
		out:    &lockedWriter{w: w},
		fields: nil,
	}
}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }

func redact(f Field) Field {
	if slices.Contains(RedactedFields, f.Key) {
		return Field{Key: f.Key, Value: "[REDACTED]"}
	}
	return f
}

func callFields(meta CallMeta) []Field {
	fields := []Field{{Key: "dependency", Value: meta.Dependency}}
	if meta.Operation != "" {
		fields = append(fields, Field{Key: "operation", Value: meta.Operation})
	}
	return fields
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(line []byte) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, _ = lw.w.Write(line)
}

// jsonLogger writes one JSON object per line.
type jsonLogger struct {
	level  LogLevel
	out    *lockedWriter
	fields []Field
}

func (l *jsonLogger) With(fields ...Field) Logger {
	return &jsonLogger{
		level:  l.level,
		out:    l.out,
		fields: append(slices.Clip(l.fields), fields...),
	}
}

func (l *jsonLogger) WithCall(meta CallMeta) Logger {
	return l.With(callFields(meta)...)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *jsonLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.fields)+len(fields)+4)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if id := RequestIDFromContext(ctx); id != "" {
		entry["request_id"] = id
	}
	for _, f := range l.fields {
		f = redact(f)
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		f = redact(f)
		if err, ok := f.Value.(error); ok {
			entry[f.Key] = err.Error()
			continue
		}
		entry[f.Key] = f.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.out.write(append(data, '\n'))
}

// textLogger renders through slog with the tint handler.
type textLogger struct {
	l *slog.Logger
}

func newTextLogger(level LogLevel, w io.Writer) Logger {
	_, isFile := w.(*os.File)
	h := tint.NewHandler(w, &tint.Options{
		Level:      level.slogLevel(),
		TimeFormat: time.RFC3339,
		NoColor:    !isFile,
	})
	return &textLogger{l: slog.New(h)}
}

func (l *textLogger) With(fields ...Field) Logger {
	return &textLogger{l: l.l.With(attrs(fields)...)}
}

func (l *textLogger) WithCall(meta CallMeta) Logger {
	return l.With(callFields(meta)...)
}

func (l *textLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *textLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *textLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *textLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *textLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	args := attrs(fields)
	if id := RequestIDFromContext(ctx); id != "" {
		args = append(args, slog.String("request_id", id))
	}
	l.l.Log(ctx, level, msg, args...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		f = redact(f)
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (n nopLogger) With(...Field) Logger                  { return n }
func (n nopLogger) WithCall(CallMeta) Logger              { return n }
