package logger

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"
)

// moduleLogger is the Logger handed out by CentralLogger.Module.
type moduleLogger struct {
	central *CentralLogger
	module  string
	handler slog.Handler
	level   slog.Level
	fields  []Field
}

// Module returns a child logger named "<parent>.<name>". The child resolves
// its own level when it belongs to a CentralLogger.
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}

	child := *m
	if m.module != "" {
		child.module = m.module + "." + name
	} else {
		child.module = name
	}
	if m.central != nil {
		child.level = m.central.levelFor(child.module)
	}
	child.fields = slices.Clone(m.fields)
	return &child
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(LevelTrace, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(slog.LevelError, msg, fields) }

// Log logs at an explicit level.
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(parseLogLevel(string(level)), msg, fields)
}

// With returns a logger that adds fields to every record.
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	child := *m
	child.fields = slices.Concat(m.fields, fields)
	return &child
}

// WithContext returns a logger carrying the fields attached to ctx with
// ContextWith, e.g. the session generation of a pipeline run.
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return m
	}
	return m.With(fields...)
}

// Flush is a no-op; both handlers write through.
func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) log(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		attrs = append(attrs, f.attr())
	}
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}

	ctx := context.Background()
	if !m.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = m.handler.Handle(ctx, r)
}

// attr converts the field to a slog attribute. Floats keep three decimals,
// which is below the resolution of the generated microvolt signals.
func (f Field) attr() slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Microsecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}

type contextFieldsKey struct{}

// ContextWith returns a context carrying fields for WithContext. Fields
// already on ctx are kept.
func ContextWith(ctx context.Context, fields ...Field) context.Context {
	return context.WithValue(ctx, contextFieldsKey{}, slices.Concat(FieldsFromContext(ctx), fields))
}

// FieldsFromContext returns the fields attached by ContextWith.
func FieldsFromContext(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(contextFieldsKey{}).([]Field)
	return fields
}
