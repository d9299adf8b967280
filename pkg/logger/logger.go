// Package logger provides the structured logger shared by every portal
// component. It is a thin layer over logrus that knows how to pull request
// scoped values (trace id, admin id) out of a context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey string

const (
	traceIDKey ctxKey = "trace_id"
	adminIDKey ctxKey = "admin_id"
)

// LoggingConfig selects level, format and destination.
type LoggingConfig struct {
	Level  string
	Format string // json | text
	Output string // stdout | stderr
}

// Logger wraps a logrus logger with portal helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New builds a logger from configuration. Unknown levels fall back to info.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	l.SetOutput(out)

	return &Logger{Logger: l}
}

// NewDefault returns an info-level JSON logger tagged with a component name.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "json"})
	l.component = component
	return l
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	l := New(LoggingConfig{Level: "panic"})
	l.SetOutput(io.Discard)
	return l
}

// Named returns a copy of the logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

func (l *Logger) base() *logrus.Entry {
	entry := logrus.NewEntry(l.Logger)
	if l.component != "" {
		entry = entry.WithField("component", l.component)
	}
	return entry
}

// WithField starts an entry with one field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.base().WithField(key, value)
}

// WithFields starts an entry with several fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.base().WithFields(logrus.Fields(fields))
}

// WithError starts an entry carrying err.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.base().WithError(err)
}

// WithContext starts an entry carrying request scoped values found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.base().WithContext(ctx)
	if id := GetTraceID(ctx); id != "" {
		entry = entry.WithField("trace_id", id)
	}
	if id := GetAdminID(ctx); id != "" {
		entry = entry.WithField("admin_id", id)
	}
	return entry
}

// LogRequest writes the access-log line for one HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("request failed")
	case status >= 400:
		entry.Warn("request rejected")
	default:
		entry.Info("request handled")
	}
}

// LogSecurityEvent records events such as failed logins and throttling.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(logrus.Fields(fields)).WithField("security_event", event).Warn("security event")
}

// NewTraceID returns a fresh request trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace id in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, if any.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithAdminID stores the authenticated admin id in ctx for log correlation.
func WithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminIDKey, adminID)
}

// GetAdminID returns the admin id stored in ctx, if any.
func GetAdminID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(adminIDKey).(string)
	return v
}
