package logger

import (
	"context"
	"sort"

	pcontext "github.com/poltergeist/phasebuild/pkg/context"
)

// WithContext returns a logger that adds the tracing fields of ctx (build_id,
// phase, task, duration_ms) to every entry. Fields are read on each call so
// duration_ms grows while a task runs.
func WithContext(ctx context.Context, log Logger) Logger {
	if ctx == nil {
		return log
	}
	return &tracingLogger{ctx: ctx, next: log}
}

// ContextFields returns the tracing fields carried by ctx, sorted by key
func ContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	tracing := pcontext.TracingFields(ctx)
	keys := make([]string, 0, len(tracing))
	for key := range tracing {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys)+1)
	for _, key := range keys {
		fields = append(fields, WithField(key, tracing[key]))
	}
	return fields
}

type tracingLogger struct {
	ctx  context.Context
	next Logger
}

func (t *tracingLogger) fields(extra []Field) []Field {
	return append(ContextFields(t.ctx), extra...)
}

func (t *tracingLogger) Info(message string, fields ...Field) {
	t.next.Info(message, t.fields(fields)...)
}

func (t *tracingLogger) Error(message string, fields ...Field) {
	t.next.Error(message, t.fields(fields)...)
}

func (t *tracingLogger) Warn(message string, fields ...Field) {
	t.next.Warn(message, t.fields(fields)...)
}

func (t *tracingLogger) Debug(message string, fields ...Field) {
	t.next.Debug(message, t.fields(fields)...)
}

func (t *tracingLogger) Success(message string, fields ...Field) {
	t.next.Success(message, t.fields(fields)...)
}

func (t *tracingLogger) WithTarget(target string) Logger {
	return &tracingLogger{ctx: t.ctx, next: t.next.WithTarget(target)}
}
