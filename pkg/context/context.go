// Package context carries build tracing values through context.Context.
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

// Context keys for build tracing
const (
	buildIDKey ctxKey = iota
	phaseKey
	taskKey
	startTimeKey
)

// WithBuildID adds a build ID to the context
func WithBuildID(parent context.Context, buildID string) context.Context {
	if buildID == "" {
		buildID = GenerateBuildID()
	}
	return context.WithValue(parent, buildIDKey, buildID)
}

// GetBuildID retrieves the build ID from context, or "" when none is set
func GetBuildID(ctx context.Context) string {
	if id, ok := ctx.Value(buildIDKey).(string); ok {
		return id
	}
	return ""
}

// WithPhase records the phase being executed
func WithPhase(parent context.Context, phase string) context.Context {
	return context.WithValue(parent, phaseKey, phase)
}

// GetPhase retrieves the phase name from context
func GetPhase(ctx context.Context) string {
	if phase, ok := ctx.Value(phaseKey).(string); ok {
		return phase
	}
	return ""
}

// WithTask records the task being executed
func WithTask(parent context.Context, task string) context.Context {
	return context.WithValue(parent, taskKey, task)
}

// GetTask retrieves the task name from context
func GetTask(ctx context.Context) string {
	if task, ok := ctx.Value(taskKey).(string); ok {
		return task
	}
	return ""
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the operation start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

// GetDuration returns the time elapsed since the start time, or 0 when none is set
func GetDuration(ctx context.Context) time.Duration {
	start, ok := GetStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// GenerateBuildID creates a new unique build ID
func GenerateBuildID() string {
	return "build_" + uuid.New().String()
}

// EnrichContext adds a build ID when missing and stamps the start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetBuildID(ctx) == "" {
		ctx = WithBuildID(ctx, GenerateBuildID())
	}
	return WithStartTime(ctx, time.Now())
}

// TracingFields returns the tracing values present in ctx
func TracingFields(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{})
	if id := GetBuildID(ctx); id != "" {
		fields["build_id"] = id
	}
	if phase := GetPhase(ctx); phase != "" {
		fields["phase"] = phase
	}
	if task := GetTask(ctx); task != "" {
		fields["task"] = task
	}
	if d := GetDuration(ctx); d > 0 {
		fields["duration_ms"] = d.Milliseconds()
	}
	return fields
}
