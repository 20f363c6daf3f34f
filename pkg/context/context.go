// Package context carries invocation tracing values through a build
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context keys. Unexported struct pointers prevent key collisions.
var (
	invocationIDKey = &struct{}{}
	operationKey    = &struct{}{}
	appKey          = &struct{}{}
	startTimeKey    = &struct{}{}
)

// WithInvocationID adds an invocation ID to the context
func WithInvocationID(parent context.Context, id string) context.Context {
	if id == "" {
		id = GenerateInvocationID()
	}
	return context.WithValue(parent, invocationIDKey, id)
}

// GetInvocationID retrieves the invocation ID from context
func GetInvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationIDKey).(string); ok && id != "" {
		return id
	}
	return ""
}

// WithOperation adds an operation name (build, clean, run) to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok {
		return op
	}
	return ""
}

// WithApp records the app currently being processed
func WithApp(parent context.Context, app string) context.Context {
	return context.WithValue(parent, appKey, app)
}

// GetApp retrieves the app name from context
func GetApp(ctx context.Context) string {
	if app, ok := ctx.Value(appKey).(string); ok {
		return app
	}
	return ""
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetDuration returns the time elapsed since the start time in context,
// or zero when none was recorded
func GetDuration(ctx context.Context) time.Duration {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return time.Since(t)
	}
	return 0
}

// GenerateInvocationID creates a new unique invocation ID
func GenerateInvocationID() string {
	return "inv_" + uuid.New().String()
}

// EnrichContext adds an invocation ID (if missing) and a start time
func EnrichContext(parent context.Context, operation string) context.Context {
	ctx := parent
	if GetInvocationID(ctx) == "" {
		ctx = WithInvocationID(ctx, "")
	}
	ctx = WithOperation(ctx, operation)
	return WithStartTime(ctx, time.Now())
}
