package logger

import (
	"context"

	lcontext "github.com/lf-lang/lingo/pkg/context"
)

// LoggerContext extends Logger with context-aware methods
type LoggerContext interface {
	Logger
	InfoContext(ctx context.Context, message string, fields ...Field)
	ErrorContext(ctx context.Context, message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
	SuccessContext(ctx context.Context, message string, fields ...Field)
}

var _ LoggerContext = (*AppLogger)(nil)

// InfoContext logs an info message with invocation fields
func (l *AppLogger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, append(extractContextFields(ctx), fields...)...)
}

// ErrorContext logs an error message with invocation fields
func (l *AppLogger) ErrorContext(ctx context.Context, message string, fields ...Field) {
	l.Error(message, append(extractContextFields(ctx), fields...)...)
}

// WarnContext logs a warning message with invocation fields
func (l *AppLogger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, append(extractContextFields(ctx), fields...)...)
}

// DebugContext logs a debug message with invocation fields
func (l *AppLogger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, append(extractContextFields(ctx), fields...)...)
}

// SuccessContext logs a success message with invocation fields
func (l *AppLogger) SuccessContext(ctx context.Context, message string, fields ...Field) {
	l.Success(message, append(extractContextFields(ctx), fields...)...)
}

func extractContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	var fields []Field
	if id := lcontext.GetInvocationID(ctx); id != "" {
		fields = append(fields, WithField("invocation", id))
	}
	if op := lcontext.GetOperation(ctx); op != "" {
		fields = append(fields, WithField("operation", op))
	}
	if d := lcontext.GetDuration(ctx); d > 0 {
		fields = append(fields, WithField("duration_ms", d.Milliseconds()))
	}
	return fields
}

// WithContext creates a logger that automatically includes context fields
func WithContext(ctx context.Context, logger Logger) Logger {
	if ctx == nil {
		return logger
	}
	return &contextualLogger{ctx: ctx, logger: logger}
}

type contextualLogger struct {
	ctx    context.Context
	logger Logger
}

func (cl *contextualLogger) Info(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.InfoContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Info(message, fields...)
	}
}

func (cl *contextualLogger) Error(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.ErrorContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Error(message, fields...)
	}
}

func (cl *contextualLogger) Warn(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.WarnContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Warn(message, fields...)
	}
}

func (cl *contextualLogger) Debug(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.DebugContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Debug(message, fields...)
	}
}

func (cl *contextualLogger) Success(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.SuccessContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Success(message, fields...)
	}
}

func (cl *contextualLogger) WithApp(app string) Logger {
	return &contextualLogger{
		ctx:    cl.ctx,
		logger: cl.logger.WithApp(app),
	}
}
