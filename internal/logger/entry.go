package logger

import (
	"context"
	"time"
)

// Entry carries outcome fields for a single log line: how long a request or
// transform took, how many upstream attempts it needed, what it produced.
//
//	logger.With(nil).WithStatus("generated_ai").WithAttempts(2).WithElapsed(d).Info(ctx, "Transform completed")
type Entry struct {
	logger *Logger
	fields Fields
}

// With creates a new Entry with the given fields.
func With(fields Fields) *Entry {
	return &Entry{
		logger: getDefaultLogger(),
		fields: fields,
	}
}

func (e *Entry) with(key string, value interface{}) *Entry {
	merged := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		merged[k] = v
	}
	merged[key] = value
	return &Entry{logger: e.logger, fields: merged}
}

// WithElapsed records d as duration_ms.
func (e *Entry) WithElapsed(d time.Duration) *Entry {
	return e.with(FieldDurationMs, d.Milliseconds())
}

// WithBytes records a payload size.
func (e *Entry) WithBytes(n int) *Entry {
	return e.with(FieldSize, n)
}

// WithStatus records a record status or an HTTP status code.
func (e *Entry) WithStatus(status interface{}) *Entry {
	return e.with(FieldStatus, status)
}

// WithAttempts records how many upstream calls were made.
func (e *Entry) WithAttempts(n int) *Entry {
	return e.with(FieldAttempt, n)
}

// WithCacheHit records whether the result cache answered.
func (e *Entry) WithCacheHit(hit bool) *Entry {
	return e.with(FieldCacheHit, hit)
}

// WithCount records an item count.
func (e *Entry) WithCount(n int64) *Entry {
	return e.with(FieldCount, n)
}

// getLogger prefers the context logger so request fields are kept.
func (e *Entry) getLogger(ctx context.Context) *Logger {
	if ctx != nil {
		return FromContext(ctx)
	}
	return e.logger
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Errorf(format, args...)
}
