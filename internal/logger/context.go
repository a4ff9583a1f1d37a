package logger

import (
	"context"
	"sync"
)

type contextKey struct{}

var loggerKey = contextKey{}

var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(nil)
}

// GetDefault returns the process-wide logger.
func GetDefault() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

func getDefaultLogger() *Logger {
	return GetDefault()
}

// SetDefaultLogger replaces the logger used when a context carries none.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLoggerMu.Lock()
		defaultLogger = l
		defaultLoggerMu.Unlock()
	}
}

// WithContext returns a new context with the logger attached.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from ctx, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*Logger); ok {
			return l
		}
	}
	return GetDefault()
}

// WithField creates a new context whose logger carries one more field.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return FromContext(ctx).WithField(key, value).WithContext(ctx)
}

// WithFields creates a new context whose logger carries the given fields.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return FromContext(ctx).WithFields(fields).WithContext(ctx)
}

// ForRequest tags ctx with an HTTP request ID.
func ForRequest(ctx context.Context, requestID string) context.Context {
	return WithFields(ctx, Fields{
		FieldRequestID: requestID,
		FieldComponent: "api",
	})
}

// ForTransform tags ctx with the fingerprint and variant of one transform.
func ForTransform(ctx context.Context, fingerprint, variant string) context.Context {
	return WithFields(ctx, Fields{
		FieldFingerprint: fingerprint,
		FieldVariant:     variant,
	})
}

// ForBatch tags ctx with a batch run ID.
func ForBatch(ctx context.Context, runID string) context.Context {
	return WithFields(ctx, Fields{
		FieldBatchID:   runID,
		FieldComponent: "batch",
	})
}

func fieldString(ctx context.Context, key string) string {
	str, _ := FromContext(ctx).Data[key].(string)
	return str
}

// RequestID returns the request ID carried by ctx, if any.
func RequestID(ctx context.Context) string {
	return fieldString(ctx, FieldRequestID)
}

// Fingerprint returns the transform fingerprint carried by ctx, if any.
func Fingerprint(ctx context.Context) string {
	return fieldString(ctx, FieldFingerprint)
}
