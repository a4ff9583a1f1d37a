package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing fields (context level)
// Propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldFingerprint is the transform cache key
	FieldFingerprint = "fingerprint"

	// FieldVariant is the requested costume variant
	FieldVariant = "variant"

	// FieldArtifact is an artifact store reference
	FieldArtifact = "artifact"

	// FieldBatchID identifies a batch CLI run
	FieldBatchID = "batch_id"
)

// ============================================
// Metric fields (entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldAttempt is the 1-based attempt number of a retried call
	FieldAttempt = "attempt"

	// FieldCacheHit tells whether a transform was served from the result cache
	FieldCacheHit = "cache_hit"
)
