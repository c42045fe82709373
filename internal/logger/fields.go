package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldIngestID is the batch ingestion run ID
	FieldIngestID = "ingest_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldFilename is the media file being processed
	FieldFilename = "filename"

	// FieldMediaType is the media type (image or video)
	FieldMediaType = "media_type"

	// FieldQuery is the search or RAG query text
	FieldQuery = "query"
)

// Standard metric fields attached at the log site.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
