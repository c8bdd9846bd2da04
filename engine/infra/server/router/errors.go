package router

// Error codes
const (
	ErrInternalCode        = "INTERNAL_ERROR"
	ErrNotFoundCode        = "NOT_FOUND"
	ErrPayloadTooLargeCode = "PAYLOAD_TOO_LARGE"
	ErrRateLimitedCode     = "RATE_LIMITED"
)

// Ingest problem codes.
const (
	IngestErrMissingFileCode    = "missing_file"
	IngestErrInvalidTypeCode    = "invalid_file_type"
	IngestErrEmptyFileCode      = "empty_file"
	IngestErrMalformedCode      = "malformed_csv"
	IngestErrNoValidRecordsCode = "no_valid_records"
	IngestErrQueueDownCode      = "queue_unavailable"
)
