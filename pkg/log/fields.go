package log

const (
	// Invocation
	FieldRequestID = "request_id"
	FieldEventName = "event_name"

	// HTTP (health / metrics server)
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldLatency  = "latency_ms"
	FieldClientIP = "client_ip"

	// Objects
	FieldBucket    = "bucket"
	FieldKey       = "key"
	FieldDstBucket = "dst_bucket"
	FieldDstKey    = "dst_key"

	// Conversion
	FieldResolution = "resolution"
	FieldBytes      = "bytes"
	FieldDuration   = "duration_ms"

	// Service
	FieldService = "service"
)
