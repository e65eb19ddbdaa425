package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys used on flush/submit spans.
const (
	AttrBatchSize     = "telemetry.batch_size"
	AttrEndpointHost  = "telemetry.endpoint_host"
	AttrOutcome       = "telemetry.outcome"
	AttrStatusCode    = "telemetry.status_code"
	AttrRetryable     = "telemetry.retryable"
	AttrFailureCount  = "telemetry.consecutive_failures"
	AttrBackoffMillis = "telemetry.backoff_ms"
)

// FlushAttributes returns the attribute set recorded on a flush span.
func FlushAttributes(batchSize int, endpointHost string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrBatchSize, batchSize),
		attribute.String(AttrEndpointHost, endpointHost),
	}
}

// SubmitOutcomeAttributes returns the attribute set recorded once a submit
// completes, whether successfully or not.
func SubmitOutcomeAttributes(outcome string, statusCode int, retryable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrOutcome, outcome),
		attribute.Int(AttrStatusCode, statusCode),
		attribute.Bool(AttrRetryable, retryable),
	}
}
