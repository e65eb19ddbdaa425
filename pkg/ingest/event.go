package ingest

import (
	"time"

	"github.com/google/uuid"
)

// Field caps enforced during admission, independent of the per-event byte
// budget applied to Metadata (see size.go).
const (
	maxMethodLen     = 16
	maxPathLen       = 2048
	maxConsumerIDLen = 256
)

// RequestEvent is a single observed request, handed to Track by the host
// application. Track never mutates the caller's copy: admission works on a
// value receiver throughout, so trimming Method/Path/Metadata never aliases
// data the host still holds a reference to.
type RequestEvent struct {
	ID             string         `json:"id"`
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	StatusCode     int            `json:"statusCode"`
	ResponseTimeMs float64        `json:"responseTimeMs"`
	RequestSize    int64          `json:"requestSize"`
	ResponseSize   int64          `json:"responseSize"`
	ConsumerID     string         `json:"consumerId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Timestamp      string         `json:"timestamp"`
}

// normalize truncates oversized fixed fields, assigns an ID and a timestamp
// when the caller left them blank, and returns a new value; the caller's
// RequestEvent is never touched.
func (e RequestEvent) normalize() RequestEvent {
	if len(e.Method) > maxMethodLen {
		e.Method = e.Method[:maxMethodLen]
	}
	if len(e.Path) > maxPathLen {
		e.Path = e.Path[:maxPathLen]
	}
	if len(e.ConsumerID) > maxConsumerIDLen {
		e.ConsumerID = e.ConsumerID[:maxConsumerIDLen]
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return e
}
