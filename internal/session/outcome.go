package session

import (
	"time"

	"imagestream/internal/mediatypes"
)

// Outcome summarizes a finished session: either Chunks delivered, or one
// error code.
type Outcome struct {
	SessionID string
	URI       string
	MimeType  string
	Route     mediatypes.Route
	// Routed is false when the session failed before classification.
	Routed bool

	Chunks int
	Bytes  int64

	ErrorCode string
	Message   string
	Detail    string

	StartedAt time.Time
	Duration  time.Duration
}

// Delivered reports whether the session ended without an error.
func (o Outcome) Delivered() bool {
	return o.ErrorCode == ""
}

// RouteLabel is the route name, or "none" for unrouted sessions.
func (o Outcome) RouteLabel() string {
	if !o.Routed {
		return "none"
	}
	return o.Route.String()
}

// OutcomeLabel is "delivered" or the error code.
func (o Outcome) OutcomeLabel() string {
	if o.Delivered() {
		return "delivered"
	}
	return o.ErrorCode
}
