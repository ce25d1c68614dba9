package database

import "time"

// SessionRecord is one finished stream session.
type SessionRecord struct {
	ID          string        `json:"id"`
	URI         string        `json:"uri"`
	MimeType    string        `json:"mimeType"`
	Route       string        `json:"route"`
	Outcome     string        `json:"outcome"`
	ErrorCode   string        `json:"errorCode,omitempty"`
	ErrorDetail string        `json:"errorDetail,omitempty"`
	Chunks      int           `json:"chunks"`
	Bytes       int64         `json:"bytes"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"-"`
	DurationMs  int64         `json:"durationMs"`
}

// MaxRecentSessions caps RecentSessions.
const MaxRecentSessions = 1000
