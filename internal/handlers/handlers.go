package handlers

import (
	"context"
	"time"

	"imagestream/internal/database"
	"imagestream/internal/metrics"
	"imagestream/internal/session"
	"imagestream/internal/startup"
	"imagestream/internal/streaming"
	"imagestream/internal/transcoder"
)

// Store is the part of the database the handlers read from.
type Store interface {
	Ping(ctx context.Context) error
	RecentSessions(ctx context.Context, limit int) ([]database.SessionRecord, error)
	SessionStats(ctx context.Context) ([]metrics.HistoryCount, error)
}

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	controller *session.Controller
	store      Store
	transcoder *transcoder.Transcoder
	streamCfg  streaming.TimeoutWriterConfig
	startTime  time.Time
}

// New creates the HTTP handlers.
func New(controller *session.Controller, store Store, trans *transcoder.Transcoder, config *startup.Config) *Handlers {
	streamCfg := streaming.DefaultTimeoutWriterConfig()
	if config != nil {
		if config.StreamWriteTimeout > 0 {
			streamCfg.WriteTimeout = config.StreamWriteTimeout
		}
		if config.StreamIdleTimeout > 0 {
			streamCfg.IdleTimeout = config.StreamIdleTimeout
		}
	}

	return &Handlers{
		controller: controller,
		store:      store,
		transcoder: trans,
		streamCfg:  streamCfg,
		startTime:  time.Now(),
	}
}
