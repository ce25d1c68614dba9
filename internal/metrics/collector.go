package metrics

import (
	"context"
	"time"

	"imagestream/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HistoryCount is one aggregated row of the session history.
type HistoryCount struct {
	Route   string
	Outcome string
	Count   int64
	Bytes   int64
}

// StatsProvider supplies aggregated session history.
type StatsProvider interface {
	SessionStats(ctx context.Context) ([]HistoryCount, error)
}

// History gauges, refreshed by the Collector.
var (
	HistorySessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "imagestream_history_sessions",
			Help: "Sessions kept in the history store by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	HistoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "imagestream_history_bytes",
			Help: "Bytes delivered by sessions kept in the history store, by route",
		},
		[]string{"route"},
	)
)

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := c.statsProvider.SessionStats(ctx)
	if err != nil {
		logging.Warn("metrics collector: failed to read session stats: %v", err)
		return
	}

	HistorySessions.Reset()
	HistoryBytes.Reset()

	bytesByRoute := make(map[string]int64)
	for _, row := range rows {
		HistorySessions.WithLabelValues(row.Route, row.Outcome).Set(float64(row.Count))
		bytesByRoute[row.Route] += row.Bytes
	}
	for route, b := range bytesByRoute {
		HistoryBytes.WithLabelValues(route).Set(float64(b))
	}

	logging.Debug("metrics collector: refreshed %d history rows", len(rows))
}
