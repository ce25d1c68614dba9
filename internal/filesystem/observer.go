package filesystem

// Observer records retry metrics for NFS resilience. The metrics package
// provides the Prometheus implementation; filesystem cannot import it
// directly without a cycle.
type Observer interface {
	// op is the retried operation: "stat" or "open".
	ObserveRetryAttempt(op, volume string)
	ObserveRetrySuccess(op, volume string)
	ObserveRetryFailure(op, volume string)
	ObserveRetryDuration(op, volume string, durationSeconds float64)
	ObserveStaleError(op, volume string)
}

// defaultObserver is nil in tests, which skips recording.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
