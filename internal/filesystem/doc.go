/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

Media libraries are often served from NFS mounts. Opening a file there can fail
transiently with ESTALE when the server side changes under the client. This package
wraps os.Stat and os.Open with a bounded, context-aware retry loop for exactly that
error; every other error is returned immediately.

# Usage

	f, err := filesystem.OpenWithRetry(ctx, "/media/photos/a.jpg", filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

# Retry Behavior

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms. Cancelling ctx
interrupts the backoff sleep.

# Metrics

Retry metrics are reported through an Observer installed with SetObserver. The
metrics package provides the Prometheus implementation. Paths are labeled with a
volume name resolved by the VolumeResolver installed with SetDefaultVolumeResolver.
*/
package filesystem
