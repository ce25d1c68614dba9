// Package memory provides memory management utilities for controlling Go's
// runtime memory usage in containerized environments.
//
// # Overview
//
// Decoding full-resolution images is the largest allocation imagestream makes.
// Unlike GOMAXPROCS, which Go detects from cgroup CPU limits, GOMEMLIMIT must
// be configured explicitly, and the number of concurrent decodes has to fit
// the same budget.
//
// This package provides utilities to:
//   - Configure GOMEMLIMIT from Kubernetes Downward API environment variables
//   - Size the decode worker pool to the memory budget ([DecodeSlots])
//   - Hold back new decodes while heap usage is critical ([Monitor.Wait])
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. Takes precedence over
//     everything else.
//   - MEMORY_LIMIT: Container memory limit in bytes, typically from the
//     Downward API (resourceFieldRef: limits.memory).
//   - MEMORY_RATIO: Fraction of MEMORY_LIMIT given to the Go heap, default
//     0.85. Lower it when libvips or ffmpeg use a lot of memory outside the
//     Go heap.
//
// # Usage
//
//	cfg := memory.ConfigureFromEnv()
//	slots := memory.DecodeSlots(cfg.GoMemLimit, workers.ForMixed(16))
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
package memory
