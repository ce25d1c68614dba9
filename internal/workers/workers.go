package workers

import "runtime"

// Per-CPU multipliers for the kinds of work the service runs.
const (
	// CPUBound work (encoding, orientation) keeps a core busy throughout.
	CPUBound = 1.0
	// Mixed work (decoding) waits on the byte source part of the time.
	Mixed = 1.5
)

// Count returns multiplier workers per available CPU, at least one and at
// most limit (0 = no limit). Available CPUs come from GOMAXPROCS, which Go
// sets from the container CPU quota.
func Count(multiplier float64, limit int) int {
	n := max(1, int(float64(runtime.GOMAXPROCS(0))*multiplier))
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}

// ForCPU returns the worker count for CPU-bound work, capped by limit.
func ForCPU(limit int) int {
	return Count(CPUBound, limit)
}

// ForMixed returns the worker count for decode work, capped by limit.
func ForMixed(limit int) int {
	return Count(Mixed, limit)
}

// Resolve picks the decode pool size: a positive override (STREAM_WORKERS)
// wins, otherwise derived is used.
func Resolve(override, derived int) int {
	if override > 0 {
		return override
	}
	return max(1, derived)
}
