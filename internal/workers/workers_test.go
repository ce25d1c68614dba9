package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"one per cpu", CPUBound, 0, procs},
		{"mixed", Mixed, 0, max(1, int(float64(procs)*1.5))},
		{"capped", 4.0, 1, 1},
		{"never zero", 0.0001, 0, 1},
		{"limit above count", CPUBound, procs + 10, procs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)

	if got := ForCPU(0); got != procs {
		t.Errorf("ForCPU(0) = %d, want %d", got, procs)
	}
	if got := ForMixed(0); got != max(1, int(float64(procs)*1.5)) {
		t.Errorf("ForMixed(0) = %d", got)
	}
	if got := ForMixed(1); got != 1 {
		t.Errorf("ForMixed(1) = %d, want 1", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		override, derived, want int
	}{
		{0, 6, 6},
		{3, 6, 3},
		{12, 2, 12},
		{0, 0, 1},
		{-1, 4, 4},
	}
	for _, tt := range tests {
		if got := Resolve(tt.override, tt.derived); got != tt.want {
			t.Errorf("Resolve(%d, %d) = %d, want %d", tt.override, tt.derived, got, tt.want)
		}
	}
}

func BenchmarkCount(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Count(Mixed, 16)
	}
}
