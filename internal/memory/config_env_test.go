package memory

import (
	"runtime/debug"
	"testing"
)

func TestConfigureFromEnv_NoEnvironmentVariables(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("Expected Configured to be false when no env vars set")
	}
	if result.Source != sourceNone {
		t.Errorf("Expected Source to be %q, got %q", sourceNone, result.Source)
	}
	if result.ContainerLimit != 0 || result.GoMemLimit != 0 || result.Ratio != 0 {
		t.Errorf("Expected zero limits, got %+v", result)
	}
}

func TestConfigureFromEnv_MEMORYLIMITSet(t *testing.T) {
	oldLimit := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(oldLimit) })

	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()

	if !result.Configured {
		t.Fatal("Expected Configured to be true when MEMORY_LIMIT is set")
	}
	if result.Source != sourceMEMORYLIMIT {
		t.Errorf("Expected Source to be %q, got %q", sourceMEMORYLIMIT, result.Source)
	}
	limit, ratio := int64(1073741824), DefaultMemoryRatio
	want := int64(float64(limit) * ratio)
	if result.GoMemLimit != want {
		t.Errorf("Expected GoMemLimit %d, got %d", want, result.GoMemLimit)
	}
	if got := debug.SetMemoryLimit(-1); got != want {
		t.Errorf("runtime memory limit = %d, want %d", got, want)
	}
}

func TestConfigureFromEnv_Ratio(t *testing.T) {
	oldLimit := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(oldLimit) })

	tests := []struct {
		name  string
		ratio string
		want  float64
	}{
		{"custom ratio", "0.5", 0.5},
		{"ratio of one", "1.0", 1.0},
		{"zero falls back", "0", DefaultMemoryRatio},
		{"above one falls back", "1.5", DefaultMemoryRatio},
		{"garbage falls back", "lots", DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", "2147483648")
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Ratio != tt.want {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.want)
			}
		})
	}
}

func TestConfigureFromEnv_InvalidMEMORYLIMIT(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "two gigs")

	result := ConfigureFromEnv()
	if result.Configured {
		t.Error("Expected Configured to be false for unparseable MEMORY_LIMIT")
	}
	if result.Source != sourceNone {
		t.Errorf("Expected Source %q, got %q", sourceNone, result.Source)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{1 << 30, "1.0 GiB"},
		{3 << 40, "3.0 TiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeSlots(t *testing.T) {
	tests := []struct {
		name  string
		limit int64
		max   int
		want  int
	}{
		{"no budget uses max", 0, 8, 8},
		{"negative budget uses max", -1, 8, 8},
		{"tiny budget still allows one", 1 << 20, 8, 1},
		{"budget for exactly two", 2 * DecodeFootprint, 8, 2},
		{"budget larger than max", 100 * DecodeFootprint, 4, 4},
		{"zero max treated as one", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeSlots(tt.limit, tt.max); got != tt.want {
				t.Errorf("DecodeSlots(%d, %d) = %d, want %d", tt.limit, tt.max, got, tt.want)
			}
		})
	}
}
