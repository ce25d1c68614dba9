package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig(limit int64) Config {
	return Config{
		MemoryLimitBytes:  limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     50 * time.Millisecond,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MemoryLimitBytes != 0 {
		t.Errorf("Expected MemoryLimitBytes to be 0, got %d", cfg.MemoryLimitBytes)
	}
	if cfg.HighWaterMark >= cfg.CriticalWaterMark {
		t.Errorf("HighWaterMark %.2f should be below CriticalWaterMark %.2f", cfg.HighWaterMark, cfg.CriticalWaterMark)
	}
	if cfg.CheckInterval != 5*time.Second {
		t.Errorf("Expected CheckInterval to be 5s, got %v", cfg.CheckInterval)
	}
}

func TestNewMonitor_ExplicitLimit(t *testing.T) {
	monitor := NewMonitor(testConfig(100 << 20))
	if monitor.Limit() != 100<<20 {
		t.Errorf("Limit() = %d, want %d", monitor.Limit(), 100<<20)
	}
}

func TestMonitorStartStop(_ *testing.T) {
	monitor := NewMonitor(testConfig(100 << 20))
	monitor.Start()
	time.Sleep(100 * time.Millisecond)
	monitor.Stop()
	// A second Stop is harmless.
	monitor.Stop()
}

func TestMonitorPausesAndResumes(t *testing.T) {
	monitor := NewMonitor(testConfig(1000))

	monitor.record(900)
	if !monitor.IsPaused() {
		t.Fatal("expected pause at 90% usage")
	}

	released := make(chan error, 1)
	go func() { released <- monitor.Wait(context.Background()) }()

	select {
	case <-released:
		t.Fatal("Wait returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	// Between the water marks the pause holds.
	monitor.record(800)
	if !monitor.IsPaused() {
		t.Fatal("expected pause to hold between water marks")
	}

	monitor.record(100)
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after recovery")
	}
	if monitor.IsPaused() {
		t.Error("expected monitor to resume")
	}
}

func TestMonitorWaitHonorsContext(t *testing.T) {
	monitor := NewMonitor(testConfig(1000))
	monitor.record(999)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := monitor.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	monitor := NewMonitor(testConfig(1000))
	monitor.record(999)

	done := make(chan error, 1)
	go func() { done <- monitor.Wait(context.Background()) }()
	monitor.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error = %v, want nil after Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not release waiter")
	}
}

func TestNilMonitorWait(t *testing.T) {
	var monitor *Monitor
	if err := monitor.Wait(context.Background()); err != nil {
		t.Errorf("nil monitor Wait() = %v", err)
	}
}

func TestMonitorGetStats(t *testing.T) {
	monitor := NewMonitor(testConfig(1000))
	monitor.record(250)

	current, limit, usage := monitor.GetStats()
	if current != 250 || limit != 1000 || usage != 0.25 {
		t.Errorf("GetStats() = (%d, %d, %v), want (250, 1000, 0.25)", current, limit, usage)
	}
}
