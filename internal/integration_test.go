package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/air-quality-sensor/internal/adc"
	"github.com/sweeney/air-quality-sensor/internal/logic"
	"github.com/sweeney/air-quality-sensor/internal/status"
)

// TestIntegrationFullFlow tests the complete flow from ADC to report using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	reader := adc.NewFakeReader(
		500,  // initial reading, seeds baseline
		510,  // at rest
		580,  // drifting up
		700,  // well above baseline
		1150, // sharp rise
		1150, // holding high
		520,  // cleared
	)
	if err := reader.Configure(); err != nil {
		t.Fatalf("configure: %v", err)
	}

	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker("kitchen", startTime, status.Config{Source: "fake", SampleMs: 500})
	sensor := logic.NewSensor()

	raw, err := reader.Read()
	if err != nil {
		t.Fatalf("initial read: %v", err)
	}
	if err := sensor.Initialize(raw, startTime); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	tracker.Update(sensor.Snapshot())

	want := []logic.Category{
		logic.FreshAir,
		logic.LowPollution,
		logic.HighPollution,
		logic.ForceSignal,
		logic.HighPollution,
		logic.FreshAir,
	}

	pollInterval := 500 * time.Millisecond
	for i, w := range want {
		raw, err := reader.Read()
		if err != nil {
			t.Fatalf("sample %d: adc read error: %v", i, err)
		}
		now := startTime.Add(time.Duration(i+1) * pollInterval)
		if got := sensor.Classify(raw, now); got != w {
			t.Errorf("sample %d (raw=%d): got %s, want %s", i, raw, got, w)
		}
		tracker.Update(sensor.Snapshot())
	}

	tracker.SetClock(func() time.Time { return startTime.Add(time.Minute) })
	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Sensor
	if s.Category != "FRESH_AIR" || s.Message != "Fresh air." {
		t.Errorf("final category: got %s/%q", s.Category, s.Message)
	}
	if s.Baseline != 500 {
		t.Errorf("Baseline: got %d, want 500", s.Baseline)
	}
	if s.Cycles != 6 || s.Window.Samples != 6 || s.Window.Sum != 4610 {
		t.Errorf("window: cycles=%d samples=%d sum=%d", s.Cycles, s.Window.Samples, s.Window.Sum)
	}
	if s.UptimeSeconds != 60 {
		t.Errorf("UptimeSeconds: got %d, want 60", s.UptimeSeconds)
	}
}

// TestIntegrationBaselineTracksDrift runs two baseline windows of a slowly
// drifting sensor and checks the baseline follows it without alarms.
func TestIntegrationBaselineTracksDrift(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sensor := logic.NewSensor()
	if err := sensor.Initialize(400, startTime); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	step := 500 * time.Millisecond
	perWindow := int(logic.BaselineWindow / step)
	now := startTime
	value := 400
	for i := 0; i < 2*perWindow+1; i++ {
		now = now.Add(step)
		// Drift up by one count every 100 samples
		if i%100 == 99 {
			value++
		}
		if got := sensor.Classify(value, now); got != logic.FreshAir {
			t.Fatalf("sample %d (raw=%d, baseline=%d): got %s, want FRESH_AIR", i, value, sensor.Baseline(), got)
		}
	}

	if sensor.Baseline() <= 400 {
		t.Errorf("expected baseline to follow drift above 400, got %d", sensor.Baseline())
	}
}

// TestIntegrationReadErrors checks a failing reader leaves the published
// state untouched apart from the error counters.
func TestIntegrationReadErrors(t *testing.T) {
	reader := adc.NewFakeReader(500)
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker("hall", startTime, status.Config{})
	sensor := logic.NewSensor()

	raw, _ := reader.Read()
	if err := sensor.Initialize(raw, startTime); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	tracker.Update(sensor.Snapshot())
	before := tracker.Snapshot().Sensor

	reader.ReadError = errors.New("i2c timeout")
	for i := 0; i < 3; i++ {
		if _, err := reader.Read(); err != nil {
			tracker.RecordReadError(err)
			continue
		}
		t.Fatal("expected read error")
	}

	snap := tracker.Snapshot()
	if snap.ReadErrors != 3 || snap.LastError != "i2c timeout" {
		t.Errorf("errors: got %d/%q", snap.ReadErrors, snap.LastError)
	}
	if snap.Sensor != before {
		t.Errorf("sensor state changed on read errors: %+v -> %+v", before, snap.Sensor)
	}
}
