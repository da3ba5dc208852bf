// Package status provides a thread-safe status tracker for one air-quality
// sensor. The sampling loop publishes a complete logic.Snapshot after every
// cycle; the reporting loop reads it back without ever seeing a partial
// update.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/air-quality-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Source   string
	SampleMs int64
	ReportMs int64
	WarmUpMs int64
}

// Snapshot is a point-in-time view of one sensor.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Name       string
	Sensor     logic.Snapshot
	StartTime  time.Time
	Now        time.Time
	ReadErrors int
	LastError  string
	Config     Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Message returns the human-readable text for the current category.
func (s Snapshot) Message() string {
	if !s.Sensor.Ready {
		return "Sensor not ready."
	}
	return logic.Describe(s.Sensor.Category)
}

// Tracker holds the latest published state of one sensor behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker for the named sensor.
func NewTracker(name string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Name:      name,
			StartTime: startTime,
			Config:    cfg,
			Sensor:    logic.Snapshot{Category: logic.Invalid},
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Name returns the sensor name.
func (t *Tracker) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Name
}

// Update replaces the sensor state with the result of one cycle.
// Called from the sampling loop after Initialize or Classify.
func (t *Tracker) Update(s logic.Snapshot) {
	t.mu.Lock()
	t.snap.Sensor = s
	t.mu.Unlock()
}

// RecordReadError counts a failed sample read.
func (t *Tracker) RecordReadError(err error) {
	t.mu.Lock()
	t.snap.ReadErrors++
	t.snap.LastError = err.Error()
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the sensor state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}

// CurrentCategory returns the last published category.
func (t *Tracker) CurrentCategory() logic.Category {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Sensor.Category
}

// RawValue returns the last published raw reading.
func (t *Tracker) RawValue() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Sensor.RawValue
}
