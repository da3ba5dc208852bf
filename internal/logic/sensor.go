package logic

import (
	"fmt"
	"time"
)

// Sensor tracks the voltage history and adaptive baseline of one air-quality
// sensor. It is not safe for concurrent use: one goroutine owns it and
// publishes Snapshots for readers.
type Sensor struct {
	initialized bool
	ready       bool

	rawValue       int
	currentVoltage int
	lastVoltage    int
	baseline       int

	voltageSum  uint32
	sampleCount int
	baselineAt  time.Time

	category  Category
	cycles    int
	updatedAt time.Time
}

// NewSensor returns a zero-valued sensor that must be initialized before use.
func NewSensor() *Sensor {
	return &Sensor{category: Invalid}
}

// Initialize seeds the sensor from its first raw reading, taken after warm-up.
// It returns an error wrapping ErrImplausibleReading if the reading is outside
// (MinPlausibleRaw, MaxPlausibleRaw); the voltage fields must not be used then.
func (s *Sensor) Initialize(raw int, now time.Time) error {
	s.initialized = true
	s.ready = false
	s.rawValue = raw
	s.updatedAt = now

	if raw <= MinPlausibleRaw || raw >= MaxPlausibleRaw {
		return fmt.Errorf("%w: raw=%d, want %d < raw < %d",
			ErrImplausibleReading, raw, MinPlausibleRaw, MaxPlausibleRaw)
	}

	s.currentVoltage = raw
	s.lastVoltage = raw
	s.baseline = raw
	s.baselineAt = now
	s.ready = true
	return nil
}

// Classify takes the next raw sample and returns the resulting category.
// It never fails; every input maps to one of the four reachable categories.
func (s *Sensor) Classify(raw int, now time.Time) Category {
	s.lastVoltage = s.currentVoltage

	s.rawValue = raw
	s.currentVoltage = raw

	s.voltageSum += uint32(s.currentVoltage)
	s.sampleCount++

	s.updateBaseline(now)

	diff := s.currentVoltage - s.lastVoltage
	deviation := s.currentVoltage - s.baseline

	s.category = Rate(diff, deviation)
	s.cycles++
	s.updatedAt = now
	return s.category
}

// updateBaseline replaces the baseline with the mean of the accumulated
// samples once more than BaselineWindow has passed since the last update.
func (s *Sensor) updateBaseline(now time.Time) {
	if now.Sub(s.baselineAt) <= BaselineWindow {
		return
	}

	// An empty window keeps the previous baseline.
	if s.sampleCount > 0 {
		s.baseline = int(s.voltageSum / uint32(s.sampleCount))
	}
	s.baselineAt = now
	s.voltageSum = 0
	s.sampleCount = 0
}

// Rate maps a slope and a deviation from baseline to a category.
// Rules are checked in order and the first match wins.
func Rate(diff, deviation int) Category {
	switch {
	case diff > SlopeForce && deviation > DeviationHigh:
		return ForceSignal
	case (diff > SlopeForce && deviation > DeviationLow) || deviation > DeviationHigh:
		return HighPollution
	case (diff > SlopeRising && deviation > DeviationLow) || deviation > DeviationLow:
		return LowPollution
	default:
		return FreshAir
	}
}

// Ready reports whether Initialize succeeded.
func (s *Sensor) Ready() bool {
	return s.ready
}

// IsInitialized reports whether Initialize has run, successfully or not.
func (s *Sensor) IsInitialized() bool {
	return s.initialized
}

// Category returns the category computed by the last Classify call.
func (s *Sensor) Category() Category {
	return s.category
}

// RawValue returns the most recent raw sample.
func (s *Sensor) RawValue() int {
	return s.rawValue
}

// Value returns the current voltage.
func (s *Sensor) Value() int {
	return s.currentVoltage
}

// Baseline returns the current baseline voltage.
func (s *Sensor) Baseline() int {
	return s.baseline
}

// Snapshot returns a copy of the current state.
func (s *Sensor) Snapshot() Snapshot {
	return Snapshot{
		Initialized:    s.initialized,
		Ready:          s.ready,
		RawValue:       s.rawValue,
		CurrentVoltage: s.currentVoltage,
		LastVoltage:    s.lastVoltage,
		Baseline:       s.baseline,
		VoltageSum:     s.voltageSum,
		SampleCount:    s.sampleCount,
		BaselineAt:     s.baselineAt,
		Category:       s.category,
		Cycles:         s.cycles,
		UpdatedAt:      s.updatedAt,
	}
}
