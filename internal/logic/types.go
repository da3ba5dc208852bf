// Package logic contains the pure air-quality classification logic.
// This package has NO external dependencies (no ADC, GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"time"
)

// Category is the qualitative air-quality result of one classification cycle.
type Category int

// Category values use the sensor's numeric status codes.
const (
	ForceSignal   Category = 0
	HighPollution Category = 1
	LowPollution  Category = 2
	FreshAir      Category = 3
	// Invalid means no rule matched. The rule set always ends in FreshAir,
	// so Classify never returns it.
	Invalid Category = -1
)

// Initialization plausibility band: the first raw reading must lie strictly
// between these values. Anything outside means the ADC is saturated or the
// sensor is disconnected.
const (
	MinPlausibleRaw = 11
	MaxPlausibleRaw = 797
)

// Classification thresholds, in raw ADC units. All comparisons are strict.
const (
	// SlopeForce is the jump between consecutive samples that marks a
	// sudden spike.
	SlopeForce = 400
	// SlopeRising is the jump that marks a moderate rise.
	SlopeRising = 200
	// DeviationHigh is the distance above baseline that means high pollution.
	DeviationHigh = 150
	// DeviationLow is the distance above baseline that means low pollution.
	DeviationLow = 50
)

const (
	// BaselineWindow is how long samples are accumulated before the
	// baseline is recomputed as their mean.
	BaselineWindow = 500000 * time.Millisecond
	// WarmUp is how long the heater needs after power-on before the first
	// reading is trustworthy.
	WarmUp = 20000 * time.Millisecond
)

// ErrImplausibleReading is returned by Initialize when the first sample is
// outside the plausibility band.
var ErrImplausibleReading = errors.New("implausible initial reading")

// Snapshot is a point-in-time copy of a Sensor's state.
// It is a value type and safe to hand to other goroutines.
type Snapshot struct {
	Initialized    bool
	Ready          bool
	RawValue       int
	CurrentVoltage int
	LastVoltage    int
	Baseline       int
	VoltageSum     uint32
	SampleCount    int
	BaselineAt     time.Time
	Category       Category
	Cycles         int
	UpdatedAt      time.Time
}

// Slope returns the difference between the two most recent samples.
func (s Snapshot) Slope() int {
	return s.CurrentVoltage - s.LastVoltage
}

// Deviation returns the distance of the current sample from the baseline.
func (s Snapshot) Deviation() int {
	return s.CurrentVoltage - s.Baseline
}
