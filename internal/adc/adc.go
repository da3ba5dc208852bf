// Package adc provides raw analog readings with hardware abstraction.
// Real implementations read a Linux IIO channel, a serial ADC bridge or an
// MQTT topic fed by a remote ADC node. The fake implementation allows testing
// without hardware.
package adc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reader supplies raw ADC readings for one sensor channel.
type Reader interface {
	// Configure prepares the channel for reading (open device, power the
	// sensor, subscribe). Called once before the warm-up delay.
	Configure() error

	// Read returns the most recent raw reading.
	Read() (int, error)

	// Close releases resources.
	Close() error
}

// MaxRaw is the largest reading of a 12-bit converter.
const MaxRaw = 4095

var (
	// ErrNoSample is returned when a streaming source has not delivered a
	// reading yet.
	ErrNoSample = errors.New("adc: no sample received")
	// ErrOutOfRange is returned for readings outside 0..MaxRaw.
	ErrOutOfRange = errors.New("adc: reading out of range")
	// ErrNotConfigured is returned by Read before Configure succeeded.
	ErrNotConfigured = errors.New("adc: not configured")
)

// ParseRaw parses a decimal reading and checks it fits the 12-bit range.
func ParseRaw(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse reading %q: %w", s, err)
	}
	if v < 0 || v > MaxRaw {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return v, nil
}
