package adc

import "fmt"

// Power switches the sensor's heater supply.
type Power interface {
	// On energizes the sensor.
	On() error

	// Close de-energizes the sensor and releases the line.
	Close() error
}

// Powered wraps a Reader so the sensor supply is switched on during
// Configure and off again on Close.
type Powered struct {
	Reader
	power Power
}

// WithPower returns r wrapped with the given power line.
func WithPower(r Reader, p Power) *Powered {
	return &Powered{Reader: r, power: p}
}

// Configure powers the sensor and then configures the underlying reader.
func (p *Powered) Configure() error {
	if err := p.power.On(); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	return p.Reader.Configure()
}

// Close closes the underlying reader and powers the sensor down.
func (p *Powered) Close() error {
	var errs []error
	if err := p.Reader.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.power.Close(); err != nil {
		errs = append(errs, fmt.Errorf("power off: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// FakePower records power transitions for tests.
type FakePower struct {
	OnCalls int
	IsOn    bool
	Closed  bool
	OnError error
}

// On marks the fake as powered.
func (f *FakePower) On() error {
	f.OnCalls++
	if f.OnError != nil {
		return f.OnError
	}
	f.IsOn = true
	return nil
}

// Close marks the fake as unpowered and closed.
func (f *FakePower) Close() error {
	f.IsOn = false
	f.Closed = true
	return nil
}
