//go:build !linux

package adc

import "errors"

// GPIOPower is not available on non-Linux platforms.
type GPIOPower struct{}

// NewGPIOPower returns an error on non-Linux platforms.
func NewGPIOPower(chipName string, pin int) (*GPIOPower, error) {
	return nil, errors.New("adc: gpio power not supported on this platform (requires Linux)")
}

// On is not implemented on non-Linux platforms.
func (p *GPIOPower) On() error {
	return errors.New("adc: gpio power not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *GPIOPower) Close() error {
	return nil
}
