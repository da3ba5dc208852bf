//go:build linux

package adc

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOPower drives the sensor supply-enable line through the Linux GPIO
// character device.
type GPIOPower struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
}

// NewGPIOPower requests pin on the named chip (e.g. "gpiochip0") as an
// output, initially off.
func NewGPIOPower(chipName string, pin int) (*GPIOPower, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request power pin %d: %w", pin, err)
	}

	return &GPIOPower{chip: chip, line: line, pin: pin}, nil
}

// On drives the supply-enable line high.
func (p *GPIOPower) On() error {
	if err := p.line.SetValue(1); err != nil {
		return fmt.Errorf("set power pin %d: %w", p.pin, err)
	}
	return nil
}

// Close drives the line low and reconfigures it to input with pull-down
// (matching Pi boot defaults) before releasing it.
func (p *GPIOPower) Close() error {
	var errs []error

	if p.line != nil {
		if err := p.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear power pin %d: %w", p.pin, err))
		}
		if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure power pin %d: %w", p.pin, err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close power pin %d: %w", p.pin, err))
		}
		p.line = nil
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
