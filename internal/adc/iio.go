package adc

import (
	"fmt"
	"os"
	"path/filepath"
)

// IIORoot is where the kernel exposes Industrial I/O devices.
const IIORoot = "/sys/bus/iio/devices"

// IIOReader reads one voltage channel of a Linux IIO ADC through sysfs,
// e.g. /sys/bus/iio/devices/iio:device0/in_voltage3_raw.
type IIOReader struct {
	path       string
	configured bool
}

// NewIIOReader creates a reader for channel of IIO device number device.
// An empty root uses IIORoot.
func NewIIOReader(root string, device, channel int) *IIOReader {
	if root == "" {
		root = IIORoot
	}
	name := fmt.Sprintf("in_voltage%d_raw", channel)
	return &IIOReader{
		path: filepath.Join(root, fmt.Sprintf("iio:device%d", device), name),
	}
}

// Path returns the sysfs attribute the reader samples.
func (r *IIOReader) Path() string {
	return r.path
}

// Configure checks the channel attribute exists.
func (r *IIOReader) Configure() error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("iio channel %s: %w", r.path, err)
	}
	r.configured = true
	return nil
}

// Read samples the channel once.
func (r *IIOReader) Read() (int, error) {
	if !r.configured {
		return 0, ErrNotConfigured
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.path, err)
	}
	return ParseRaw(string(data))
}

// Close is a no-op; sysfs attributes are opened per read.
func (r *IIOReader) Close() error {
	r.configured = false
	return nil
}
