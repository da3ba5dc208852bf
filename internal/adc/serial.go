package adc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate is the bridge's default line speed.
const DefaultBaudRate = 115200

// SerialReader reads from a microcontroller ADC bridge that prints one raw
// reading per line on a serial port.
type SerialReader struct {
	port     string
	baudRate int

	mu     sync.Mutex
	conn   io.ReadCloser
	done   chan struct{}
	closed bool

	last latest
}

// NewSerialReader creates a reader for the given port, e.g. "/dev/ttyACM0".
// A zero baud rate uses DefaultBaudRate.
func NewSerialReader(port string, baudRate int) *SerialReader {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialReader{port: port, baudRate: baudRate}
}

// Configure opens the port and starts consuming readings in the background.
func (r *SerialReader) Configure() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return fmt.Errorf("serial port %s already open", r.port)
	}
	r.last.reset()

	conn, err := serial.Open(r.port, &serial.Mode{BaudRate: r.baudRate})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", r.port, err)
	}

	r.conn = conn
	r.closed = false
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		r.consume(conn)
	}()
	return nil
}

// consume parses lines from src until it ends. Malformed lines are skipped.
func (r *SerialReader) consume(src io.Reader) {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		v, err := ParseRaw(line)
		if err != nil {
			slog.Debug("serial: skipping line", "port", r.port, "err", err)
			continue
		}
		r.last.set(v)
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	slog.Warn("serial: stream ended", "port", r.port, "err", err)
	r.last.fail(fmt.Errorf("serial port %s: %w", r.port, err))
}

// Read returns the most recent line received.
func (r *SerialReader) Read() (int, error) {
	return r.last.get()
}

// Close closes the port and waits for the reader goroutine to exit.
func (r *SerialReader) Close() error {
	r.mu.Lock()
	if r.conn == nil {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	conn, done := r.conn, r.done
	r.conn = nil
	r.mu.Unlock()

	err := conn.Close()
	<-done
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("close serial port %s: %w", r.port, err)
	}
	return nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
