// Package serial implements ports.ByteSource on a serial device.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// DefaultReadTimeout is how long a read waits for the first byte.
const DefaultReadTimeout = 100 * time.Millisecond

// Config describes the serial link to the receiving device.
type Config struct {
	PortName string
	BaudRate uint

	// ReadTimeout bounds a single read. The driver works in steps of 100ms.
	ReadTimeout time.Duration
}

// Port is an open serial device.
type Port struct {
	name string
	rwc  io.ReadWriteCloser
}

// open is replaced in tests.
var open = serial.Open

// Open opens the device in raw 8N1 mode with a bounded read timeout, so
// reads return periodically even when the device is silent.
func Open(cfg Config) (*Port, error) {
	if cfg.PortName == "" {
		return nil, fmt.Errorf("serial: no port name")
	}
	rwc, err := open(options(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.PortName, err)
	}
	return &Port{name: cfg.PortName, rwc: rwc}, nil
}

func options(cfg Config) serial.OpenOptions {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	ms := uint(timeout.Round(100*time.Millisecond) / time.Millisecond)
	if ms < 100 {
		ms = 100
	}
	return serial.OpenOptions{
		PortName:              cfg.PortName,
		BaudRate:              cfg.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: ms,
	}
}

// Read reads whatever the device sent within the read timeout.
// A timeout returns 0 and a nil error; a serial device never reaches EOF.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.rwc.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// Close closes the device.
func (p *Port) Close() error {
	return p.rwc.Close()
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}
