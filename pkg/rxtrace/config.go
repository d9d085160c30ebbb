package rxtrace

import (
	"fmt"
	"strings"
	"time"

	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/internal/trailer"
)

// Config holds the configuration of a Tracer.
// Zero values are replaced by defaults in SetDefaults.
type Config struct {
	// Port is the serial device of the receiving board.
	// Ignored when CapturePath is set or a source is injected with WithSource.
	Port string

	// Baud is the serial line rate.
	Baud uint

	// ReadTimeout bounds a single serial read.
	ReadTimeout time.Duration

	// CapturePath replays a raw byte capture instead of opening the serial port.
	CapturePath string

	// RawCapture, when set, copies every byte read from the source to this file.
	RawCapture string

	// TrailerVersion is the frame trailer layout: "v1", "v2" or "v3".
	TrailerVersion string

	// SkipFCS disables the frame check sequence.
	SkipFCS bool

	MaxFrameSize int
	ReadSize     int
	PollInterval time.Duration

	// SweepFile or TableFile define the experiment table.
	// When both are empty the default sweep is used.
	SweepFile string
	TableFile string

	// RadioModes overrides the radio mode name table.
	RadioModes []string

	// ReferenceFile holds the raw reference payload for error statistics.
	ReferenceFile string

	// CaptureName is the storage key of records without a config-state index.
	CaptureName string

	// OutputDir receives one JSONL file per storage key.
	OutputDir string

	// StateDir receives status.json. Defaults to OutputDir.
	StateDir string

	// Forwarding. Disabled when ForwardURL is empty.
	ForwardURL    string
	AuthKey       string
	SendInterval  time.Duration
	HardInterval  time.Duration
	MaxBatchBytes int
	HTTPTimeout   time.Duration

	// Once stops the run at the end of the source.
	Once bool
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.Port == "" {
		c.Port = "/dev/ttyACM0"
	}
	if c.Baud == 0 {
		c.Baud = 1000000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 100 * time.Millisecond
	}
	if c.TrailerVersion == "" {
		c.TrailerVersion = trailer.V3.String()
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = 512
	}
	if c.ReadSize == 0 {
		c.ReadSize = 4096
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.CaptureName == "" {
		c.CaptureName = "capture"
	}
	if c.OutputDir == "" {
		c.OutputDir = "results"
	}
	if c.StateDir == "" {
		c.StateDir = c.OutputDir
	}
	if c.SendInterval == 0 {
		c.SendInterval = 5 * time.Second
	}
	if c.HardInterval == 0 {
		c.HardInterval = 30 * time.Second
	}
	if c.MaxBatchBytes == 0 {
		c.MaxBatchBytes = 1 << 20
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	c.ForwardURL = strings.TrimRight(c.ForwardURL, "/")
}

// Validate checks the configuration for errors.
// Returned errors wrap domain.ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := trailer.ParseVersion(c.TrailerVersion); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.SweepFile != "" && c.TableFile != "" {
		return fmt.Errorf("%w: sweep file and table file are mutually exclusive", domain.ErrInvalidConfig)
	}
	if c.MaxFrameSize < 0 || c.ReadSize < 0 {
		return fmt.Errorf("%w: negative buffer size", domain.ErrInvalidConfig)
	}
	if c.PollInterval < 0 || c.SendInterval < 0 || c.HardInterval < 0 {
		return fmt.Errorf("%w: negative interval", domain.ErrInvalidConfig)
	}
	if c.HardInterval < c.SendInterval {
		return fmt.Errorf("%w: hard interval %s is shorter than send interval %s",
			domain.ErrInvalidConfig, c.HardInterval, c.SendInterval)
	}
	return nil
}
