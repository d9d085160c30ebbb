package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotbot-tools/rxtrace/internal/trailer"
)

// Default serial link of the receiving board.
const (
	DefaultPort = "/dev/ttyACM0"
	DefaultBaud = 1000000
)

// Config holds CLI configuration for rxtrace.
type Config struct {
	// Serial link
	Port        string
	Baud        int
	ReadTimeout time.Duration

	// Pipeline
	TrailerVersion string
	FCS            bool
	MaxFrameSize   int
	ReadSize       int
	PollInterval   time.Duration

	// Experiment
	SweepFile     string
	TableFile     string
	RadioModes    []string
	ReferenceFile string
	CaptureName   string

	// Outputs
	OutputDir  string
	StateDir   string
	RawCapture string
	Print      bool

	// Forwarding
	ForwardURL    string
	AuthKey       string
	SendInterval  time.Duration
	HardInterval  time.Duration
	MaxBatchBytes int
	HTTPTimeout   time.Duration

	LogLevel string
	Once     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		Baud:           DefaultBaud,
		ReadTimeout:    100 * time.Millisecond,
		TrailerVersion: trailer.V3.String(),
		FCS:            true,
		MaxFrameSize:   512,
		ReadSize:       4096,
		PollInterval:   100 * time.Millisecond,
		CaptureName:    "capture",
		OutputDir:      "results",
		SendInterval:   5 * time.Second,
		HardInterval:   30 * time.Second,
		MaxBatchBytes:  1 << 20, // 1MB
		HTTPTimeout:    15 * time.Second,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if _, err := trailer.ParseVersion(c.TrailerVersion); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output-dir is required")
	}
	if c.StateDir == "" {
		c.StateDir = c.OutputDir
	}
	if c.CaptureName == "" {
		return fmt.Errorf("capture-name must not be empty")
	}
	if c.SweepFile != "" && c.TableFile != "" {
		return fmt.Errorf("sweep-file and table-file are mutually exclusive")
	}
	c.ForwardURL = strings.TrimRight(c.ForwardURL, "/")

	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.ReadSize <= 0 {
		return fmt.Errorf("read size must be positive")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive")
	}
	if c.ForwardURL != "" && c.SendInterval <= 0 {
		return fmt.Errorf("send interval must be positive")
	}
	return nil
}

// ParseLevel maps a log level name to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// configSetter applies values from lower-precedence sources, skipping
// settings whose flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value and sets it if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses an environment value with strconv.ParseBool.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}

// setListFromString splits a comma-separated environment value.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*dst = out
}
