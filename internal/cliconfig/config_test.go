package cliconfig

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig_Valid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() on defaults = %v", err)
	}
	if c.StateDir != c.OutputDir {
		t.Errorf("StateDir = %q, want derived %q", c.StateDir, c.OutputDir)
	}
	if !c.FCS || c.TrailerVersion != "v3" || c.Baud != DefaultBaud {
		t.Errorf("defaults = %+v", c)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad trailer", func(c *Config) { c.TrailerVersion = "v9" }, "trailer"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"no output dir", func(c *Config) { c.OutputDir = "" }, "output-dir"},
		{"no capture name", func(c *Config) { c.CaptureName = "" }, "capture-name"},
		{"sweep and table", func(c *Config) { c.SweepFile, c.TableFile = "s.yaml", "t.yaml" }, "mutually exclusive"},
		{"zero baud", func(c *Config) { c.Baud = 0 }, "baud"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "poll"},
		{"zero read size", func(c *Config) { c.ReadSize = 0 }, "read size"},
		{"zero frame size", func(c *Config) { c.MaxFrameSize = 0 }, "frame size"},
		{"forward without interval", func(c *Config) { c.ForwardURL, c.SendInterval = "http://x", 0 }, "send interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDerived(t *testing.T) {
	c := DefaultConfig()
	c.StateDir = "/state"
	c.ForwardURL = "http://collector:8080/"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.StateDir != "/state" {
		t.Errorf("StateDir = %q, want /state", c.StateDir)
	}
	if c.ForwardURL != "http://collector:8080" {
		t.Errorf("ForwardURL = %q, trailing slash kept", c.ForwardURL)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("trace-ish"); err == nil {
		t.Error("ParseLevel accepted unknown level")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, zerolog.WarnLevel)
	log.Info().Msg("quiet")
	log.Warn().Dur("poll", time.Second).Msg("loud")

	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("output = %q", buf.String())
	}
}
