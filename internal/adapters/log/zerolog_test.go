package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotbot-tools/rxtrace/internal/ports"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Warn("skipping record",
		ports.String("reason", "decode"),
		ports.Int("frame_len", 12),
		ports.Uint64("records", 7),
		ports.Float64("per", 12.5),
		ports.Bool("fcs", true),
		ports.Duration("retry_in", time.Second),
		ports.Err(errors.New("boom")),
		ports.Any("modes", []string{"BLE1MBit"}),
	)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"level":     "warn",
		"message":   "skipping record",
		"reason":    "decode",
		"frame_len": float64(12),
		"records":   float64(7),
		"per":       12.5,
		"fcs":       true,
		"error":     "boom",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
	if _, ok := line["retry_in"]; !ok {
		t.Error("retry_in missing")
	}
	if _, ok := line["modes"]; !ok {
		t.Error("modes missing")
	}
}

func TestConsoleAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleAdapter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Error("shown", ports.String("key", "value"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered messages: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=") {
		t.Errorf("output = %q", out)
	}
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x", ports.Err(errors.New("ignored")))
}
