package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port           string   `toml:"port"`
	Baud           int      `toml:"baud"`
	ReadTimeout    string   `toml:"read_timeout"`
	TrailerVersion string   `toml:"trailer_version"`
	FCS            *bool    `toml:"fcs"`
	MaxFrameSize   int      `toml:"max_frame_size"`
	ReadSize       int      `toml:"read_size"`
	PollInterval   string   `toml:"poll_interval"`
	SweepFile      string   `toml:"sweep_file"`
	TableFile      string   `toml:"table_file"`
	RadioModes     []string `toml:"radio_modes"`
	ReferenceFile  string   `toml:"reference_file"`
	CaptureName    string   `toml:"capture_name"`
	OutputDir      string   `toml:"output_dir"`
	StateDir       string   `toml:"state_dir"`
	RawCapture     string   `toml:"raw_capture"`
	Print          *bool    `toml:"print"`
	ForwardURL     string   `toml:"forward_url"`
	AuthKey        string   `toml:"auth_key"`
	SendInterval   string   `toml:"send_interval"`
	HardInterval   string   `toml:"hard_interval"`
	MaxBatchBytes  int      `toml:"max_batch_bytes"`
	HTTPTimeout    string   `toml:"http_timeout"`
	LogLevel       string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.rxtrace/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rxtrace", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setString("trailer", fc.TrailerVersion, &cfg.TrailerVersion)
	s.setString("sweep", fc.SweepFile, &cfg.SweepFile)
	s.setString("table", fc.TableFile, &cfg.TableFile)
	s.setString("reference", fc.ReferenceFile, &cfg.ReferenceFile)
	s.setString("capture-name", fc.CaptureName, &cfg.CaptureName)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("raw-capture", fc.RawCapture, &cfg.RawCapture)
	s.setString("forward-url", fc.ForwardURL, &cfg.ForwardURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setStrings("radio-modes", fc.RadioModes, &cfg.RadioModes)

	for _, d := range []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"read-timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"send-interval", fc.SendInterval, &cfg.SendInterval},
		{"hard-interval", fc.HardInterval, &cfg.HardInterval},
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
	} {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("max-frame-size", fc.MaxFrameSize, &cfg.MaxFrameSize)
	s.setInt("read-size", fc.ReadSize, &cfg.ReadSize)
	s.setInt("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes)

	s.setBool("fcs", fc.FCS, &cfg.FCS)
	s.setBool("print", fc.Print, &cfg.Print)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
