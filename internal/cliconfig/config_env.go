package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "RXTRACE_"

// ApplyEnvConfig applies configuration from environment variables (RXTRACE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("port", env("PORT"), &cfg.Port)
	s.setString("trailer", env("TRAILER_VERSION"), &cfg.TrailerVersion)
	s.setString("sweep", env("SWEEP_FILE"), &cfg.SweepFile)
	s.setString("table", env("TABLE_FILE"), &cfg.TableFile)
	s.setString("reference", env("REFERENCE_FILE"), &cfg.ReferenceFile)
	s.setString("capture-name", env("CAPTURE_NAME"), &cfg.CaptureName)
	s.setString("output-dir", env("OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("raw-capture", env("RAW_CAPTURE"), &cfg.RawCapture)
	s.setString("forward-url", env("FORWARD_URL"), &cfg.ForwardURL)
	s.setString("auth-key", env("AUTH_KEY"), &cfg.AuthKey)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setListFromString("radio-modes", env("RADIO_MODES"), &cfg.RadioModes)

	if err := s.setDuration("read-timeout", env("READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("send-interval", env("SEND_INTERVAL"), &cfg.SendInterval); err != nil {
		return err
	}
	if err := s.setDuration("hard-interval", env("HARD_INTERVAL"), &cfg.HardInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("baud", env("BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("max-frame-size", env("MAX_FRAME_SIZE"), &cfg.MaxFrameSize); err != nil {
		return err
	}
	if err := s.setIntFromString("read-size", env("READ_SIZE"), &cfg.ReadSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-bytes", env("MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}

	if err := s.setBoolFromString("fcs", env("FCS"), &cfg.FCS); err != nil {
		return err
	}
	return s.setBoolFromString("print", env("PRINT"), &cfg.Print)
}
