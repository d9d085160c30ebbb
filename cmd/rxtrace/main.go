package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/dotbot-tools/rxtrace/internal/cliconfig"
)

const helpDescription = `
Capture, correlate and score the packets of a radio interference campaign.

The receiving board streams HDLC frames over its serial link. Each frame ends
with a trailer (length, RSSI, CRC flag, frequency, radio mode and the index of
the experiment configuration it was received under). rxtrace decodes the
trailer, matches the frame with its configuration, stores it under the
configuration's storage key and keeps packet and bit error rates per key.

Subcommands:
  run      read the serial port until interrupted
  replay   feed a raw byte capture through the same pipeline
  stats    recompute PER/BER from stored JSONL outputs
  configs  print the experiment table as YAML or firmware C initializers
  status   print the counters of the last run
`

var exampleUsage = strings.TrimSpace(`
  rxtrace run --port /dev/ttyACM0 --output-dir results --raw-capture session.bin
  rxtrace replay session.bin --output-dir replayed
  rxtrace stats results --follow
  rxtrace configs --format c-blocker --sweep sweep.yaml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := cliconfig.Logger(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:           "rxtrace",
		Short:         "Capture and score framed radio receiver telemetry",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(&log),
		newReplayCmd(&log),
		newStatsCmd(&log),
		newConfigsCmd(),
		newStatusCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("rxtrace")
		os.Exit(1)
	}
}

// resolveConfig applies the config file and RXTRACE_* environment to cfg,
// leaving explicitly set flags untouched, then validates it.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// addPipelineFlags registers the flags shared by run and replay.
func addPipelineFlags(fs *pflag.FlagSet, cfg *cliconfig.Config, cfgPath *string) {
	fs.StringVar(cfgPath, "config", "", "path to config file (default: $HOME/.rxtrace/config.toml)")

	fs.StringVar(&cfg.TrailerVersion, "trailer", cfg.TrailerVersion, "frame trailer version (v1|v2|v3)")
	fs.BoolVar(&cfg.FCS, "fcs", cfg.FCS, "check the HDLC frame check sequence")
	fs.IntVar(&cfg.MaxFrameSize, "max-frame-size", cfg.MaxFrameSize, "largest accepted frame body in bytes")
	fs.IntVar(&cfg.ReadSize, "read-size", cfg.ReadSize, "read buffer size")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "pause after an idle read")

	fs.StringVar(&cfg.SweepFile, "sweep", cfg.SweepFile, "YAML sweep definition generating the experiment table")
	fs.StringVar(&cfg.TableFile, "table", cfg.TableFile, "YAML experiment table (from 'rxtrace configs')")
	fs.StringSliceVar(&cfg.RadioModes, "radio-modes", cfg.RadioModes, "radio mode names indexed like the firmware enumeration")
	fs.StringVar(&cfg.ReferenceFile, "reference", cfg.ReferenceFile, "raw reference payload (default: firmware packet_tx)")
	fs.StringVar(&cfg.CaptureName, "capture-name", cfg.CaptureName, "storage key of records without a config index")

	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory receiving one JSONL file per storage key")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (defaults to output-dir)")
	fs.BoolVar(&cfg.Print, "print", cfg.Print, "print stored records as JSON lines on stdout")

	fs.StringVar(&cfg.ForwardURL, "forward-url", cfg.ForwardURL, "collector base URL (forwarding disabled when empty)")
	fs.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "collector API key")
	fs.DurationVar(&cfg.SendInterval, "send-interval", cfg.SendInterval, "soft send and status interval")
	fs.DurationVar(&cfg.HardInterval, "hard-interval", cfg.HardInterval, "hard send interval")
	fs.IntVar(&cfg.MaxBatchBytes, "max-batch-bytes", cfg.MaxBatchBytes, "maximum payload bytes per batch")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
}
