package rxtrace

import (
	"fmt"
	"os"

	"github.com/dotbot-tools/rxtrace/internal/experiment"
	"github.com/dotbot-tools/rxtrace/internal/trailer"
)

// loadExperiment builds the experiment table and mode table from the
// configuration: a saved table, a sweep file, or the default sweep.
// RadioModes overrides the mode table in every case.
func loadExperiment(cfg Config) (*experiment.Table, experiment.ModeTable, error) {
	var (
		table *experiment.Table
		modes experiment.ModeTable
	)
	switch {
	case cfg.TableFile != "":
		t, m, err := experiment.LoadTable(cfg.TableFile)
		if err != nil {
			return nil, nil, err
		}
		table, modes = t, m
	default:
		sweep := experiment.DefaultSweep()
		if cfg.SweepFile != "" {
			s, err := experiment.LoadSweep(cfg.SweepFile)
			if err != nil {
				return nil, nil, err
			}
			sweep = s
		}
		t, err := sweep.Generate()
		if err != nil {
			return nil, nil, err
		}
		table = t
	}

	if len(cfg.RadioModes) > 0 {
		modes = experiment.ModeTable(cfg.RadioModes)
	}
	if len(modes) == 0 {
		modes = experiment.DefaultModes
	}
	return table, modes, nil
}

// buildPipeline returns the trailer decoder and, for trailer versions that
// carry a config-state index, the correlator.
func buildPipeline(cfg Config) (*trailer.Decoder, *experiment.Correlator, error) {
	version, err := trailer.ParseVersion(cfg.TrailerVersion)
	if err != nil {
		return nil, nil, err
	}
	table, modes, err := loadExperiment(cfg)
	if err != nil {
		return nil, nil, err
	}
	decoder, err := trailer.NewDecoder(version, len(modes))
	if err != nil {
		return nil, nil, err
	}
	if !version.HasConfigState() {
		return decoder, nil, nil
	}
	correlator, err := experiment.NewCorrelator(table, modes)
	if err != nil {
		return nil, nil, err
	}
	return decoder, correlator, nil
}

// loadReference reads the raw reference payload, or returns nil for the default.
func loadReference(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("reference file %s is empty", path)
	}
	return b, nil
}
