// Package experiment holds the experiment configuration table and the
// correlator that attributes decoded records to the configuration that
// produced them.
//
// The table is the Cartesian product of transmit mode, interference mode,
// interference power and frequency offset, enumerated in that axis order
// (transmit mode outermost, offset innermost). The device firmware is built
// from the same enumeration, so a row index equals the config-state index the
// receiver reports. The correlator checks that contract on every record
// through the radio mode it observed.
package experiment

import (
	"fmt"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// Sweep describes the axes and per-mode constants of an experiment campaign.
type Sweep struct {
	TxModes     []string `yaml:"tx_modes"`
	BlockModes  []string `yaml:"block_modes"`
	BlockPowers []int    `yaml:"block_powers"`
	FreqOffsets []int    `yaml:"freq_offsets"`

	TxFreqMHz  int `yaml:"tx_freq"`
	TxPowerDBm int `yaml:"tx_power"`

	// Per transmit mode constants.
	BlockerDelayUs  map[string]int `yaml:"blocker_delay_us"`
	ToneBlockerUs   map[string]int `yaml:"tone_blocker_us"`
	BlockPacketSize map[string]int `yaml:"block_packet_size"`
	TxPacketSize    map[string]int `yaml:"tx_packet_size"`
}

// DefaultSweep returns the campaign the firmware images ship with.
func DefaultSweep() Sweep {
	return Sweep{
		TxModes:     []string{"BLE1MBit", "IEEE802154250Kbit"},
		BlockModes:  []string{"BLE1MBit", "IEEE802154250Kbit", domain.ToneMode},
		BlockPowers: []int{-4, 2},
		FreqOffsets: []int{0, 1},
		TxFreqMHz:   2450,
		TxPowerDBm:  0,
		BlockerDelayUs: map[string]int{
			"BLE1MBit":          255,
			"IEEE802154250Kbit": 940,
		},
		ToneBlockerUs: map[string]int{
			"BLE1MBit":          645,
			"IEEE802154250Kbit": 1088,
		},
		BlockPacketSize: map[string]int{
			"BLE1MBit":          8,
			"IEEE802154250Kbit": 120,
		},
		TxPacketSize: map[string]int{
			"BLE1MBit":          120,
			"IEEE802154250Kbit": 80,
		},
	}
}

// Validate checks that every axis is populated and every transmit mode has
// its constants.
func (s Sweep) Validate() error {
	switch {
	case len(s.TxModes) == 0:
		return fmt.Errorf("sweep: tx_modes is empty")
	case len(s.BlockModes) == 0:
		return fmt.Errorf("sweep: block_modes is empty")
	case len(s.BlockPowers) == 0:
		return fmt.Errorf("sweep: block_powers is empty")
	case len(s.FreqOffsets) == 0:
		return fmt.Errorf("sweep: freq_offsets is empty")
	case s.TxFreqMHz < domain.BaseFrequencyMHz:
		return fmt.Errorf("sweep: tx_freq %d below %d MHz", s.TxFreqMHz, domain.BaseFrequencyMHz)
	}

	for _, m := range s.TxModes {
		for name, table := range map[string]map[string]int{
			"blocker_delay_us":  s.BlockerDelayUs,
			"tone_blocker_us":   s.ToneBlockerUs,
			"block_packet_size": s.BlockPacketSize,
			"tx_packet_size":    s.TxPacketSize,
		} {
			if _, ok := table[m]; !ok {
				return fmt.Errorf("sweep: %s has no entry for tx mode %s", name, m)
			}
		}
	}
	return nil
}

// Size returns the number of configurations Generate produces.
func (s Sweep) Size() int {
	return len(s.TxModes) * len(s.BlockModes) * len(s.BlockPowers) * len(s.FreqOffsets)
}

// ToneCarrier returns the radio mode the blocker firmware is set to when it
// emits a tone: the first non-tone interference mode.
func (s Sweep) ToneCarrier() string {
	for _, m := range s.BlockModes {
		if m != domain.ToneMode {
			return m
		}
	}
	return s.TxModes[0]
}

// Generate enumerates the configurations in state-index order.
func (s Sweep) Generate() (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	configs := make([]domain.ExperimentConfig, 0, s.Size())
	for _, txMode := range s.TxModes {
		for _, blockMode := range s.BlockModes {
			for _, blockPower := range s.BlockPowers {
				for _, offset := range s.FreqOffsets {
					c := domain.ExperimentConfig{
						TxMode:        txMode,
						BlockMode:     blockMode,
						TxFreqMHz:     s.TxFreqMHz,
						BlockFreqMHz:  s.TxFreqMHz + offset,
						TxPowerDBm:    s.TxPowerDBm,
						BlockPowerDBm: blockPower,
						DelayUs:       s.BlockerDelayUs[txMode],
						TxPacketSize:  s.TxPacketSize[txMode],
					}
					if blockMode == domain.ToneMode {
						c.ToneBlockerUs = s.ToneBlockerUs[txMode]
					} else {
						c.BlockPacketSize = s.BlockPacketSize[txMode]
					}
					configs = append(configs, c)
				}
			}
		}
	}
	return NewTable(configs), nil
}
