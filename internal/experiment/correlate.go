package experiment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// Match is a record attributed to its experiment configuration.
type Match struct {
	Index  uint32
	Config domain.ExperimentConfig
	Key    string
}

// Correlator maps config-state indexes to table rows and storage keys.
// It is read-only after construction and safe for concurrent use.
type Correlator struct {
	table *Table
	modes ModeTable
	keys  []string
}

// NewCorrelator creates a correlator over table t using the radio mode names in modes.
func NewCorrelator(t *Table, modes ModeTable) (*Correlator, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("experiment table is empty")
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("radio mode table is empty")
	}
	keys := make([]string, t.Len())
	for i, c := range t.configs {
		// after the mode check the observed mode is always the configured one
		keys[i] = StorageKey(c, c.TxMode)
	}
	return &Correlator{table: t, modes: modes, keys: keys}, nil
}

// Modes returns the radio mode name table.
func (c *Correlator) Modes() ModeTable {
	return c.modes
}

// Table returns the experiment table.
func (c *Correlator) Table() *Table {
	return c.table
}

// Correlate looks up the configuration named by rec's config-state index and
// checks it against the radio mode the device reported.
//
// It returns an error wrapping domain.ErrUnknownConfig for an index outside
// the table, and domain.ErrModeMismatch when the reported mode differs from
// the configured transmit mode.
func (c *Correlator) Correlate(rec domain.Record) (Match, error) {
	if !rec.HasConfigState {
		return Match{}, fmt.Errorf("%w: record carries no config-state index", domain.ErrUnknownConfig)
	}

	cfg, ok := c.table.At(rec.ConfigState)
	if !ok {
		return Match{}, fmt.Errorf("%w: index %d outside table of %d",
			domain.ErrUnknownConfig, rec.ConfigState, c.table.Len())
	}

	observed, ok := c.modes.Name(rec.RadioMode)
	if !rec.HasRadioMode || !ok {
		return Match{}, fmt.Errorf("%w: radio mode index %d outside table of %d",
			domain.ErrDecodeFailure, rec.RadioMode, len(c.modes))
	}
	if observed != cfg.TxMode {
		return Match{}, fmt.Errorf("%w: config %d expects %s, device reports %s",
			domain.ErrModeMismatch, rec.ConfigState, cfg.TxMode, observed)
	}

	return Match{Index: rec.ConfigState, Config: cfg, Key: c.keys[rec.ConfigState]}, nil
}

// StorageKey builds the identifier of the output stream for records received
// in rxMode under configuration c. Every parameter is encoded, so result
// files describe themselves.
func StorageKey(c domain.ExperimentConfig, rxMode string) string {
	var tail string
	if c.IsTone() {
		tail = "tone" + strconv.Itoa(c.ToneBlockerUs) + "us"
	} else {
		tail = strconv.Itoa(c.BlockPacketSize) + "B"
	}

	return strings.Join([]string{
		rxMode,
		c.BlockMode,
		strconv.Itoa(c.TxPowerDBm) + "dBm",
		strconv.Itoa(c.BlockPowerDBm) + "dBm",
		strconv.Itoa(c.TxFreqMHz) + "MHz",
		strconv.Itoa(c.BlockFreqMHz) + "MHz",
		strconv.Itoa(c.DelayUs) + "us",
		tail,
	}, "_")
}
