package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// DefaultModes is the radio mode name table, indexed like the firmware's
// radio mode enumeration.
var DefaultModes = ModeTable{
	"BLE1MBit",
	"BLE2MBit",
	"BLELR125Kbit",
	"BLELR500Kbit",
	"IEEE802154250Kbit",
	domain.ToneMode,
}

// ModeTable maps radio mode indexes reported by the device to names.
type ModeTable []string

// Name returns the mode name at index i.
func (m ModeTable) Name(i uint8) (string, bool) {
	if int(i) >= len(m) {
		return "", false
	}
	return m[i], true
}

// Index returns the index of name, or -1.
func (m ModeTable) Index(name string) int {
	for i, n := range m {
		if n == name {
			return i
		}
	}
	return -1
}

// Table is the ordered, read-only sequence of experiment configurations.
type Table struct {
	configs []domain.ExperimentConfig
}

// NewTable creates a table holding a copy of configs.
func NewTable(configs []domain.ExperimentConfig) *Table {
	return &Table{configs: append([]domain.ExperimentConfig(nil), configs...)}
}

// Len returns the number of configurations.
func (t *Table) Len() int {
	return len(t.configs)
}

// At returns the configuration at state index i.
func (t *Table) At(i uint32) (domain.ExperimentConfig, bool) {
	if uint64(i) >= uint64(len(t.configs)) {
		return domain.ExperimentConfig{}, false
	}
	return t.configs[i], true
}

// Configs returns a copy of all configurations in index order.
func (t *Table) Configs() []domain.ExperimentConfig {
	return append([]domain.ExperimentConfig(nil), t.configs...)
}

// tableFile is the YAML document written by SaveTable.
type tableFile struct {
	RadioModes ModeTable       `yaml:"radio_modes,omitempty"`
	Configs    []indexedConfig `yaml:"configs"`
}

type indexedConfig struct {
	StateIndex              int `yaml:"state_index"`
	domain.ExperimentConfig `yaml:",inline"`
}

// LoadSweep reads a sweep definition from a YAML file.
// Keys missing from the file keep their DefaultSweep values.
func LoadSweep(path string) (Sweep, error) {
	s := DefaultSweep()
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse sweep %s: %w", path, err)
	}
	return s, s.Validate()
}

// LoadTable reads a table written by SaveTable. Rows must be listed in
// state-index order without gaps. The returned mode table is nil when the
// file does not define one.
func LoadTable(path string) (*Table, ModeTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var tf tableFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return nil, nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	configs := make([]domain.ExperimentConfig, len(tf.Configs))
	for i, c := range tf.Configs {
		if c.StateIndex != i {
			return nil, nil, fmt.Errorf("table %s: row %d has state_index %d", path, i, c.StateIndex)
		}
		configs[i] = c.ExperimentConfig
	}
	return NewTable(configs), tf.RadioModes, nil
}

// MarshalTable renders t (and optionally the mode table) as YAML.
func MarshalTable(t *Table, modes ModeTable) ([]byte, error) {
	tf := tableFile{RadioModes: modes, Configs: make([]indexedConfig, t.Len())}
	for i, c := range t.configs {
		tf.Configs[i] = indexedConfig{StateIndex: i, ExperimentConfig: c}
	}
	return yaml.Marshal(tf)
}

// SaveTable writes t as YAML to path.
func SaveTable(path string, t *Table, modes ModeTable) error {
	b, err := MarshalTable(t, modes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
