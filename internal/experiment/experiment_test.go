package experiment

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

func TestGenerate_DefaultSweep(t *testing.T) {
	s := DefaultSweep()
	table, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if table.Len() != 24 || s.Size() != 24 {
		t.Fatalf("Len = %d, Size = %d, want 24", table.Len(), s.Size())
	}

	first, _ := table.At(0)
	want := domain.ExperimentConfig{
		TxMode: "BLE1MBit", BlockMode: "BLE1MBit",
		TxFreqMHz: 2450, BlockFreqMHz: 2450,
		TxPowerDBm: 0, BlockPowerDBm: -4,
		DelayUs: 255, TxPacketSize: 120, BlockPacketSize: 8,
	}
	if first != want {
		t.Errorf("At(0) = %+v, want %+v", first, want)
	}

	// offset is the innermost axis
	second, _ := table.At(1)
	if second.BlockFreqMHz != 2451 || second.BlockPowerDBm != -4 {
		t.Errorf("At(1) = %+v, want offset 1 at power -4", second)
	}

	// block index 2 of tx mode 0 is tone: rows 8..11
	tone, _ := table.At(8)
	if !tone.IsTone() || tone.ToneBlockerUs != 645 || tone.BlockPacketSize != 0 {
		t.Errorf("At(8) = %+v, want BLE tone row", tone)
	}

	last, _ := table.At(23)
	if last.TxMode != "IEEE802154250Kbit" || !last.IsTone() || last.ToneBlockerUs != 1088 ||
		last.BlockPowerDBm != 2 || last.BlockFreqMHz != 2451 || last.DelayUs != 940 {
		t.Errorf("At(23) = %+v", last)
	}
}

func TestSweep_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Sweep)
	}{
		{"no tx modes", func(s *Sweep) { s.TxModes = nil }},
		{"no block modes", func(s *Sweep) { s.BlockModes = nil }},
		{"no powers", func(s *Sweep) { s.BlockPowers = nil }},
		{"no offsets", func(s *Sweep) { s.FreqOffsets = nil }},
		{"low frequency", func(s *Sweep) { s.TxFreqMHz = 2000 }},
		{"missing constant", func(s *Sweep) { s.TxModes = append(s.TxModes, "BLE2MBit") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSweep()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
			if _, err := s.Generate(); err == nil {
				t.Error("Generate() error = nil, want error")
			}
		})
	}
}

func TestTable_AtReturnsCopy(t *testing.T) {
	table := NewTable([]domain.ExperimentConfig{{TxMode: "BLE1MBit"}})
	c, _ := table.At(0)
	c.TxMode = "changed"
	again, _ := table.At(0)
	if again.TxMode != "BLE1MBit" {
		t.Errorf("table mutated through At: %q", again.TxMode)
	}
	if _, ok := table.At(1); ok {
		t.Error("At(1) ok = true on single-row table")
	}
}

func TestModeTable(t *testing.T) {
	if n, ok := DefaultModes.Name(4); !ok || n != "IEEE802154250Kbit" {
		t.Errorf("Name(4) = %q, %v", n, ok)
	}
	if _, ok := DefaultModes.Name(6); ok {
		t.Error("Name(6) ok = true")
	}
	if i := DefaultModes.Index("tone"); i != 5 {
		t.Errorf("Index(tone) = %d, want 5", i)
	}
	if i := DefaultModes.Index("nope"); i != -1 {
		t.Errorf("Index(nope) = %d, want -1", i)
	}
}

func TestTable_SaveLoad(t *testing.T) {
	table, err := DefaultSweep().Generate()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := SaveTable(path, table, DefaultModes); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	loaded, modes, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if len(modes) != len(DefaultModes) {
		t.Errorf("modes = %v", modes)
	}
	if loaded.Len() != table.Len() {
		t.Fatalf("Len = %d, want %d", loaded.Len(), table.Len())
	}
	for i, c := range table.Configs() {
		got, _ := loaded.At(uint32(i))
		if got != c {
			t.Errorf("row %d = %+v, want %+v", i, got, c)
		}
	}
}

func TestLoadTable_RejectsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	doc := "configs:\n  - state_index: 0\n    tx_mode: BLE1MBit\n  - state_index: 2\n    tx_mode: BLE1MBit\n"
	if err := writeFile(path, doc); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadTable(path); err == nil {
		t.Error("LoadTable() error = nil, want gap error")
	}
}

func TestLoadSweep_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	if err := writeFile(path, "block_powers: [-8, 0, 4]\nfreq_offsets: [0]\n"); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSweep(path)
	if err != nil {
		t.Fatalf("LoadSweep: %v", err)
	}
	if s.Size() != 2*3*3*1 {
		t.Errorf("Size = %d, want 18", s.Size())
	}
	if s.TxFreqMHz != 2450 {
		t.Errorf("TxFreqMHz = %d, want default 2450", s.TxFreqMHz)
	}
}

func scenarioCorrelator(t *testing.T) *Correlator {
	t.Helper()
	table := NewTable([]domain.ExperimentConfig{{
		TxMode: "BLE1MBit", BlockMode: domain.ToneMode,
		TxFreqMHz: 2425, BlockFreqMHz: 2425,
		DelayUs: 255, ToneBlockerUs: 645, TxPacketSize: 120,
	}})
	c, err := NewCorrelator(table, ModeTable{"BLE1MBit", "IEEE802154250Kbit"})
	if err != nil {
		t.Fatalf("NewCorrelator: %v", err)
	}
	return c
}

func v3Record(mode uint8, state uint32) domain.Record {
	return domain.Record{
		HasID: true, HasCRC: true, CRC: 1,
		RadioMode: mode, HasRadioMode: true,
		ConfigState: state, HasConfigState: true,
	}
}

func TestCorrelate_Match(t *testing.T) {
	c := scenarioCorrelator(t)
	m, err := c.Correlate(v3Record(0, 0))
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if !strings.Contains(m.Key, "BLE1MBit") || !strings.Contains(m.Key, "tone") {
		t.Errorf("Key = %q, want BLE1MBit and tone", m.Key)
	}
	if m.Config.TxFreqMHz != 2425 || m.Index != 0 {
		t.Errorf("Match = %+v", m)
	}

	again, _ := c.Correlate(v3Record(0, 0))
	if again.Key != m.Key {
		t.Errorf("key not stable: %q vs %q", again.Key, m.Key)
	}
}

func TestCorrelate_Errors(t *testing.T) {
	c := scenarioCorrelator(t)
	tests := []struct {
		name string
		rec  domain.Record
		want error
	}{
		{"mode mismatch", v3Record(1, 0), domain.ErrModeMismatch},
		{"index past end", v3Record(0, 1), domain.ErrUnknownConfig},
		{"max index", v3Record(0, ^uint32(0)), domain.ErrUnknownConfig},
		{"unknown mode", v3Record(9, 0), domain.ErrDecodeFailure},
		{"no config state", domain.Record{HasRadioMode: true}, domain.ErrUnknownConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Correlate(tt.rec)
			if !errors.Is(err, tt.want) {
				t.Errorf("Correlate() error = %v, want %v", err, tt.want)
			}
		})
	}
	if !domain.IsFatal(func() error { _, err := c.Correlate(v3Record(1, 0)); return err }()) {
		t.Error("mode mismatch is not fatal")
	}
}

func TestCorrelate_EveryRow(t *testing.T) {
	table, err := DefaultSweep().Generate()
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCorrelator(table, DefaultModes)
	if err != nil {
		t.Fatal(err)
	}

	keys := make(map[string]uint32, table.Len())
	for i := uint32(0); i < uint32(table.Len()); i++ {
		cfg, _ := table.At(i)
		mode := DefaultModes.Index(cfg.TxMode)
		if mode < 0 {
			t.Fatalf("row %d: tx mode %q not in mode table", i, cfg.TxMode)
		}
		m, err := c.Correlate(v3Record(uint8(mode), i))
		if err != nil {
			t.Fatalf("row %d: Correlate() error = %v", i, err)
		}
		if m.Index != i {
			t.Errorf("row %d: Match.Index = %d", i, m.Index)
		}
		if prev, dup := keys[m.Key]; dup {
			t.Errorf("rows %d and %d share key %q", prev, i, m.Key)
		}
		keys[m.Key] = i
	}
	if len(keys) != table.Len() {
		t.Errorf("distinct keys = %d, want %d", len(keys), table.Len())
	}
}

func TestNewCorrelator_Validation(t *testing.T) {
	if _, err := NewCorrelator(NewTable(nil), DefaultModes); err == nil {
		t.Error("empty table accepted")
	}
	if _, err := NewCorrelator(NewTable([]domain.ExperimentConfig{{}}), nil); err == nil {
		t.Error("empty mode table accepted")
	}
}

func TestStorageKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.ExperimentConfig
		want string
	}{
		{
			name: "packet blocker",
			cfg: domain.ExperimentConfig{
				BlockMode: "IEEE802154250Kbit", TxPowerDBm: 0, BlockPowerDBm: -4,
				TxFreqMHz: 2450, BlockFreqMHz: 2451, DelayUs: 255, BlockPacketSize: 8,
			},
			want: "BLE1MBit_IEEE802154250Kbit_0dBm_-4dBm_2450MHz_2451MHz_255us_8B",
		},
		{
			name: "tone blocker",
			cfg: domain.ExperimentConfig{
				BlockMode: "tone", TxPowerDBm: 0, BlockPowerDBm: 2,
				TxFreqMHz: 2450, BlockFreqMHz: 2450, DelayUs: 255, ToneBlockerUs: 645,
			},
			want: "BLE1MBit_tone_0dBm_2dBm_2450MHz_2450MHz_255us_tone645us",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StorageKey(tt.cfg, "BLE1MBit"); got != tt.want {
				t.Errorf("StorageKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTransmitterC(t *testing.T) {
	table := NewTable([]domain.ExperimentConfig{
		{TxMode: "BLE1MBit", TxFreqMHz: 2450, TxPowerDBm: 0, TxPacketSize: 120},
		{TxMode: "IEEE802154250Kbit", TxFreqMHz: 2425, TxPowerDBm: -8, TxPacketSize: 80},
	})
	var buf bytes.Buffer
	if err := WriteTransmitterC(&buf, table); err != nil {
		t.Fatal(err)
	}
	want := "static const radio_config_t configs[] = {\n" +
		"    { DB_RADIO_BLE1MBit, 50, RADIO_TXPOWER_TXPOWER_0dBm, 0, 0, 1, 120, packet_tx },\n" +
		"    { DB_RADIO_IEEE802154250Kbit, 25, RADIO_TXPOWER_TXPOWER_Neg8dBm, 0, 0, 1, 80, packet_tx },\n" +
		"};\n"
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteBlockerC(t *testing.T) {
	table := NewTable([]domain.ExperimentConfig{
		{BlockMode: "IEEE802154250Kbit", BlockFreqMHz: 2451, BlockPowerDBm: 2, DelayUs: 255, BlockPacketSize: 8},
		{BlockMode: "tone", BlockFreqMHz: 2450, BlockPowerDBm: -4, DelayUs: 940, ToneBlockerUs: 1088},
	})
	var buf bytes.Buffer
	if err := WriteBlockerC(&buf, table, "BLE1MBit"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if want := "    { DB_RADIO_IEEE802154250Kbit, 51, RADIO_TXPOWER_TXPOWER_Pos2dBm, 255, 0, 0, 8, packet_tx },"; lines[1] != want {
		t.Errorf("packet row = %q", lines[1])
	}
	if want := "    { DB_RADIO_BLE1MBit, 50, RADIO_TXPOWER_TXPOWER_Neg4dBm, 940, 1088, 0, 0, packet_tx },"; lines[2] != want {
		t.Errorf("tone row = %q", lines[2])
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
