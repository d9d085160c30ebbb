package domain

// ToneMode is the interference mode name used for an unmodulated carrier.
const ToneMode = "tone"

// ExperimentConfig is one row of the experiment table: the transmitter and
// interferer settings the device runs for a given config-state index.
// Rows are immutable once the table is generated.
type ExperimentConfig struct {
	TxMode          string `yaml:"tx_mode" json:"tx_mode"`
	BlockMode       string `yaml:"block_mode" json:"block_mode"`
	TxFreqMHz       int    `yaml:"tx_freq" json:"tx_freq"`
	BlockFreqMHz    int    `yaml:"block_freq" json:"block_freq"`
	TxPowerDBm      int    `yaml:"tx_power" json:"tx_power"`
	BlockPowerDBm   int    `yaml:"block_power" json:"block_power"`
	DelayUs         int    `yaml:"delay_us" json:"delay_us"`
	ToneBlockerUs   int    `yaml:"tone_blocker_us" json:"tone_blocker_us"`
	TxPacketSize    int    `yaml:"tx_packet_size" json:"tx_packet_size"`
	BlockPacketSize int    `yaml:"block_packet_size" json:"block_packet_size"`
}

// IsTone reports whether the interferer transmits a tone instead of packets.
func (c ExperimentConfig) IsTone() bool {
	return c.BlockMode == ToneMode
}
