package experiment

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// The firmware images embed the table as C initializers of
//
//	{ mode, freq - 2400, tx_power, delay_us, tone_blocker_us, increase_id, packet_size, packet_tx }

const (
	cTableOpen  = "static const radio_config_t configs[] = {\n"
	cTableClose = "};\n"
)

// WriteTransmitterC writes the initializer table of the main transmitter.
// The transmitter never delays, never sends a tone and increments its message id.
func WriteTransmitterC(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(cTableOpen)
	for _, c := range t.configs {
		fmt.Fprintf(bw, "    { DB_RADIO_%s, %d, %s, %d, %d, %d, %d, packet_tx },\n",
			c.TxMode, c.TxFreqMHz-domain.BaseFrequencyMHz, txPowerSymbol(c.TxPowerDBm),
			0, 0, 1, c.TxPacketSize)
	}
	bw.WriteString(cTableClose)
	return bw.Flush()
}

// WriteBlockerC writes the initializer table of the interferer. Tone rows
// run the radio in toneCarrier mode for ToneBlockerUs microseconds.
func WriteBlockerC(w io.Writer, t *Table, toneCarrier string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(cTableOpen)
	for _, c := range t.configs {
		mode := c.BlockMode
		if c.IsTone() {
			mode = toneCarrier
		}
		fmt.Fprintf(bw, "    { DB_RADIO_%s, %d, %s, %d, %d, %d, %d, packet_tx },\n",
			mode, c.BlockFreqMHz-domain.BaseFrequencyMHz, txPowerSymbol(c.BlockPowerDBm),
			c.DelayUs, c.ToneBlockerUs, 0, c.BlockPacketSize)
	}
	bw.WriteString(cTableClose)
	return bw.Flush()
}

func txPowerSymbol(dbm int) string {
	switch {
	case dbm > 0:
		return fmt.Sprintf("RADIO_TXPOWER_TXPOWER_Pos%ddBm", dbm)
	case dbm < 0:
		return fmt.Sprintf("RADIO_TXPOWER_TXPOWER_Neg%ddBm", -dbm)
	default:
		return "RADIO_TXPOWER_TXPOWER_0dBm"
	}
}
