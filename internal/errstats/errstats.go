// Package errstats accumulates packet and bit error statistics of received
// payloads against the reference payload the transmitter sends.
package errstats

import (
	"fmt"
	"math/bits"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// DefaultReference returns the payload of the transmitter firmware:
// 120 bytes counting up in steps of two from zero.
func DefaultReference() []byte {
	ref := make([]byte, 120)
	for i := range ref {
		ref[i] = byte(2 * i)
	}
	return ref
}

// Accumulator counts CRC failures and per-bit mismatches.
//
// Bit positions are numbered from the first byte, most significant bit
// first: position i*8 is bit 7 of byte i.
//
// Not safe for concurrent use.
type Accumulator struct {
	reference []byte
	bitErrors []uint64
	total     uint64
	crcErrors uint64
}

// NewAccumulator creates an accumulator comparing against a copy of reference.
func NewAccumulator(reference []byte) *Accumulator {
	return &Accumulator{
		reference: append([]byte(nil), reference...),
		bitErrors: make([]uint64, 8*len(reference)),
	}
}

// Ingest adds one received payload. Payloads shorter than the reference are
// compared up to their own length; bytes past the reference are ignored.
func (a *Accumulator) Ingest(message []byte, crcOK bool) {
	a.total++
	if !crcOK {
		a.crcErrors++
	}

	n := min(len(message), len(a.reference))
	for i := 0; i < n; i++ {
		diff := a.reference[i] ^ message[i]
		for diff != 0 {
			// highest set bit first; MSB maps to offset 0
			bit := 7 - (bits.Len8(diff) - 1)
			a.bitErrors[i*8+bit]++
			diff &^= 0x80 >> bit
		}
	}
}

// IngestRecord adds a decoded record.
func (a *Accumulator) IngestRecord(rec domain.Record) {
	a.Ingest(rec.Message, rec.CRCOK())
}

// TotalPackets returns the number of ingested payloads.
func (a *Accumulator) TotalPackets() uint64 {
	return a.total
}

// CRCErrors returns the number of ingested payloads with a failed CRC.
func (a *Accumulator) CRCErrors() uint64 {
	return a.crcErrors
}

// BitErrorCounts returns a copy of the per-bit mismatch counters.
func (a *Accumulator) BitErrorCounts() []uint64 {
	return append([]uint64(nil), a.bitErrors...)
}

// PacketErrorRate returns the percentage of packets with a failed CRC.
func (a *Accumulator) PacketErrorRate() (float64, error) {
	if a.total == 0 {
		return 0, domain.ErrNoPackets
	}
	return float64(a.crcErrors) / float64(a.total) * 100, nil
}

// BitErrorRate returns the percentage of packets with bit position i flipped.
func (a *Accumulator) BitErrorRate(i int) (float64, error) {
	if a.total == 0 {
		return 0, domain.ErrNoPackets
	}
	if i < 0 || i >= len(a.bitErrors) {
		return 0, fmt.Errorf("bit position %d outside [0, %d)", i, len(a.bitErrors))
	}
	return float64(a.bitErrors[i]) / float64(a.total) * 100, nil
}

// BitErrorRates returns the error percentage of every bit position.
func (a *Accumulator) BitErrorRates() ([]float64, error) {
	if a.total == 0 {
		return nil, domain.ErrNoPackets
	}
	rates := make([]float64, len(a.bitErrors))
	for i, c := range a.bitErrors {
		rates[i] = float64(c) / float64(a.total) * 100
	}
	return rates, nil
}

// Summary is a point-in-time view of an accumulator.
// NoData is set when nothing was ingested; the rates are then meaningless.
type Summary struct {
	Key              string    `json:"key,omitempty"`
	NoData           bool      `json:"no_data,omitempty"`
	TotalPackets     uint64    `json:"total_packets"`
	CRCErrors        uint64    `json:"crc_errors"`
	PacketErrorRate  float64   `json:"per"`
	MeanBitErrorRate float64   `json:"mean_ber"`
	BitErrorRates    []float64 `json:"ber,omitempty"`
}

// Summarize computes the summary of a. It returns domain.ErrNoPackets, with
// a summary marked NoData, when nothing was ingested.
func (a *Accumulator) Summarize(key string) (Summary, error) {
	per, err := a.PacketErrorRate()
	if err != nil {
		return Summary{Key: key, NoData: true}, fmt.Errorf("%s: %w", key, err)
	}
	rates, _ := a.BitErrorRates()

	var mean float64
	for _, r := range rates {
		mean += r
	}
	if len(rates) > 0 {
		mean /= float64(len(rates))
	}

	return Summary{
		Key:              key,
		TotalPackets:     a.total,
		CRCErrors:        a.crcErrors,
		PacketErrorRate:  per,
		MeanBitErrorRate: mean,
		BitErrorRates:    rates,
	}, nil
}
