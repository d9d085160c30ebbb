// Package trailer decodes the metadata the receiver firmware appends to each
// frame.
//
// A frame is laid out as
//
//	[id: u32 LE, V3 only][message][trailer]
//
// and the trailer fields, in frame order, are
//
//	V1: length u8, rssi i8
//	V2: length u8, rssi i8, crc i8, rx_freq_offset i8, rx_mode u8
//	V3: length u8, rssi i8, crc i8, rx_freq_offset i8, rx_mode u8, config_state u32 LE
//
// The version is chosen by the caller. Frame length alone can not tell the
// layouts apart, so it is never sniffed.
package trailer

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// Version selects a trailer layout.
type Version int

const (
	V1 Version = iota + 1
	V2
	V3
)

// IDSize is the length of the message counter leading V3 frames.
const IDSize = 4

// ParseVersion accepts "v1", "V2", "3" and the like.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1", "1":
		return V1, nil
	case "v2", "2":
		return V2, nil
	case "v3", "3":
		return V3, nil
	default:
		return 0, fmt.Errorf("unknown trailer version %q (want v1, v2 or v3)", s)
	}
}

// String returns the canonical name of the version.
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("v?(%d)", int(v))
	}
}

// Valid reports whether v is a known layout.
func (v Version) Valid() bool {
	return v >= V1 && v <= V3
}

// Size returns the trailer length in bytes.
func (v Version) Size() int {
	switch v {
	case V1:
		return 2
	case V2:
		return 5
	case V3:
		return 9
	default:
		return 0
	}
}

// IDPrefix returns the length of the leading identifier.
func (v Version) IDPrefix() int {
	if v == V3 {
		return IDSize
	}
	return 0
}

// HasConfigState reports whether frames of this version carry a config-state index.
func (v Version) HasConfigState() bool {
	return v == V3
}

// Decoder turns frames of one trailer version into records.
type Decoder struct {
	version  Version
	numModes int
}

// NewDecoder creates a decoder for version v. numModes is the size of the
// radio mode name table; reported mode indexes must fall below it.
func NewDecoder(v Version, numModes int) (*Decoder, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("trailer version %v not supported", v)
	}
	if numModes <= 0 && v != V1 {
		return nil, fmt.Errorf("trailer %v needs a non-empty radio mode table", v)
	}
	return &Decoder{version: v, numModes: numModes}, nil
}

// Version returns the layout the decoder expects.
func (d *Decoder) Version() Version {
	return d.version
}

// Decode splits f into identifier, message and trailer fields.
// Every failure wraps domain.ErrDecodeFailure.
func (d *Decoder) Decode(f domain.Frame) (domain.Record, error) {
	var rec domain.Record

	size := d.version.Size()
	idLen := d.version.IDPrefix()
	if len(f) < idLen+size {
		return rec, fmt.Errorf("%w: %d-byte frame shorter than %v id+trailer (%d bytes)",
			domain.ErrDecodeFailure, len(f), d.version, idLen+size)
	}

	t := f[len(f)-size:]
	body := f[:len(f)-size]

	if idLen > 0 {
		rec.ID = binary.LittleEndian.Uint32(body[:idLen])
		rec.HasID = true
		body = body[idLen:]
	}

	rec.Length = t[0]
	rec.RSSI = int8(t[1])
	if int(rec.Length) > len(body) {
		return rec, fmt.Errorf("%w: declared length %d exceeds %d-byte message",
			domain.ErrDecodeFailure, rec.Length, len(body))
	}
	rec.Message = append([]byte(nil), body[:rec.Length]...)

	if d.version == V1 {
		return rec, nil
	}

	rec.CRC = int8(t[2])
	rec.HasCRC = true
	rec.RxFreqOffset = int8(t[3])
	rec.RadioMode = t[4]
	rec.HasRadioMode = true
	if int(rec.RadioMode) >= d.numModes {
		return rec, fmt.Errorf("%w: radio mode index %d outside table of %d",
			domain.ErrDecodeFailure, rec.RadioMode, d.numModes)
	}

	if d.version == V3 {
		rec.ConfigState = binary.LittleEndian.Uint32(t[5:9])
		rec.HasConfigState = true
	}
	return rec, nil
}

// Encode builds the frame body the firmware would send for rec.
// The declared length is rec.Length, not len(rec.Message), so callers can
// produce inconsistent frames on purpose.
func Encode(v Version, rec domain.Record) []byte {
	out := make([]byte, 0, v.IDPrefix()+len(rec.Message)+v.Size())
	if v.IDPrefix() > 0 {
		out = binary.LittleEndian.AppendUint32(out, rec.ID)
	}
	out = append(out, rec.Message...)
	out = append(out, rec.Length, byte(rec.RSSI))
	if v == V1 {
		return out
	}
	out = append(out, byte(rec.CRC), byte(rec.RxFreqOffset), rec.RadioMode)
	if v == V3 {
		out = binary.LittleEndian.AppendUint32(out, rec.ConfigState)
	}
	return out
}
