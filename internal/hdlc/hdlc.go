// Package hdlc turns the byte stream coming from the radio test device into
// discrete frames.
//
// The link uses HDLC-like byte stuffing: every frame is enclosed in Flag
// bytes, and Flag or Esc bytes inside the body are sent as Esc followed by the
// byte XOR EscXor. Frames may carry a trailing FCS-16 (CRC-16/X-25, little
// endian) that is checked and stripped before delivery.
//
// The Deframer never repairs a frame. Anything malformed is counted and
// dropped, and scanning resumes at the next Flag.
package hdlc

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

const (
	Flag   byte = 0x7e
	Esc    byte = 0x7d
	EscXor byte = 0x20
)

// FCSSize is the length of the frame check sequence appended to the body.
const FCSSize = 2

// DefaultMaxFrameSize bounds the de-escaped body, FCS included.
const DefaultMaxFrameSize = 512

var fcsTable = crc16.MakeTable(crc16.CRC16_X_25)

// FCS computes the frame check sequence of p.
func FCS(p []byte) uint16 {
	return crc16.Checksum(p, fcsTable)
}

// Encode returns the on-wire form of payload: opening flag, stuffed body,
// optional FCS, closing flag.
func Encode(payload []byte, withFCS bool) []byte {
	body := payload
	if withFCS {
		body = make([]byte, len(payload), len(payload)+FCSSize)
		copy(body, payload)
		body = binary.LittleEndian.AppendUint16(body, FCS(payload))
	}

	out := make([]byte, 0, len(body)+len(body)/8+2)
	out = append(out, Flag)
	for _, b := range body {
		if b == Flag || b == Esc {
			out = append(out, Esc, b^EscXor)
			continue
		}
		out = append(out, b)
	}
	out = append(out, Flag)
	return out
}
