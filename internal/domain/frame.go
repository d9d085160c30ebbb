package domain

import (
	"encoding/json"
	"fmt"
)

// Frame is one de-escaped byte sequence emitted by the deframer.
// A Frame is only ever delivered whole.
type Frame []byte

// BaseFrequencyMHz is added to the signed frequency offset reported by the device.
const BaseFrequencyMHz = 2400

// Record is the telemetry carried by one frame.
// Fields not present in the trailer version that produced it are left zero
// and flagged by the Has* booleans.
type Record struct {
	// ID is the transmitter's message counter (V3 frames).
	ID    uint32
	HasID bool

	// Message is the received payload, trimmed to Length bytes.
	Message []byte

	// Length is the payload length declared by the trailer.
	Length uint8

	// RSSI is the received signal strength in dBm.
	RSSI int8

	// CRC is the raw CRC flag byte; zero means the radio CRC check failed.
	CRC    int8
	HasCRC bool

	// RxFreqOffset is the receive frequency relative to 2400 MHz.
	RxFreqOffset int8

	// RadioMode indexes the radio mode name table.
	RadioMode    uint8
	HasRadioMode bool

	// ConfigState indexes the experiment configuration table (V3 frames).
	ConfigState    uint32
	HasConfigState bool
}

// CRCOK reports whether the radio accepted the packet CRC.
// Trailers without a CRC byte carry no evidence of failure.
func (r Record) CRCOK() bool {
	return !r.HasCRC || r.CRC != 0
}

// RxFreqMHz returns the absolute receive frequency.
func (r Record) RxFreqMHz() int {
	return BaseFrequencyMHz + int(r.RxFreqOffset)
}

// StoredRecord is the persisted shape of a Record, one JSON object per line.
// Fields absent from the trailer version in use are omitted.
type StoredRecord struct {
	ID          *uint32  `json:"id,omitempty"`
	Message     ByteList `json:"message"`
	Length      uint8    `json:"length"`
	RSSI        int8     `json:"rssi"`
	CRC         *int8    `json:"crc,omitempty"`
	RxFreq      *int     `json:"rx_freq,omitempty"`
	RxMode      *uint8   `json:"rx_mode,omitempty"`
	ConfigState *uint32  `json:"config_state,omitempty"`
}

// ToStored converts a Record to its persisted shape.
func (r Record) ToStored() StoredRecord {
	s := StoredRecord{
		Message: ByteList(r.Message),
		Length:  r.Length,
		RSSI:    r.RSSI,
	}
	if r.HasID {
		id := r.ID
		s.ID = &id
	}
	if r.HasCRC {
		crc := r.CRC
		s.CRC = &crc
		freq := r.RxFreqMHz()
		s.RxFreq = &freq
	}
	if r.HasRadioMode {
		mode := r.RadioMode
		s.RxMode = &mode
	}
	if r.HasConfigState {
		cs := r.ConfigState
		s.ConfigState = &cs
	}
	return s
}

// ToRecord converts a persisted record back to a Record.
func (s StoredRecord) ToRecord() Record {
	r := Record{
		Message: []byte(s.Message),
		Length:  s.Length,
		RSSI:    s.RSSI,
	}
	if s.ID != nil {
		r.ID, r.HasID = *s.ID, true
	}
	if s.CRC != nil {
		r.CRC, r.HasCRC = *s.CRC, true
	}
	if s.RxFreq != nil {
		r.RxFreqOffset = int8(*s.RxFreq - BaseFrequencyMHz)
	}
	if s.RxMode != nil {
		r.RadioMode, r.HasRadioMode = *s.RxMode, true
	}
	if s.ConfigState != nil {
		r.ConfigState, r.HasConfigState = *s.ConfigState, true
	}
	return r
}

// ByteList is a byte slice that encodes to JSON as an array of integers
// rather than base64.
type ByteList []byte

// MarshalJSON implements json.Marshaler.
func (b ByteList) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON implements json.Unmarshaler.
// It accepts an array of integers in [0, 255] or a plain string.
func (b *ByteList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = ByteList(s)
		return nil
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make(ByteList, len(ints))
	for i, v := range ints {
		if v < 0 || v > 0xff {
			return fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
