package domain

import "time"

// Session holds the counters of one ingestion run.
// It is persisted periodically so a long capture can be monitored from outside.
type Session struct {
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BytesRead      uint64 `json:"bytes_read"`
	Frames         uint64 `json:"frames"`
	FramingDrops   uint64 `json:"framing_drops"`
	DecodeFailures uint64 `json:"decode_failures"`
	UnknownConfigs uint64 `json:"unknown_configs"`
	Records        uint64 `json:"records"`
	Forwarded      uint64 `json:"forwarded"`

	// LastConfigState is the config-state index of the last correlated record.
	LastConfigState uint32 `json:"last_config_state"`

	// LastID is the message counter of the last stored record.
	LastID uint32 `json:"last_id"`

	// LastKey is the storage key of the last stored record.
	LastKey string `json:"last_key,omitempty"`

	// Fatal holds the error that ended the run, if any.
	Fatal string `json:"fatal,omitempty"`
}

// Skipped returns the number of frames that did not produce a stored record.
func (s Session) Skipped() uint64 {
	return s.DecodeFailures + s.UnknownConfigs
}

// RecordStored updates the counters after a record was written.
func (s *Session) RecordStored(rec Record, key string) {
	s.Records++
	s.LastKey = key
	if rec.HasID {
		s.LastID = rec.ID
	}
	if rec.HasConfigState {
		s.LastConfigState = rec.ConfigState
	}
	s.UpdatedAt = time.Now()
}
