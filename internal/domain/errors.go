package domain

import "errors"

// Pipeline errors. Wrapped errors returned by the deframer, the trailer
// decoder, the correlator and the error aggregator can be checked with errors.Is.
var (
	// ErrFramingDrop marks a frame discarded by the deframer (bad escape,
	// bad FCS or oversized body).
	ErrFramingDrop = errors.New("rxtrace: framing drop")

	// ErrDecodeFailure is returned when a frame trailer can not be decoded:
	// undersized frame, declared length past the body, or unknown radio mode.
	ErrDecodeFailure = errors.New("rxtrace: decode failure")

	// ErrUnknownConfig is returned when a config-state index lies outside
	// the experiment table.
	ErrUnknownConfig = errors.New("rxtrace: unknown config")

	// ErrModeMismatch is returned when the radio mode reported by the device
	// disagrees with the correlated experiment. Device and host have lost
	// track of the configuration sequence; the run must stop.
	ErrModeMismatch = errors.New("rxtrace: radio mode mismatch")

	// ErrNoPackets is returned by rate computations before any packet was ingested.
	ErrNoPackets = errors.New("rxtrace: no packets ingested")
)

// Lifecycle errors.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("rxtrace: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("rxtrace: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("rxtrace: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("rxtrace: invalid configuration")
)

// IsFatal reports whether err must end an ingestion run instead of
// skipping the offending record.
func IsFatal(err error) bool {
	return errors.Is(err, ErrModeMismatch)
}
