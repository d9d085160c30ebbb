package ports

import "io"

// ByteSource delivers the raw byte stream produced by the radio device.
type ByteSource interface {
	// Read reads up to len(p) bytes into p.
	// It returns 0 and a nil error when nothing arrived within the transport's
	// read timeout; the caller should poll again after a delay.
	// It returns io.EOF when the source is exhausted (end of a capture file).
	// Any other error is a transport failure.
	Read(p []byte) (int, error)

	// Close releases the underlying device or file.
	Close() error
}

// ErrSourceExhausted indicates that a byte source has no more data.
var ErrSourceExhausted = io.EOF
