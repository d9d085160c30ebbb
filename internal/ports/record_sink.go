package ports

import (
	"context"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// RecordSink persists records, routed by storage key.
type RecordSink interface {
	// Write appends rec to the output stream identified by key.
	Write(ctx context.Context, key string, rec domain.Record) error

	// Close flushes and releases every open stream.
	Close() error
}
