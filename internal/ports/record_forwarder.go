package ports

import (
	"context"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// RecordForwarder transmits record batches to a remote collector.
type RecordForwarder interface {
	// Forward sends a batch of records. It returns nil on success; on error the
	// caller keeps the batch and retries with backoff.
	Forward(ctx context.Context, batch *domain.Batch, metadata ForwardMetadata) error
}

// ForwardMetadata provides context for the forward operation.
// It is sent as HTTP headers for server-side tracking.
type ForwardMetadata struct {
	// Source names the byte source (serial port or capture file).
	Source string

	// TrailerVersion is the trailer layout of the records.
	TrailerVersion string

	// Hostname is the host running the ingestor.
	Hostname string

	// AuthKey is the API authentication key.
	AuthKey string

	// ServiceURL is the base URL of the collector.
	ServiceURL string
}
