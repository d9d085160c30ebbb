package rxtrace

import (
	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/internal/errstats"
	"github.com/dotbot-tools/rxtrace/internal/ports"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// ByteSource is a stream of raw link bytes.
type ByteSource = ports.ByteSource

// RecordForwarder ships batches of records to a remote collector.
type RecordForwarder = ports.RecordForwarder

// ForwardMetadata describes the run a forwarded batch belongs to.
type ForwardMetadata = ports.ForwardMetadata

// Record is one decoded telemetry record.
type Record = domain.Record

// Session holds the counters of one ingestion run.
type Session = domain.Session

// Summary is the error statistics of one storage key.
type Summary = errstats.Summary

// Option configures optional behavior of a Tracer.
type Option func(*options)

type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	source       ports.ByteSource
	forwarder    ports.RecordForwarder
}

// WithHTTPClient sets the HTTP client used by the default forwarder.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for Tracer events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithSource replaces the serial port or capture file with src.
// The caller keeps ownership; the Tracer never closes an injected source.
func WithSource(src ByteSource) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithForwarder replaces the HTTP forwarder. Forwarding is enabled even when
// Config.ForwardURL is empty.
func WithForwarder(f RecordForwarder) Option {
	return func(o *options) {
		o.forwarder = f
	}
}
