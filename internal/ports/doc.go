// Package ports defines the interfaces that connect the ingestion pipeline
// to infrastructure adapters.
//
// # Port Interfaces
//
//   - [ByteSource]: Raw byte stream from the radio device (serial port or capture file)
//   - [RecordSink]: Persists correlated records under their storage key
//   - [RecordForwarder]: Sends batches of records to a remote collector
//   - [SessionRepository]: Persists and loads the run counters
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them.
package ports
