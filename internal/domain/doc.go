// Package domain contains the core entities and value objects for rxtrace.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (serial ports, files, HTTP, logging) and contains
// only plain data and the error taxonomy shared by the pipeline stages.
//
// # Entities
//
//   - [Frame]: one de-escaped byte sequence delimited on the serial link
//   - [Record]: the telemetry decoded from a frame's trailer
//   - [ExperimentConfig]: one row of the precomputed experiment table
//   - [Batch]: records waiting to be forwarded together
//   - [Session]: counters persisted for monitoring a long capture
//
// # Errors
//
// Per-record failures ([ErrFramingDrop], [ErrDecodeFailure],
// [ErrUnknownConfig]) are skipped by the ingestion loop. [ErrModeMismatch]
// ends the run. Check them with errors.Is.
package domain
