// Package rxtrace provides an embeddable ingestion engine for framed radio
// receiver telemetry.
//
// A Tracer reads the HDLC-framed byte stream of a receiving board (a serial
// port, a raw capture file, or any injected ByteSource), decodes the frame
// trailer, correlates each record with the experiment configuration that
// produced it, stores it as a JSONL line under the configuration's storage
// key, and keeps per-key packet and bit error statistics.
//
// # Basic Usage
//
//	cfg := rxtrace.Config{
//	    Port:      "/dev/ttyACM0",
//	    OutputDir: "results",
//	}
//
//	tr, err := rxtrace.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := tr.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Replay
//
// Set Config.CapturePath and Config.Once to feed a recorded byte stream
// through the same pipeline; wait on [Tracer.Done] for the end of the file.
//
// # Event Handling
//
// Implement [EventHandler] (or embed [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe records, skipped frames, forwarding results
// and state changes. Events are called synchronously from the ingestion
// goroutine.
//
// # Lifecycle States
//
// A Tracer is in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. A run crashes on a
// transport error or when the device reports a radio mode that disagrees
// with the correlated experiment; [Tracer.Err] returns the cause.
package rxtrace
