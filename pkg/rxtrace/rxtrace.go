package rxtrace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/dotbot-tools/rxtrace/internal/adapters/fs"
	httpAdapter "github.com/dotbot-tools/rxtrace/internal/adapters/http"
	logAdapter "github.com/dotbot-tools/rxtrace/internal/adapters/log"
	"github.com/dotbot-tools/rxtrace/internal/adapters/serial"
	"github.com/dotbot-tools/rxtrace/internal/app"
	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/internal/experiment"
	"github.com/dotbot-tools/rxtrace/internal/ports"
	"github.com/dotbot-tools/rxtrace/internal/trailer"
)

// Tracer ingests framed receiver telemetry and can be embedded in other
// applications. Use New() to create an instance, then Start() to begin.
type Tracer struct {
	config     Config
	opts       options
	lifecycle  *app.Lifecycle
	emitter    *eventEmitterWrapper
	logger     ports.Logger
	decoder    *trailer.Decoder
	correlator *experiment.Correlator
	reference  []byte
	sessions   ports.SessionRepository
	forwarder  ports.RecordForwarder

	mu       sync.RWMutex
	ingestor *app.Ingestor
	done     chan struct{}
}

// New creates a Tracer with the given configuration.
// The experiment table and reference payload are loaded here; the source and
// outputs are opened by Start.
func New(cfg Config, opts ...Option) (*Tracer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	decoder, correlator, err := buildPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	reference, err := loadReference(cfg.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	forwarder := o.forwarder
	if forwarder == nil && cfg.ForwardURL != "" {
		client := o.httpClient
		if client == nil {
			client = &http.Client{Timeout: cfg.HTTPTimeout}
		}
		forwarder = httpAdapter.NewRecordForwarder(client, logger)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	if correlator != nil {
		logger.Info("experiment table loaded",
			ports.Int("configs", correlator.Table().Len()),
			ports.Int("radio_modes", len(correlator.Modes())),
		)
	}

	return &Tracer{
		config:     cfg,
		opts:       o,
		lifecycle:  app.NewLifecycle(logger, emitter),
		emitter:    emitter,
		logger:     logger,
		decoder:    decoder,
		correlator: correlator,
		reference:  reference,
		sessions:   fs.NewStatusFileRepository(cfg.StateDir),
		forwarder:  forwarder,
	}, nil
}

// Start opens the source and the outputs and begins ingestion in the
// background. The provided context bounds the lifetime of the run.
func (t *Tracer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := t.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	source, err := t.openSource()
	if err != nil {
		t.lifecycle.Fail(err)
		return err
	}
	sink, err := fs.NewJSONLSink(t.config.OutputDir)
	if err != nil {
		_ = source.Close()
		t.lifecycle.Fail(err)
		return err
	}

	ingestor, err := app.NewIngestor(app.IngestorConfig{
		PollInterval:   t.config.PollInterval,
		ReadSize:       t.config.ReadSize,
		CheckFCS:       !t.config.SkipFCS,
		MaxFrameSize:   t.config.MaxFrameSize,
		CaptureName:    t.config.CaptureName,
		Reference:      t.reference,
		Once:           t.config.Once,
		StatusInterval: t.config.SendInterval,
		SendInterval:   t.config.SendInterval,
		HardInterval:   t.config.HardInterval,
		MaxBatchBytes:  t.config.MaxBatchBytes,
		Metadata: ports.ForwardMetadata{
			Source:         t.sourceName(),
			TrailerVersion: t.decoder.Version().String(),
			Hostname:       hostname(),
			AuthKey:        t.config.AuthKey,
			ServiceURL:     t.config.ForwardURL,
		},
	}, app.IngestorDeps{
		Source:     source,
		Decoder:    t.decoder,
		Correlator: t.correlator,
		Sink:       sink,
		Forwarder:  t.forwarder,
		Sessions:   t.sessions,
		Logger:     t.logger,
		Records:    t.emitter,
		Forwards:   t.emitter,
	})
	if err != nil {
		_ = source.Close()
		_ = sink.Close()
		t.lifecycle.Fail(err)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.lifecycle.SetCancel(cancel)
	t.ingestor = ingestor
	done := make(chan struct{})
	t.done = done

	t.lifecycle.Go(func() {
		defer close(done)
		defer cancel()
		defer t.closeOutputs(source, sink)

		if err := t.lifecycle.TransitionTo(app.StateRunning, "ingestor starting"); err != nil {
			t.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := ingestor.Run(runCtx)
		switch {
		case err == nil:
			_ = t.lifecycle.TransitionTo(app.StateStopped, "source exhausted")
		case errors.Is(err, context.Canceled):
			_ = t.lifecycle.TransitionTo(app.StateStopped, "context canceled")
		default:
			t.logger.Error("ingestion failed", ports.Err(err))
			t.lifecycle.Fail(err)
		}
	})
	return nil
}

// Stop cancels ingestion and waits for pending records to be flushed and
// the session status to be saved. Returns ErrShutdownTimeout if the run
// does not end within 30 seconds.
func (t *Tracer) Stop() error {
	t.mu.Lock()
	if !t.lifecycle.CanStop() {
		t.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := t.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		t.mu.Unlock()
		return err
	}
	t.lifecycle.Cancel()
	t.mu.Unlock()

	err := t.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err != nil {
		_ = t.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = t.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Done returns a channel closed when the current run ends, whether by Stop,
// context cancellation, end of a Once source, or a fatal error.
// It returns nil before the first Start.
func (t *Tracer) Done() <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (t *Tracer) Status() State {
	return convertState(t.lifecycle.State())
}

// Err returns the error that crashed the last run, or nil.
func (t *Tracer) Err() error {
	return t.lifecycle.Err()
}

// Session returns a snapshot of the counters of the current or last run.
func (t *Tracer) Session() Session {
	t.mu.RLock()
	in := t.ingestor
	t.mu.RUnlock()
	if in == nil {
		return Session{}
	}
	return in.Session()
}

// Stats returns the per-key error statistics of the current or last run.
func (t *Tracer) Stats() []Summary {
	t.mu.RLock()
	in := t.ingestor
	t.mu.RUnlock()
	if in == nil {
		return nil
	}
	return in.Stats()
}

func (t *Tracer) openSource() (ports.ByteSource, error) {
	var (
		src ports.ByteSource
		err error
	)
	switch {
	case t.opts.source != nil:
		src = borrowedSource{t.opts.source}
	case t.config.CapturePath != "":
		src, err = fs.OpenCapture(t.config.CapturePath)
	default:
		src, err = serial.Open(serial.Config{
			PortName:    t.config.Port,
			BaudRate:    t.config.Baud,
			ReadTimeout: t.config.ReadTimeout,
		})
	}
	if err != nil {
		return nil, err
	}

	if t.config.RawCapture != "" {
		tee, err := fs.NewTeeSource(src, t.config.RawCapture)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		src = tee
	}
	t.logger.Info("source opened", ports.String("source", t.sourceName()))
	return src, nil
}

func (t *Tracer) sourceName() string {
	switch {
	case t.opts.source != nil:
		return "injected"
	case t.config.CapturePath != "":
		return t.config.CapturePath
	default:
		return t.config.Port
	}
}

func (t *Tracer) closeOutputs(source ports.ByteSource, sink ports.RecordSink) {
	if err := source.Close(); err != nil {
		t.logger.Warn("failed to close source", ports.Err(err))
	}
	if err := sink.Close(); err != nil {
		t.logger.Warn("failed to close sink", ports.Err(err))
	}
}

// borrowedSource keeps an injected source open when the run ends.
type borrowedSource struct {
	ports.ByteSource
}

func (borrowedSource) Close() error { return nil }

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
