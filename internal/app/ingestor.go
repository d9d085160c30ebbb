package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/internal/errstats"
	"github.com/dotbot-tools/rxtrace/internal/experiment"
	"github.com/dotbot-tools/rxtrace/internal/hdlc"
	"github.com/dotbot-tools/rxtrace/internal/ports"
	"github.com/dotbot-tools/rxtrace/internal/trailer"
)

// maxPendingFactor bounds the records kept for a failing collector, in
// multiples of MaxBatchBytes.
const maxPendingFactor = 64

// flushTimeout bounds the final forward and status save after the run context ended.
const flushTimeout = 5 * time.Second

// IngestorConfig contains configuration for the ingestion loop.
type IngestorConfig struct {
	// PollInterval is the pause after a read that returned no data.
	PollInterval time.Duration

	// ReadSize is the size of the read buffer.
	ReadSize int

	// CheckFCS enables the frame check sequence in the deframer.
	CheckFCS bool

	// MaxFrameSize bounds the deframed body; 0 means hdlc.DefaultMaxFrameSize.
	MaxFrameSize int

	// CaptureName is the storage key of records without a config-state index.
	CaptureName string

	// Reference is the payload the error accumulators compare against.
	Reference []byte

	// Once ends the run at the end of the source instead of polling.
	Once bool

	// StatusInterval is how often the session counters are saved.
	StatusInterval time.Duration

	// Forwarding
	SendInterval  time.Duration
	HardInterval  time.Duration
	MaxBatchBytes int
	Metadata      ports.ForwardMetadata
}

// RecordEmitter is notified for every stored record and every skipped frame.
type RecordEmitter interface {
	OnRecord(key string, rec domain.Record)
	OnSkip(err error, frameLen int)
}

// ForwardEmitter is notified of forwarding results.
type ForwardEmitter interface {
	OnForwardSuccess(records, bytes int, duration time.Duration)
	OnForwardError(err error, records int, retryable bool)
}

// Ingestor runs the synchronous pipeline
// source -> deframer -> trailer decoder -> correlator -> sink, accumulators, forwarder.
//
// Run must be called from a single goroutine. Session and Stats may be
// called concurrently with Run.
type Ingestor struct {
	config     IngestorConfig
	source     ports.ByteSource
	deframer   *hdlc.Deframer
	decoder    *trailer.Decoder
	correlator *experiment.Correlator
	sink       ports.RecordSink
	forwarder  ports.RecordForwarder
	sessions   ports.SessionRepository
	logger     ports.Logger
	records    RecordEmitter
	forwards   ForwardEmitter

	batcher *Batcher
	backoff *backoff
	fatal   error

	mu      sync.Mutex
	session domain.Session
	stats   map[string]*errstats.Accumulator
}

// IngestorDeps bundles the collaborators of an Ingestor. Source, Decoder,
// Sink and Logger are required; the rest may be nil.
type IngestorDeps struct {
	Source     ports.ByteSource
	Decoder    *trailer.Decoder
	Correlator *experiment.Correlator
	Sink       ports.RecordSink
	Forwarder  ports.RecordForwarder
	Sessions   ports.SessionRepository
	Logger     ports.Logger
	Records    RecordEmitter
	Forwards   ForwardEmitter
}

// NewIngestor creates an ingestor. A correlator is required for trailer
// versions that carry a config-state index.
func NewIngestor(config IngestorConfig, deps IngestorDeps) (*Ingestor, error) {
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: no byte source", domain.ErrInvalidConfig)
	case deps.Decoder == nil:
		return nil, fmt.Errorf("%w: no trailer decoder", domain.ErrInvalidConfig)
	case deps.Sink == nil:
		return nil, fmt.Errorf("%w: no record sink", domain.ErrInvalidConfig)
	case deps.Logger == nil:
		return nil, fmt.Errorf("%w: no logger", domain.ErrInvalidConfig)
	case deps.Decoder.Version().HasConfigState() && deps.Correlator == nil:
		return nil, fmt.Errorf("%w: trailer %s requires an experiment table",
			domain.ErrInvalidConfig, deps.Decoder.Version())
	}
	if config.ReadSize <= 0 {
		config.ReadSize = 4096
	}
	if config.Reference == nil {
		config.Reference = errstats.DefaultReference()
	}

	in := &Ingestor{
		config:     config,
		source:     deps.Source,
		decoder:    deps.Decoder,
		correlator: deps.Correlator,
		sink:       deps.Sink,
		forwarder:  deps.Forwarder,
		sessions:   deps.Sessions,
		logger:     deps.Logger,
		records:    deps.Records,
		forwards:   deps.Forwards,
		batcher:    NewBatcher(config.MaxBatchBytes, config.SendInterval, config.HardInterval),
		backoff:    newBackoff(DefaultBackoffInitial, DefaultBackoffMax),
		stats:      make(map[string]*errstats.Accumulator),
	}
	in.deframer = hdlc.NewDeframer(hdlc.Options{
		CheckFCS:     config.CheckFCS,
		MaxFrameSize: config.MaxFrameSize,
		OnDrop:       in.onDrop,
	})
	return in, nil
}

// Run reads the source until it is exhausted (Once), the context is
// canceled, the transport fails, or a fatal record arrives.
// It returns nil at the end of a Once run, ctx.Err() on cancellation, and
// the cause otherwise.
func (in *Ingestor) Run(ctx context.Context) error {
	now := time.Now()
	in.mu.Lock()
	in.session = domain.Session{StartedAt: now, UpdatedAt: now}
	in.mu.Unlock()

	buf := make([]byte, in.config.ReadSize)
	lastSave := now

	for {
		select {
		case <-ctx.Done():
			return in.finish(ctx, ctx.Err())
		default:
		}

		n, err := in.source.Read(buf)
		if n > 0 {
			in.mu.Lock()
			in.session.BytesRead += uint64(n)
			in.mu.Unlock()

			in.deframer.Feed(buf[:n], func(f domain.Frame) { in.handleFrame(ctx, f) })
			if in.fatal != nil {
				return in.finish(ctx, in.fatal)
			}
		}

		if in.forwarder != nil && in.batcher.ShouldSend() {
			in.tryForward(ctx)
		}
		if in.config.StatusInterval > 0 && time.Since(lastSave) >= in.config.StatusInterval {
			in.saveSession(ctx)
			lastSave = time.Now()
		}

		switch {
		case errors.Is(err, io.EOF):
			if in.config.Once {
				return in.finish(ctx, nil)
			}
		case err != nil:
			in.logger.Error("read error", ports.Err(err))
			return in.finish(ctx, fmt.Errorf("read source: %w", err))
		case n > 0:
			continue
		}

		// idle source: nothing arrived within the transport timeout
		select {
		case <-ctx.Done():
			return in.finish(ctx, ctx.Err())
		case <-time.After(in.config.PollInterval):
		}
	}
}

func (in *Ingestor) handleFrame(ctx context.Context, f domain.Frame) {
	if in.fatal != nil {
		return
	}
	in.mu.Lock()
	in.session.Frames++
	in.mu.Unlock()

	rec, err := in.decoder.Decode(f)
	if err != nil {
		in.skip(err, len(f))
		return
	}

	key := in.config.CaptureName
	if in.correlator != nil && rec.HasConfigState {
		m, err := in.correlator.Correlate(rec)
		if err != nil {
			if domain.IsFatal(err) {
				in.logger.Error("configuration sequence lost", ports.Err(err),
					ports.ConfigState(rec.ConfigState))
				in.fatal = err
				return
			}
			in.skip(err, len(f))
			return
		}
		key = m.Key
	}

	if err := in.sink.Write(ctx, key, rec); err != nil {
		in.logger.Error("store record failed", ports.Err(err), ports.StorageKey(key))
		in.fatal = fmt.Errorf("store record: %w", err)
		return
	}

	in.mu.Lock()
	in.session.RecordStored(rec, key)
	acc, ok := in.stats[key]
	if !ok {
		acc = errstats.NewAccumulator(in.config.Reference)
		in.stats[key] = acc
	}
	acc.IngestRecord(rec)
	in.mu.Unlock()

	if in.records != nil {
		in.records.OnRecord(key, rec)
	}

	if in.forwarder != nil && in.batcher.Add(rec, key) {
		in.tryForward(ctx)
	}
}

func (in *Ingestor) skip(err error, frameLen int) {
	reason := "decode"
	in.mu.Lock()
	if errors.Is(err, domain.ErrUnknownConfig) {
		in.session.UnknownConfigs++
		reason = "unknown_config"
	} else {
		in.session.DecodeFailures++
	}
	in.mu.Unlock()

	in.logger.Warn("skipping record",
		ports.Reason(reason),
		ports.Int("frame_len", frameLen),
		ports.Err(err),
	)
	if in.records != nil {
		in.records.OnSkip(err, frameLen)
	}
}

func (in *Ingestor) onDrop(reason hdlc.DropReason, size int) {
	in.mu.Lock()
	in.session.FramingDrops++
	in.mu.Unlock()

	in.logger.Debug("framing drop",
		ports.Reason(reason.String()),
		ports.Int("size", size),
	)
	if in.records != nil {
		in.records.OnSkip(fmt.Errorf("%w: %s", domain.ErrFramingDrop, reason), size)
	}
}

// tryForward sends the pending batch unless a previous failure is still
// backing off.
func (in *Ingestor) tryForward(ctx context.Context) {
	if !in.batcher.HasPending() || !in.backoff.Ready(time.Now()) {
		return
	}
	batch := in.batcher.Batch()

	start := time.Now()
	err := in.forwarder.Forward(ctx, batch, in.config.Metadata)
	duration := time.Since(start)

	if err != nil {
		wait := in.backoff.Fail(time.Now())
		log := in.logger.Warn
		if in.batcher.Overdue() {
			log = in.logger.Error
		}
		log("forward failed",
			ports.Err(err),
			ports.Int("records", batch.Size()),
			ports.Int("bytes", batch.TotalBytes),
			ports.Duration("retry_in", wait),
		)
		if in.forwards != nil {
			in.forwards.OnForwardError(err, batch.Size(), true)
		}
		if in.batcher.Oversized(maxPendingFactor) {
			in.logger.Error("dropping unforwarded records", ports.Int("records", batch.Size()))
			in.batcher.Reset()
		}
		return
	}

	in.logger.Debug("forwarded batch",
		ports.Int("records", batch.Size()),
		ports.Int("bytes", batch.TotalBytes),
		ports.Duration("duration", duration),
	)
	if in.forwards != nil {
		in.forwards.OnForwardSuccess(batch.Size(), batch.TotalBytes, duration)
	}

	in.mu.Lock()
	in.session.Forwarded += uint64(batch.Size())
	in.mu.Unlock()

	in.batcher.Reset()
	in.backoff.Reset()
}

// finish flushes pending records, saves the session and logs the per-key
// packet error rates. It returns cause.
func (in *Ingestor) finish(ctx context.Context, cause error) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	if in.forwarder != nil && in.batcher.HasPending() {
		in.backoff.Reset()
		in.tryForward(fctx)
	}

	if cause != nil && !errors.Is(cause, context.Canceled) {
		in.mu.Lock()
		in.session.Fatal = cause.Error()
		in.mu.Unlock()
	}
	in.saveSession(fctx)

	for _, s := range in.Stats() {
		in.logger.Info("packet error rate",
			ports.StorageKey(s.Key),
			ports.Uint64("packets", s.TotalPackets),
			ports.Uint64("crc_errors", s.CRCErrors),
			ports.Float64("per", s.PacketErrorRate),
		)
	}

	s := in.Session()
	in.logger.Info("ingestion finished",
		ports.Uint64("bytes", s.BytesRead),
		ports.Uint64("frames", s.Frames),
		ports.Uint64("records", s.Records),
		ports.Uint64("framing_drops", s.FramingDrops),
		ports.Uint64("skipped", s.Skipped()),
	)
	return cause
}

func (in *Ingestor) saveSession(ctx context.Context) {
	if in.sessions == nil {
		return
	}
	s := in.Session()
	s.UpdatedAt = time.Now()
	if err := in.sessions.Save(ctx, s); err != nil {
		in.logger.Error("failed to save status", ports.Err(err))
	}
}

// Session returns a snapshot of the run counters.
func (in *Ingestor) Session() domain.Session {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.session
}

// Stats returns the error summary of every storage key seen so far,
// sorted by key.
func (in *Ingestor) Stats() []errstats.Summary {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]errstats.Summary, 0, len(in.stats))
	for key, acc := range in.stats {
		s, err := acc.Summarize(key)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
