package hdlc

import (
	"encoding/binary"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// State is the position of the Deframer in the current frame.
type State int

const (
	// StateIdle scans for an opening flag.
	StateIdle State = iota
	// StateReceiving accumulates body bytes.
	StateReceiving
	// StateReady holds a complete frame; the next byte starts a new scan.
	StateReady
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReceiving:
		return "Receiving"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// DropReason says why a frame was discarded.
type DropReason int

const (
	DropBadEscape DropReason = iota
	DropAbort
	DropOversize
	DropShort
	DropBadFCS
)

func (r DropReason) String() string {
	switch r {
	case DropBadEscape:
		return "bad escape"
	case DropAbort:
		return "flag after escape"
	case DropOversize:
		return "oversized frame"
	case DropShort:
		return "frame shorter than FCS"
	case DropBadFCS:
		return "FCS mismatch"
	default:
		return "unknown"
	}
}

// Options configures a Deframer.
type Options struct {
	// CheckFCS strips and verifies a trailing FCS-16 on every frame.
	CheckFCS bool

	// MaxFrameSize bounds the de-escaped body. Zero means DefaultMaxFrameSize.
	MaxFrameSize int

	// OnDrop is called for every discarded frame. Optional.
	OnDrop func(reason DropReason, size int)
}

// Deframer is a byte-at-a-time HDLC receiver.
// It is not safe for concurrent use.
type Deframer struct {
	opts    Options
	state   State
	escaped bool
	buf     []byte
	frame   domain.Frame
	drops   uint64
}

// NewDeframer creates a Deframer in StateIdle.
func NewDeframer(opts Options) *Deframer {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = DefaultMaxFrameSize
	}
	return &Deframer{
		opts: opts,
		buf:  make([]byte, 0, opts.MaxFrameSize),
	}
}

// State returns the current state.
func (d *Deframer) State() State {
	return d.state
}

// Frame returns the frame completed by the last HandleByte call.
// It is only valid while State() is StateReady; the slice belongs to the caller.
func (d *Deframer) Frame() domain.Frame {
	if d.state != StateReady {
		return nil
	}
	return d.frame
}

// Drops returns the number of frames discarded so far.
func (d *Deframer) Drops() uint64 {
	return d.drops
}

// HandleByte advances the state machine by one input byte and returns the
// resulting state. When it returns StateReady, Frame holds the completed frame.
func (d *Deframer) HandleByte(b byte) State {
	if d.state == StateReady {
		d.state = StateIdle
		d.frame = nil
	}

	switch d.state {
	case StateIdle:
		if b == Flag {
			d.start()
		}

	case StateReceiving:
		d.receive(b)
	}
	return d.state
}

// Feed runs HandleByte over p and calls fn for every completed frame.
func (d *Deframer) Feed(p []byte, fn func(domain.Frame)) {
	for _, b := range p {
		if d.HandleByte(b) == StateReady {
			fn(d.frame)
		}
	}
}

// Reset abandons any partial frame and returns to StateIdle.
func (d *Deframer) Reset() {
	d.state = StateIdle
	d.escaped = false
	d.buf = d.buf[:0]
	d.frame = nil
}

func (d *Deframer) start() {
	d.state = StateReceiving
	d.escaped = false
	d.buf = d.buf[:0]
}

func (d *Deframer) receive(b byte) {
	switch {
	case b == Flag && d.escaped:
		d.drop(DropAbort)
		d.start()

	case b == Flag:
		d.close()

	case b == Esc && d.escaped:
		d.drop(DropBadEscape)

	case b == Esc:
		d.escaped = true

	default:
		if d.escaped {
			b ^= EscXor
			d.escaped = false
		}
		if len(d.buf) >= d.opts.MaxFrameSize {
			d.drop(DropOversize)
			return
		}
		d.buf = append(d.buf, b)
	}
}

func (d *Deframer) close() {
	if len(d.buf) == 0 {
		// Flag right after flag: nothing to deliver. Back in Idle the same
		// flag opens the next frame, so repeated flags collapse into one.
		d.start()
		return
	}

	body := d.buf
	if d.opts.CheckFCS {
		if len(body) <= FCSSize {
			d.drop(DropShort)
			return
		}
		n := len(body) - FCSSize
		if binary.LittleEndian.Uint16(body[n:]) != FCS(body[:n]) {
			d.drop(DropBadFCS)
			return
		}
		body = body[:n]
	}

	d.frame = append(domain.Frame(nil), body...)
	d.buf = d.buf[:0]
	d.state = StateReady
}

func (d *Deframer) drop(reason DropReason) {
	d.drops++
	if d.opts.OnDrop != nil {
		d.opts.OnDrop(reason, len(d.buf))
	}
	d.Reset()
}
