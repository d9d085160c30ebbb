package rxtrace

import (
	"time"

	"github.com/dotbot-tools/rxtrace/internal/app"
)

// State is the lifecycle state of a Tracer.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// RecordEvent is emitted for every stored record.
type RecordEvent struct {
	Key    string
	Record Record
}

// SkipEvent is emitted for every frame that did not produce a record.
type SkipEvent struct {
	Error    error
	FrameLen int
}

// ForwardSuccessEvent is emitted after a batch was accepted by the collector.
type ForwardSuccessEvent struct {
	RecordCount int
	BytesSent   int
	Duration    time.Duration
}

// ForwardErrorEvent is emitted after a failed forward.
type ForwardErrorEvent struct {
	Error       error
	RecordCount int
	Retryable   bool
}

// EventHandler receives Tracer events. Callbacks run synchronously on the
// ingestion goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnRecord(RecordEvent)
	OnSkip(SkipEvent)
	OnForwardSuccess(ForwardSuccessEvent)
	OnForwardError(ForwardErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
// Embed it to handle only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnRecord(RecordEvent)                 {}
func (BaseEventHandler) OnSkip(SkipEvent)                     {}
func (BaseEventHandler) OnForwardSuccess(ForwardSuccessEvent) {}
func (BaseEventHandler) OnForwardError(ForwardErrorEvent)     {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnRecord(key string, rec Record) {
	if e.handler == nil {
		return
	}
	e.handler.OnRecord(RecordEvent{Key: key, Record: rec})
}

func (e *eventEmitterWrapper) OnSkip(err error, frameLen int) {
	if e.handler == nil {
		return
	}
	e.handler.OnSkip(SkipEvent{Error: err, FrameLen: frameLen})
}

func (e *eventEmitterWrapper) OnForwardSuccess(records, bytes int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnForwardSuccess(ForwardSuccessEvent{
		RecordCount: records,
		BytesSent:   bytes,
		Duration:    duration,
	})
}

func (e *eventEmitterWrapper) OnForwardError(err error, records int, retryable bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnForwardError(ForwardErrorEvent{
		Error:       err,
		RecordCount: records,
		Retryable:   retryable,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
