package app

import (
	"math/rand"
	"time"
)

// Default forwarding retry delays.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

// backoff computes exponentially growing retry delays with ±20% jitter.
// The ingestion loop must keep draining the serial port while the
// collector is unreachable, so backoff hands out deadlines instead of sleeping.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	until   time.Time
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Fail schedules the next attempt after the current delay and doubles it.
func (b *backoff) Fail(now time.Time) time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(float64(b.current) + jitter)
	b.until = now.Add(wait)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return wait
}

// Ready reports whether the next attempt may run at now.
func (b *backoff) Ready(now time.Time) bool {
	return !now.Before(b.until)
}

// Reset restores the initial delay and clears the deadline.
func (b *backoff) Reset() {
	b.current = b.initial
	b.until = time.Time{}
}

// Current returns the delay the next failure will wait, before jitter.
func (b *backoff) Current() time.Duration {
	return b.current
}
