package app

import (
	"time"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// Batcher groups records for forwarding.
// A batch is due when it reaches maxBatchBytes of message payload or when
// sendInterval has passed since the last successful send.
type Batcher struct {
	batch         *domain.Batch
	maxBatchBytes int
	sendInterval  time.Duration
	hardInterval  time.Duration
	lastSend      time.Time
}

// NewBatcher creates a new batcher with the given limits.
func NewBatcher(maxBatchBytes int, sendInterval, hardInterval time.Duration) *Batcher {
	return &Batcher{
		batch:         domain.NewBatch(),
		maxBatchBytes: maxBatchBytes,
		sendInterval:  sendInterval,
		hardInterval:  hardInterval,
		lastSend:      time.Now(),
	}
}

// Add appends a record. It returns true when the batch reached its size limit.
func (b *Batcher) Add(rec domain.Record, key string) bool {
	b.batch.Add(rec, key)
	return b.maxBatchBytes > 0 && b.batch.TotalBytes >= b.maxBatchBytes
}

// ShouldSend returns true if the pending batch is due by time.
func (b *Batcher) ShouldSend() bool {
	if b.batch.Empty() {
		return false
	}
	elapsed := time.Since(b.lastSend)
	return elapsed >= b.sendInterval || elapsed >= b.hardInterval
}

// Overdue returns true if the pending batch waited past the hard interval,
// which only happens while the collector keeps failing.
func (b *Batcher) Overdue() bool {
	if b.batch.Empty() || b.hardInterval <= 0 {
		return false
	}
	return time.Since(b.lastSend) >= b.hardInterval
}

// Batch returns the pending batch.
func (b *Batcher) Batch() *domain.Batch {
	return b.batch
}

// Reset clears the batch and restarts the send timer.
func (b *Batcher) Reset() {
	b.batch.Reset()
	b.lastSend = time.Now()
}

// HasPending returns true if records are waiting to be sent.
func (b *Batcher) HasPending() bool {
	return !b.batch.Empty()
}

// Oversized returns true if the pending batch holds more than factor times
// the size limit.
func (b *Batcher) Oversized(factor int) bool {
	return b.maxBatchBytes > 0 && b.batch.TotalBytes > factor*b.maxBatchBytes
}
