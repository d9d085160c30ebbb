package domain

// Batch is an aggregate of records ready to be forwarded together.
type Batch struct {
	// Records holds the records in arrival order.
	Records []Record

	// Keys holds the storage key of each record; same length as Records.
	Keys []string

	// TotalBytes is the sum of all message lengths.
	TotalBytes int
}

// NewBatch creates a new empty batch.
func NewBatch() *Batch {
	return &Batch{
		Records: make([]Record, 0),
		Keys:    make([]string, 0),
	}
}

// Add appends a record and its storage key to the batch.
func (b *Batch) Add(rec Record, key string) {
	b.Records = append(b.Records, rec)
	b.Keys = append(b.Keys, key)
	b.TotalBytes += len(rec.Message)
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.Records = b.Records[:0]
	b.Keys = b.Keys[:0]
	b.TotalBytes = 0
}
