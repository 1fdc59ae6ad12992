// Package coalesce batches many small output writes into threshold-sized
// frames so a fast-writing backend doesn't produce thousands of 1-byte
// notifications.
package coalesce

// Coalescer accumulates pushed bytes and releases them in fixed-size
// batches, with a final flush for whatever remains.
type Coalescer struct {
	pending  []byte
	maxBatch int
}

// New creates a Coalescer with the given max batch size in bytes.
func New(maxBatch int) *Coalescer {
	return &Coalescer{maxBatch: maxBatch}
}

// Push appends bytes to the pending buffer.
func (c *Coalescer) Push(p []byte) {
	c.pending = append(c.pending, p...)
}

// TryCoalesce returns a batch of exactly maxBatch bytes if at least that
// many are pending, leaving the remainder for the next call. Returns
// (nil, false) otherwise.
func (c *Coalescer) TryCoalesce() ([]byte, bool) {
	if len(c.pending) < c.maxBatch {
		return nil, false
	}
	batch := make([]byte, c.maxBatch)
	copy(batch, c.pending[:c.maxBatch])
	remainder := make([]byte, len(c.pending)-c.maxBatch)
	copy(remainder, c.pending[c.maxBatch:])
	c.pending = remainder
	return batch, true
}

// Flush returns all pending bytes if non-empty, else (nil, false).
func (c *Coalescer) Flush() ([]byte, bool) {
	if len(c.pending) == 0 {
		return nil, false
	}
	out := c.pending
	c.pending = nil
	return out, true
}

// PendingLen returns the number of bytes currently pending.
func (c *Coalescer) PendingLen() int {
	return len(c.pending)
}
