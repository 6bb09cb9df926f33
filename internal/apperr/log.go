package apperr

import "sync"

// DefaultLogCapacity bounds the in-memory error log.
const DefaultLogCapacity = 100

// Log is a bounded FIFO error log. Once the capacity is exceeded the
// oldest entries are evicted first. The log is the only mutable state the
// error layer keeps between calls.
type Log struct {
	mu      sync.Mutex
	cap     int
	entries []*AppError
}

// NewLog returns a log holding at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{cap: capacity}
}

// Append stores e and returns any entries evicted to stay within the
// capacity, oldest first.
func (l *Log) Append(e *AppError) []*AppError {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if len(l.entries) <= l.cap {
		return nil
	}
	n := len(l.entries) - l.cap
	evicted := make([]*AppError, n)
	copy(evicted, l.entries[:n])
	l.entries = append(l.entries[:0], l.entries[n:]...)
	return evicted
}

// Entries returns a snapshot of the log in insertion order.
func (l *Log) Entries() []*AppError {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*AppError, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the current number of logged errors.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
