// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package errmon

// DefaultCapacity is the number of entries the ledger retains.
const DefaultCapacity = 50

// ledger is a fixed-capacity ring buffer; the oldest entry is evicted first.
// Not safe for concurrent use; Monitor guards it.
type ledger struct {
	buf   []TrackedError
	start int
	n     int
}

func newLedger(capacity int) *ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ledger{buf: make([]TrackedError, capacity)}
}

func (l *ledger) add(e TrackedError) {
	if l.n < len(l.buf) {
		l.buf[(l.start+l.n)%len(l.buf)] = e
		l.n++
		return
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % len(l.buf)
}

// find returns a pointer into the ring for in-place updates.
func (l *ledger) find(id string) *TrackedError {
	for i := 0; i < l.n; i++ {
		e := &l.buf[(l.start+i)%len(l.buf)]
		if e.ID == id {
			return e
		}
	}
	return nil
}

// list returns the entries oldest first.
func (l *ledger) list() []TrackedError {
	out := make([]TrackedError, 0, l.n)
	for i := 0; i < l.n; i++ {
		out = append(out, l.buf[(l.start+i)%len(l.buf)])
	}
	return out
}

func (l *ledger) len() int { return l.n }

func (l *ledger) clear() {
	for i := range l.buf {
		l.buf[i] = TrackedError{}
	}
	l.start, l.n = 0, 0
}
