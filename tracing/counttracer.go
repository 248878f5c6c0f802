package tracing

import "sync"

// CountTracer counts records by kind.
type CountTracer struct {
	lock   sync.Mutex
	kinds  []string
	counts map[string]uint64
}

// NewCountTracer creates a new CountTracer
func NewCountTracer() *CountTracer {
	return &CountTracer{
		counts: make(map[string]uint64),
	}
}

// Trace counts the record.
func (t *CountTracer) Trace(r Record) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.counts[r.Kind]; !ok {
		t.kinds = append(t.kinds, r.Kind)
	}

	t.counts[r.Kind]++
}

// GetKinds returns the kinds seen, in the order they were first seen.
func (t *CountTracer) GetKinds() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.kinds...)
}

// GetCount returns how many records of a kind have been seen.
func (t *CountTracer) GetCount(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[kind]
}
