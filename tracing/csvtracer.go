package tracing

import (
	"fmt"
	"io"
	"sync"
)

// CSVTracer writes records as comma-separated lines.
type CSVTracer struct {
	lock       sync.Mutex
	writer     io.Writer
	records    []Record
	bufferSize int
}

// NewCSVTracer creates a CSVTracer and writes the header line.
func NewCSVTracer(w io.Writer) *CSVTracer {
	t := &CSVTracer{
		writer:     w,
		bufferSize: 1000,
	}

	_, err := fmt.Fprintln(w, "ID,Time,Domain,Kind,PID,VPN,Frame,Slot,Dirty,Mmap")
	if err != nil {
		panic(err)
	}

	return t
}

// Trace buffers a record.
func (t *CSVTracer) Trace(r Record) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.records = append(t.records, r)
	if len(t.records) >= t.bufferSize {
		t.flush()
	}
}

// Flush writes the buffered records.
func (t *CSVTracer) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()
}

func (t *CSVTracer) flush() {
	for _, r := range t.records {
		_, err := fmt.Fprintf(t.writer, "%s,%d,%s,%s,%d,%d,%d,%d,%t,%t\n",
			r.ID, r.Time, r.Domain, r.Kind,
			r.PID, r.VPN, r.Frame, r.Slot, r.Dirty, r.Mmap)
		if err != nil {
			panic(err)
		}
	}

	t.records = nil
}
