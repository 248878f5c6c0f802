package tracing

import "github.com/sarchlab/vmpager/datarecording"

// DBTracer stores records in a table of a DataRecorder.
type DBTracer struct {
	tableName string
	recorder  datarecording.DataRecorder
}

// NewDBTracer creates a DBTracer that writes into the vm_event table of the
// recorder.
func NewDBTracer(recorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		tableName: "vm_event",
		recorder:  recorder,
	}

	recorder.CreateTable(t.tableName, Record{})

	return t
}

// TableName returns the name of the table records go into.
func (t *DBTracer) TableName() string {
	return t.tableName
}

// Trace buffers a record in the recorder.
func (t *DBTracer) Trace(r Record) {
	t.recorder.InsertData(t.tableName, r)
}
