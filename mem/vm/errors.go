package vm

import (
	"errors"
	"fmt"
)

// ErrBadLastPageLength is the cause of a ConsistencyFault raised when a
// mapping claims more bytes in its last page than a page holds, or none.
var ErrBadLastPageLength = errors.New("mmap last page length out of range")

// An AddressError reports an access to a page that is neither inside the
// address space nor covered by a memory-mapped range. It is fatal for the
// faulting process and is never retried.
type AddressError struct {
	PID   PID
	VAddr uint64
	VPN   VPN
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address error: pid %d accessed 0x%x (page %d)",
		e.PID, e.VAddr, e.VPN)
}

// A ConsistencyFault reports that the backing store transferred a different
// number of bytes than requested, or failed outright. The virtual memory
// state can no longer be trusted, so it is raised with panic.
type ConsistencyFault struct {
	Op       string
	PID      PID
	VPN      VPN
	Frame    int
	Offset   int64
	Expected int
	Actual   int
	Err      error
}

func (f *ConsistencyFault) Error() string {
	msg := fmt.Sprintf(
		"backing store %s of pid %d page %d (frame %d) at offset %d "+
			"transferred %d bytes, expected %d",
		f.Op, f.PID, f.VPN, f.Frame, f.Offset, f.Actual, f.Expected)

	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}

	return msg
}

// Unwrap returns the I/O error, if any.
func (f *ConsistencyFault) Unwrap() error {
	return f.Err
}
