package machine

import (
	"errors"
	"fmt"
)

// ExceptionType enumerates the exceptions a memory access can raise.
type ExceptionType int

// Exception types
const (
	AddressErrorException ExceptionType = iota
	ReadOnlyException
)

func (t ExceptionType) String() string {
	switch t {
	case AddressErrorException:
		return "AddressErrorException"
	case ReadOnlyException:
		return "ReadOnlyException"
	default:
		return fmt.Sprintf("ExceptionType(%d)", int(t))
	}
}

// An Exception is delivered to a process whose memory access cannot be
// completed. The process is killed.
type Exception struct {
	Type  ExceptionType
	VAddr uint64
	Err   error
}

func (e *Exception) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at 0x%x", e.Type, e.VAddr)
	}

	return fmt.Sprintf("%s at 0x%x: %v", e.Type, e.VAddr, e.Err)
}

// Unwrap returns the cause of the exception.
func (e *Exception) Unwrap() error {
	return e.Err
}

// Errors returned by the machine.
var (
	ErrNoProcess      = errors.New("no such process")
	ErrProcessExists  = errors.New("process already exists")
	ErrProcessKilled  = errors.New("process has been killed")
	ErrNothingRunning = errors.New("no process is running")
)
