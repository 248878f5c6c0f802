package machine

import "github.com/sarchlab/vmpager/mem/vm"

// Register indices
const (
	PCReg = iota
	NextPCReg
	StackReg
	RetAddrReg
	BadVAddrReg
	NumTotalRegs
)

// A Process is a user program known to the machine.
type Process struct {
	pid   vm.PID
	space vm.AddressSpace

	// Regs holds the saved registers of the process while it is not running.
	Regs [NumTotalRegs]uint64

	// Exception is the exception that killed the process, if any.
	Exception *Exception
}

// PID returns the ID of the process.
func (p *Process) PID() vm.PID {
	return p.pid
}

// Space returns the address space of the process.
func (p *Process) Space() vm.AddressSpace {
	return p.space
}

// Killed checks if the process has been killed by an exception.
func (p *Process) Killed() bool {
	return p.Exception != nil
}
