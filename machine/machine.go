// Package machine simulates the user-visible side of a paged machine: the
// processes, their registers, and memory accesses that go through the TLB.
package machine

import (
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/vmpager/mem/mem"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/mmu"
	"github.com/sarchlab/vmpager/mem/vm/pager"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// Machine runs one process at a time on a single paged memory.
type Machine struct {
	name string

	memory *mem.Storage
	frames *frametable.Table
	tlb    *tlb.Comp
	pager  *pager.Pager
	mmu    *mmu.Comp
	clock  *sim.TickCounter
	stats  *vm.Stats

	mu        sync.Mutex
	current   *Process
	processes map[vm.PID]*Process
}

// Name returns the name of the machine.
func (m *Machine) Name() string {
	return m.name
}

// Memory returns the physical memory.
func (m *Machine) Memory() *mem.Storage {
	return m.memory
}

// Frames returns the frame table.
func (m *Machine) Frames() *frametable.Table {
	return m.frames
}

// TLB returns the TLB.
func (m *Machine) TLB() *tlb.Comp {
	return m.tlb
}

// MMU returns the fault handler.
func (m *Machine) MMU() *mmu.Comp {
	return m.mmu
}

// Clock returns the logical clock, which ticks once per memory access.
func (m *Machine) Clock() *sim.TickCounter {
	return m.clock
}

// Stats returns the virtual memory counters.
func (m *Machine) Stats() *vm.Stats {
	return m.stats
}

// PageSize returns the number of bytes in a page.
func (m *Machine) PageSize() uint64 {
	return m.mmu.PageSize()
}

// AcceptHook registers a hook with all the virtual memory components.
func (m *Machine) AcceptHook(hook sim.Hook) {
	m.tlb.AcceptHook(hook)
	m.pager.AcceptHook(hook)
	m.mmu.AcceptHook(hook)
}

// NumHooks returns the number of hooks registered with the fault handler.
func (m *Machine) NumHooks() int {
	return m.mmu.NumHooks()
}

// PID returns the ID of the running process.
func (m *Machine) PID() vm.PID {
	return m.mustCurrent().pid
}

// Space returns the address space of the running process.
func (m *Machine) Space() vm.AddressSpace {
	return m.mustCurrent().space
}

// FaultAddress returns the content of the bad-address register of the
// running process.
func (m *Machine) FaultAddress() uint64 {
	return m.mustCurrent().Regs[BadVAddrReg]
}

func (m *Machine) mustCurrent() *Process {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		log.Panic("no process is running")
	}

	return m.current
}

// Current returns the running process, or nil if there is none.
func (m *Machine) Current() *Process {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

// Process returns the process with the given ID.
func (m *Machine) Process(pid vm.PID) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, found := m.processes[pid]

	return p, found
}

// AddProcess registers a process. The first process added starts running.
func (m *Machine) AddProcess(pid vm.PID, space vm.AddressSpace) (*Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.processes[pid]; found {
		return nil, ErrProcessExists
	}

	p := &Process{pid: pid, space: space}
	m.processes[pid] = p

	if m.current == nil {
		m.current = p
	}

	return p, nil
}

// Switch makes another process run. The TLB is flushed on the way.
func (m *Machine) Switch(pid vm.PID) error {
	m.mu.Lock()

	p, found := m.processes[pid]
	if !found {
		m.mu.Unlock()
		return ErrNoProcess
	}

	if p == m.current {
		m.mu.Unlock()
		return nil
	}

	m.current = p
	m.mu.Unlock()

	m.mmu.SwitchContext(m)

	return nil
}

// ReadMem reads size bytes of the running process starting at vAddr. The
// access may span several pages.
func (m *Machine) ReadMem(vAddr, size uint64) ([]byte, error) {
	data := make([]byte, size)

	err := m.walk(vAddr, size, false, func(pAddr uint64, from, to uint64) error {
		chunk, err := m.memory.Read(pAddr, to-from)
		copy(data[from:to], chunk)

		return err
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// WriteMem writes data into the memory of the running process starting at
// vAddr.
func (m *Machine) WriteMem(vAddr uint64, data []byte) error {
	return m.walk(vAddr, uint64(len(data)), true,
		func(pAddr uint64, from, to uint64) error {
			return m.memory.Write(pAddr, data[from:to])
		})
}

// walk translates the access page by page and calls do with the physical
// address of each piece and the byte range it covers.
func (m *Machine) walk(
	vAddr, size uint64,
	write bool,
	do func(pAddr uint64, from, to uint64) error,
) error {
	pageSize := m.PageSize()

	for done := uint64(0); done < size; {
		addr := vAddr + done
		inPage := addr % pageSize

		length := pageSize - inPage
		if length > size-done {
			length = size - done
		}

		frame, err := m.translate(addr, write)
		if err != nil {
			return err
		}

		pAddr := uint64(frame)*pageSize + inPage
		if err := do(pAddr, done, done+length); err != nil {
			return err
		}

		done += length
	}

	return nil
}

// translate resolves a virtual address of the running process to a frame,
// letting the MMU serve TLB misses. Each call is one tick of the clock.
func (m *Machine) translate(vAddr uint64, write bool) (int, error) {
	p := m.Current()
	if p == nil {
		return 0, ErrNothingRunning
	}

	if p.Killed() {
		return 0, ErrProcessKilled
	}

	m.clock.Advance(1)

	vpn := vm.VPN(vAddr / m.PageSize())

	frame, err := m.tlb.Translate(vpn, write)
	if errors.Is(err, tlb.ErrMiss) {
		m.mu.Lock()
		p.Regs[BadVAddrReg] = vAddr
		m.mu.Unlock()

		if err := m.mmu.HandleTLBMiss(); err != nil {
			return 0, m.raise(p, AddressErrorException, vAddr, err)
		}

		frame, err = m.tlb.Translate(vpn, write)
	}

	if errors.Is(err, tlb.ErrReadOnly) {
		return 0, m.raise(p, ReadOnlyException, vAddr, err)
	}

	if err != nil {
		log.Panicf("translating 0x%x right after a refill: %v", vAddr, err)
	}

	return frame, nil
}

func (m *Machine) raise(
	p *Process,
	t ExceptionType,
	vAddr uint64,
	cause error,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.Exception = &Exception{Type: t, VAddr: vAddr, Err: cause}

	return p.Exception
}
