// Package mmu serves the translation faults of the simulated machine. It
// refills the TLB from the frame table, brings missing pages into memory, and
// keeps memory-mapped files in sync with the pages that cache them.
package mmu

import (
	"errors"
	"math"
	"sync"

	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/pager"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// Errors returned by Mmap and Munmap.
var (
	ErrEmptyMapping = errors.New("mapping has no bytes")
	ErrNotMapped    = errors.New("no mapping begins at the page")
)

// Snapshot is a copy of the frame table and the TLB.
type Snapshot struct {
	Frames []frametable.Entry
	TLB    []tlb.Entry
}

// Comp is the fault handler of a machine. All its operations are mutually
// exclusive; a fault is served to completion before the next one starts.
type Comp struct {
	*sim.HookableBase

	mu           sync.Mutex
	name         string
	pageSize     uint64
	ctx          vm.ExecContext
	frames       *frametable.Table
	tlb          *tlb.Comp
	pager        *pager.Pager
	victimFinder frametable.VictimFinder
	clock        sim.Clock
	stats        *vm.Stats
}

// Name returns the name of the MMU.
func (c *Comp) Name() string {
	return c.name
}

// PageSize returns the number of bytes in a page.
func (c *Comp) PageSize() uint64 {
	return c.pageSize
}

// Stats returns the counters the MMU updates.
func (c *Comp) Stats() *vm.Stats {
	return c.stats
}

// Context returns the execution context of the running process.
func (c *Comp) Context() vm.ExecContext {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ctx
}

// Snapshot copies the frame table and the TLB.
func (c *Comp) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

func (c *Comp) snapshot() Snapshot {
	return Snapshot{
		Frames: c.frames.Entries(),
		TLB:    c.tlb.Entries(),
	}
}

// HandleTLBMiss serves a TLB miss of the running process at the address
// latched in its bad-address register.
func (c *Comp) HandleTLBMiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.handleMiss(c.ctx.FaultAddress())
}

// HandleTLBMissAt serves a TLB miss of the running process at the given
// virtual address.
//
// If the page is resident, the TLB is refilled from the frame table. If it is
// not, the page is brought in first, evicting the least recently used frame.
// A page that is outside the address space and not memory-mapped is an
// address error, returned as *vm.AddressError. The TLB is not changed in that
// case.
func (c *Comp) HandleTLBMissAt(vAddr uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.handleMiss(vAddr)
}

func (c *Comp) handleMiss(vAddr uint64) error {
	pid := c.ctx.PID()
	space := c.ctx.Space()
	vpn := vm.VPN(vAddr / c.pageSize)

	if frame, found := c.frames.Lookup(pid, vpn); found {
		slot := c.tlb.Insert(vpn, frame)
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    vm.HookPosTLBRefill,
			Now:    c.clock.Now(),
			Item: vm.Event{
				PID:   pid,
				VPN:   vpn,
				Frame: frame,
				Slot:  slot,
			},
		})

		return nil
	}

	if !c.isAccessible(space, vpn) {
		return c.addressError(pid, vAddr, vpn)
	}

	frame := c.pageFault(pid, vpn, space)
	c.tlb.Insert(vpn, frame)

	return nil
}

func (c *Comp) isAccessible(space vm.AddressSpace, vpn vm.VPN) bool {
	if uint64(vpn) < space.NumPages() {
		return true
	}

	_, mapped := space.Mappings().Find(vpn)

	return mapped
}

func (c *Comp) addressError(pid vm.PID, vAddr uint64, vpn vm.VPN) error {
	c.stats.AddressErrors.Add(1)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    vm.HookPosAddressError,
		Now:    c.clock.Now(),
		Item: vm.Event{
			PID:   pid,
			VPN:   vpn,
			Frame: -1,
			Slot:  frametable.NoTLBSlot,
		},
	})

	return &vm.AddressError{PID: pid, VAddr: vAddr, VPN: vpn}
}

// PageFault brings a page of the running process into memory and returns the
// frame that now holds it. The page must not be resident already. The TLB is
// not refilled.
func (c *Comp) PageFault(vpn vm.VPN) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pageFault(c.ctx.PID(), vpn, c.ctx.Space())
}

func (c *Comp) pageFault(pid vm.PID, vpn vm.VPN, space vm.AddressSpace) int {
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    vm.HookPosPageFault,
		Now:    c.clock.Now(),
		Item: vm.Event{
			PID:   pid,
			VPN:   vpn,
			Frame: -1,
			Slot:  frametable.NoTLBSlot,
		},
		Detail: c.snapshot(),
	})

	c.stats.PageFaults.Add(1)

	frame := c.victimFinder.FindVictim(c.frames)
	c.pager.PageOut(frame)
	c.pager.PageIn(pid, vpn, frame, space)
	c.frames.Load(frame, pid, vpn, space, c.clock.Now())

	return frame
}

// FlushMmapRange pages out every resident page of the running process from
// begin to end, inclusive. Modified pages are written back to where they
// belong.
func (c *Comp) FlushMmapRange(begin, end vm.VPN) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flushRange(begin, end)
}

func (c *Comp) flushRange(begin, end vm.VPN) {
	pid := c.ctx.PID()

	for vpn := begin; vpn <= end; vpn++ {
		if frame, found := c.frames.Lookup(pid, vpn); found {
			c.pager.PageOut(frame)
		}

		if vpn == math.MaxUint64 {
			break
		}
	}
}

// SwitchContext makes another process current. The TLB is flushed first, so
// that it only ever holds translations of the running process.
func (c *Comp) SwitchContext(ctx vm.ExecContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tlb.Flush()
	c.ctx = ctx
}

// Mmap maps length bytes of a file into the address space of the running
// process, right after the last page in use. It returns the first page of the
// mapping.
func (c *Comp) Mmap(file vm.BackingStore, length uint64) (vm.VPN, error) {
	if length == 0 {
		return 0, ErrEmptyMapping
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	space := c.ctx.Space()
	numPages := (length + c.pageSize - 1) / c.pageSize
	begin := space.Mappings().NextFreePage(vm.VPN(space.NumPages()))

	space.Mappings().Add(&vm.MmapEntry{
		BeginPage:      begin,
		EndPage:        begin + vm.VPN(numPages) - 1,
		LastPageLength: length - (numPages-1)*c.pageSize,
		File:           file,
	})

	return begin, nil
}

// Munmap writes back and drops the mapping that begins at the given page.
func (c *Comp) Munmap(begin vm.VPN) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mappings := c.ctx.Space().Mappings()

	m, found := mappings.Find(begin)
	if !found || m.BeginPage != begin {
		return ErrNotMapped
	}

	c.flushRange(m.BeginPage, m.EndPage)
	mappings.Remove(begin)

	return nil
}
