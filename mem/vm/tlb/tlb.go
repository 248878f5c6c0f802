// Package tlb implements the software-managed translation lookaside buffer of
// the simulated machine and the controller that refills it.
package tlb

import (
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/sim"
)

// Errors returned by Translate.
var (
	ErrMiss     = errors.New("tlb miss")
	ErrReadOnly = errors.New("write to read-only page")
)

// An Entry caches the translation of one virtual page.
type Entry struct {
	VPN      vm.VPN
	Frame    int
	Valid    bool
	ReadOnly bool
	Use      bool
	Dirty    bool
}

// Comp is a fully associative TLB. Slots are refilled in FIFO order,
// independent of how recently they were used.
type Comp struct {
	*sim.HookableBase

	lock    sync.Mutex
	name    string
	entries []Entry
	fifo    fifoPointer

	frames *frametable.Table
	clock  sim.Clock
	stats  *vm.Stats
}

// Name returns the name of the TLB.
func (c *Comp) Name() string {
	return c.name
}

// Capacity returns the number of slots.
func (c *Comp) Capacity() int {
	return len(c.entries)
}

// Entry returns a copy of a slot.
func (c *Comp) Entry(slot int) Entry {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.slotMustBeInRange(slot)
	return c.entries[slot]
}

// Entries returns a copy of all the slots.
func (c *Comp) Entries() []Entry {
	c.lock.Lock()
	defer c.lock.Unlock()

	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)

	return entries
}

// FIFOPointer returns the slot that will be replaced when no slot is free.
func (c *Comp) FIFOPointer() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.fifo.next
}

// State is a copy of the slots and the FIFO pointer taken at one instant.
type State struct {
	Entries     []Entry
	FIFOPointer int
}

// State copies the slots and the FIFO pointer together.
func (c *Comp) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()

	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)

	return State{Entries: entries, FIFOPointer: c.fifo.next}
}

// Reset invalidates all the slots without touching the frame table and
// rewinds the FIFO pointer. It is only meant for booting.
func (c *Comp) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := range c.entries {
		c.entries[i] = Entry{}
	}

	c.fifo.reset()
}

// Translate looks up the page as the hardware does on every memory access.
// On a hit it marks the slot used, and dirty if write is set.
func (c *Comp) Translate(vpn vm.VPN, write bool) (frame int, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := range c.entries {
		e := &c.entries[i]
		if !e.Valid || e.VPN != vpn {
			continue
		}

		if write && e.ReadOnly {
			return e.Frame, ErrReadOnly
		}

		e.Use = true
		if write {
			e.Dirty = true
		}

		return e.Frame, nil
	}

	return -1, ErrMiss
}

// Insert caches the translation from vpn to frame and returns the slot used.
// The caller guarantees that the TLB does not already hold vpn.
//
// A free slot is used if there is one. Otherwise the slot under the FIFO
// pointer is replaced, and its dirty bit is saved into the frame table before
// the slot is overwritten.
func (c *Comp) Insert(vpn vm.VPN, frame int) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	slot := c.findFreeSlot()
	if slot < 0 {
		slot = c.fifo.next
	}

	c.fifo.advancePast(slot)

	if c.entries[slot].Valid {
		c.evict(slot)
	}

	fe := c.frames.Entry(frame)
	if fe.TLBSlot != frametable.NoTLBSlot {
		log.Panicf("frame %d is already cached in TLB slot %d",
			frame, fe.TLBSlot)
	}

	c.entries[slot] = Entry{
		VPN:      vpn,
		Frame:    frame,
		Valid:    true,
		ReadOnly: false,
		Use:      false,
		Dirty:    fe.Dirty,
	}

	fe.TLBSlot = slot
	fe.LastUsed = c.clock.Now()

	c.stats.TLBMisses.Add(1)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    vm.HookPosTLBInsert,
		Now:    c.clock.Now(),
		Item: vm.Event{
			PID:   fe.PID,
			VPN:   vpn,
			Frame: frame,
			Slot:  slot,
			Dirty: fe.Dirty,
		},
	})

	return slot
}

// Invalidate drops the translation in a slot and returns its dirty bit. The
// frame table is left to the caller.
func (c *Comp) Invalidate(slot int) (dirty bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.slotMustBeInRange(slot)

	e := &c.entries[slot]
	if !e.Valid {
		log.Panicf("invalidating TLB slot %d which is not valid", slot)
	}

	e.Valid = false

	return e.Dirty
}

// Flush invalidates all the slots, saving their dirty bits into the frame
// table. It must be called before another process becomes current.
func (c *Comp) Flush() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := range c.entries {
		if c.entries[i].Valid {
			c.evict(i)
		}
	}
}

func (c *Comp) findFreeSlot() int {
	for i := range c.entries {
		if !c.entries[i].Valid {
			return i
		}
	}

	return -1
}

func (c *Comp) evict(slot int) {
	e := &c.entries[slot]
	fe := c.frames.Entry(e.Frame)

	if fe.TLBSlot != slot {
		log.Panicf("TLB slot %d maps frame %d, which refers back to slot %d",
			slot, e.Frame, fe.TLBSlot)
	}

	fe.Dirty = e.Dirty
	fe.TLBSlot = frametable.NoTLBSlot
	e.Valid = false

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    vm.HookPosTLBEvict,
		Now:    c.clock.Now(),
		Item: vm.Event{
			PID:   fe.PID,
			VPN:   e.VPN,
			Frame: e.Frame,
			Slot:  slot,
			Dirty: e.Dirty,
		},
	})
}

func (c *Comp) slotMustBeInRange(slot int) {
	if slot < 0 || slot >= len(c.entries) {
		log.Panicf("TLB slot %d out of range [0, %d)", slot, len(c.entries))
	}
}
