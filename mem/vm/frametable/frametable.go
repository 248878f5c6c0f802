// Package frametable implements the inverted page table: one entry per
// physical frame recording which process page, if any, occupies the frame.
package frametable

import (
	"log"

	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/sim"
)

// NoTLBSlot marks a frame whose translation is not cached in the TLB.
const NoTLBSlot = -1

// An Entry describes the content of one physical frame.
//
// When Valid is false, the other fields are stale and must not be trusted.
type Entry struct {
	Valid bool
	PID   vm.PID
	VPN   vm.VPN

	// Dirty is authoritative only when TLBSlot is NoTLBSlot. Otherwise the
	// TLB entry in TLBSlot holds the latest dirty bit.
	Dirty bool

	// TLBSlot is the index of the TLB entry caching the translation of this
	// frame. It is a back-reference only.
	TLBSlot int

	LastUsed sim.Tick

	// Store is the swap store of the owner.
	Store vm.BackingStore

	// Space is the address space of the owner. Memory-mapped ranges are
	// resolved through it when the frame is paged out.
	Space vm.AddressSpace
}

// Table is the frame table of a machine.
type Table struct {
	entries []Entry
}

// New creates a frame table with all the frames invalid.
func New(numFrames int) *Table {
	if numFrames <= 0 {
		log.Panicf("number of frames must be positive, got %d", numFrames)
	}

	t := &Table{entries: make([]Entry, numFrames)}
	t.Reset()

	return t
}

// Reset marks all the frames invalid.
func (t *Table) Reset() {
	for i := range t.entries {
		t.entries[i] = Entry{TLBSlot: NoTLBSlot}
	}
}

// NumFrames returns the number of physical frames.
func (t *Table) NumFrames() int {
	return len(t.entries)
}

// Entry returns the entry of a frame for in-place updates.
func (t *Table) Entry(frame int) *Entry {
	t.frameMustBeInRange(frame)
	return &t.entries[frame]
}

// Entries returns a copy of all the entries.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)

	return entries
}

// Lookup returns the frame that holds the page of the process.
func (t *Table) Lookup(pid vm.PID, vpn vm.VPN) (frame int, found bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Valid && e.PID == pid && e.VPN == vpn {
			return i, true
		}
	}

	return -1, false
}

// Load records that a page has just been brought into a frame. The frame must
// not be valid and no other frame may hold the same page.
func (t *Table) Load(
	frame int,
	pid vm.PID,
	vpn vm.VPN,
	space vm.AddressSpace,
	now sim.Tick,
) {
	t.frameMustBeInRange(frame)

	if t.entries[frame].Valid {
		log.Panicf("loading into frame %d which still holds pid %d page %d",
			frame, t.entries[frame].PID, t.entries[frame].VPN)
	}

	t.pageMustNotExist(pid, vpn)

	t.entries[frame] = Entry{
		Valid:    true,
		PID:      pid,
		VPN:      vpn,
		Dirty:    false,
		TLBSlot:  NoTLBSlot,
		LastUsed: now,
		Store:    space.SwapStore(),
		Space:    space,
	}
}

// Invalidate marks a frame free for reuse. Its other fields are left as they
// were.
func (t *Table) Invalidate(frame int) {
	t.frameMustBeInRange(frame)
	t.entries[frame].Valid = false
}

func (t *Table) frameMustBeInRange(frame int) {
	if frame < 0 || frame >= len(t.entries) {
		log.Panicf("frame %d out of range [0, %d)", frame, len(t.entries))
	}
}

func (t *Table) pageMustNotExist(pid vm.PID, vpn vm.VPN) {
	if frame, found := t.Lookup(pid, vpn); found {
		log.Panicf("pid %d page %d already resides in frame %d",
			pid, vpn, frame)
	}
}
