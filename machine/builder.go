package machine

import (
	"github.com/sarchlab/vmpager/mem/mem"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/mmu"
	"github.com/sarchlab/vmpager/mem/vm/pager"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// A Builder can build machines.
type Builder struct {
	numFrames    int
	pageSize     uint64
	numTLBSlots  int
	victimFinder frametable.VictimFinder
}

// MakeBuilder returns a Builder with 32 frames of 128 bytes and a 4-entry
// TLB.
func MakeBuilder() Builder {
	return Builder{
		numFrames:   32,
		pageSize:    128,
		numTLBSlots: 4,
	}
}

// WithNumFrames sets the number of physical frames.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithPageSize sets the number of bytes in a page.
func (b Builder) WithPageSize(pageSize uint64) Builder {
	b.pageSize = pageSize
	return b
}

// WithNumTLBSlots sets the number of TLB entries.
func (b Builder) WithNumTLBSlots(n int) Builder {
	b.numTLBSlots = n
	return b
}

// WithVictimFinder sets the page replacement policy.
func (b Builder) WithVictimFinder(f frametable.VictimFinder) Builder {
	b.victimFinder = f
	return b
}

// Build creates a new machine with no process.
func (b Builder) Build(name string) *Machine {
	sim.NameMustBeValid(name)

	m := &Machine{
		name:      name,
		memory:    mem.NewStorage(b.numFrames, b.pageSize),
		frames:    frametable.New(b.numFrames),
		clock:     sim.NewTickCounter(0),
		stats:     new(vm.Stats),
		processes: make(map[vm.PID]*Process),
	}

	m.tlb = tlb.MakeBuilder().
		WithNumEntries(b.numTLBSlots).
		WithFrameTable(m.frames).
		WithClock(m.clock).
		WithStats(m.stats).
		Build(name + ".TLB")

	m.pager = pager.MakeBuilder().
		WithMemory(m.memory).
		WithFrameTable(m.frames).
		WithTLB(m.tlb).
		WithClock(m.clock).
		WithStats(m.stats).
		Build(name + ".Pager")

	m.mmu = mmu.MakeBuilder().
		WithContext(m).
		WithFrameTable(m.frames).
		WithTLB(m.tlb).
		WithPager(m.pager).
		WithVictimFinder(b.victimFinder).
		WithClock(m.clock).
		WithStats(m.stats).
		Build(name + ".MMU")

	return m
}
