package tlb

import (
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/sim"
)

// A Builder can build TLBs
type Builder struct {
	numEntries int
	frames     *frametable.Table
	clock      sim.Clock
	stats      *vm.Stats
}

// MakeBuilder returns a Builder
func MakeBuilder() Builder {
	return Builder{
		numEntries: 4,
	}
}

// WithNumEntries sets the number of entries in the TLB.
func (b Builder) WithNumEntries(n int) Builder {
	b.numEntries = n
	return b
}

// WithFrameTable sets the frame table that the TLB keeps its dirty bits and
// back-references in.
func (b Builder) WithFrameTable(frames *frametable.Table) Builder {
	b.frames = frames
	return b
}

// WithClock sets the clock used to stamp the frames the TLB refers to.
func (b Builder) WithClock(clock sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithStats sets the counters to update. A private set of counters is used if
// not set.
func (b Builder) WithStats(stats *vm.Stats) Builder {
	b.stats = stats
	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	sim.NameMustBeValid(name)

	if b.numEntries <= 0 {
		panic("TLB must have at least one entry")
	}

	if b.frames == nil {
		panic("TLB requires a frame table")
	}

	tlb := &Comp{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		entries:      make([]Entry, b.numEntries),
		fifo:         fifoPointer{capacity: b.numEntries},
		frames:       b.frames,
		clock:        b.clock,
		stats:        b.stats,
	}

	if tlb.clock == nil {
		tlb.clock = sim.NewTickCounter(0)
	}

	if tlb.stats == nil {
		tlb.stats = new(vm.Stats)
	}

	tlb.Reset()

	return tlb
}
