package pager

import (
	"github.com/sarchlab/vmpager/mem/mem"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// A Builder can build pagers.
type Builder struct {
	memory *mem.Storage
	frames *frametable.Table
	tlb    *tlb.Comp
	clock  sim.Clock
	stats  *vm.Stats
}

// MakeBuilder returns a Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMemory sets the physical memory whose frames are paged. The frame size
// of the memory is the page size.
func (b Builder) WithMemory(memory *mem.Storage) Builder {
	b.memory = memory
	return b
}

// WithFrameTable sets the frame table describing the frames.
func (b Builder) WithFrameTable(frames *frametable.Table) Builder {
	b.frames = frames
	return b
}

// WithTLB sets the TLB whose slots are invalidated on page-out.
func (b Builder) WithTLB(t *tlb.Comp) Builder {
	b.tlb = t
	return b
}

// WithClock sets the clock used to time the events.
func (b Builder) WithClock(clock sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithStats sets the counters to update.
func (b Builder) WithStats(stats *vm.Stats) Builder {
	b.stats = stats
	return b
}

// Build creates a new Pager.
func (b Builder) Build(name string) *Pager {
	sim.NameMustBeValid(name)

	if b.memory == nil || b.frames == nil || b.tlb == nil {
		panic("pager requires memory, frame table and TLB")
	}

	if b.memory.NumFrames() != b.frames.NumFrames() {
		panic("memory and frame table disagree on the number of frames")
	}

	p := &Pager{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		pageSize:     b.memory.FrameSize(),
		memory:       b.memory,
		frames:       b.frames,
		tlb:          b.tlb,
		clock:        b.clock,
		stats:        b.stats,
	}

	if p.clock == nil {
		p.clock = sim.NewTickCounter(0)
	}

	if p.stats == nil {
		p.stats = new(vm.Stats)
	}

	return p
}
