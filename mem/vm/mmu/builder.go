package mmu

import (
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/pager"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// A Builder can build MMU component
type Builder struct {
	ctx          vm.ExecContext
	frames       *frametable.Table
	tlb          *tlb.Comp
	pager        *pager.Pager
	victimFinder frametable.VictimFinder
	clock        sim.Clock
	stats        *vm.Stats
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{}
}

// WithContext sets the execution context of the process that runs first.
func (b Builder) WithContext(ctx vm.ExecContext) Builder {
	b.ctx = ctx
	return b
}

// WithFrameTable sets the frame table that the MMU uses.
func (b Builder) WithFrameTable(frames *frametable.Table) Builder {
	b.frames = frames
	return b
}

// WithTLB sets the TLB that the MMU refills.
func (b Builder) WithTLB(t *tlb.Comp) Builder {
	b.tlb = t
	return b
}

// WithPager sets the pager that moves pages in and out of memory. The page
// size of the MMU is the page size of the pager.
func (b Builder) WithPager(p *pager.Pager) Builder {
	b.pager = p
	return b
}

// WithVictimFinder sets the replacement policy. LRU is used if not set.
func (b Builder) WithVictimFinder(f frametable.VictimFinder) Builder {
	b.victimFinder = f
	return b
}

// WithClock sets the clock used to stamp the frames.
func (b Builder) WithClock(clock sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithStats sets the counters to update.
func (b Builder) WithStats(stats *vm.Stats) Builder {
	b.stats = stats
	return b
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	sim.NameMustBeValid(name)

	if b.ctx == nil {
		panic("MMU requires an execution context")
	}

	if b.frames == nil || b.tlb == nil || b.pager == nil {
		panic("MMU requires frame table, TLB and pager")
	}

	c := &Comp{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		pageSize:     b.pager.PageSize(),
		ctx:          b.ctx,
		frames:       b.frames,
		tlb:          b.tlb,
		pager:        b.pager,
		victimFinder: b.victimFinder,
		clock:        b.clock,
		stats:        b.stats,
	}

	if c.victimFinder == nil {
		c.victimFinder = frametable.NewLRUVictimFinder()
	}

	if c.clock == nil {
		c.clock = sim.NewTickCounter(0)
	}

	if c.stats == nil {
		c.stats = new(vm.Stats)
	}

	return c
}
