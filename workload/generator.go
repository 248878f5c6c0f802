// Package workload generates memory access patterns and runs them on a
// machine, checking that every byte read is the byte last written.
package workload

import "math/rand/v2"

// An Access is one byte-sized memory access.
type Access struct {
	VAddr uint64
	Write bool
}

// A Generator produces the accesses of a process.
type Generator interface {
	// Next returns the next access, or false when the workload is over.
	Next() (Access, bool)
}

// Region is a range of pages that a generator touches.
type Region struct {
	FirstPage uint64
	NumPages  uint64
	PageSize  uint64
}

func (r Region) address(page, offset uint64) uint64 {
	return (r.FirstPage+page)*r.PageSize + offset%r.PageSize
}

type sequential struct {
	region     Region
	total      uint64
	writeEvery uint64
	i          uint64
}

// NewSequential sweeps the region page by page, passes times. Every
// writeEvery-th access is a write; zero means read only.
func NewSequential(region Region, passes int, writeEvery int) Generator {
	return &sequential{
		region:     region,
		total:      region.NumPages * uint64(passes),
		writeEvery: uint64(writeEvery),
	}
}

func (g *sequential) Next() (Access, bool) {
	if g.i >= g.total {
		return Access{}, false
	}

	page := g.i % g.region.NumPages
	pass := g.i / g.region.NumPages
	a := Access{
		VAddr: g.region.address(page, pass*7),
		Write: g.writeEvery > 0 && g.i%g.writeEvery == 0,
	}

	g.i++

	return a, true
}

type random struct {
	region     Region
	remaining  int
	writeRatio float64
	rand       *rand.Rand
}

// NewRandom touches count uniformly random bytes of the region. Each access
// is a write with probability writeRatio. The same seed gives the same
// accesses.
func NewRandom(region Region, count int, writeRatio float64, seed uint64) Generator {
	return &random{
		region:     region,
		remaining:  count,
		writeRatio: writeRatio,
		rand:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *random) Next() (Access, bool) {
	if g.remaining <= 0 {
		return Access{}, false
	}

	g.remaining--

	return Access{
		VAddr: g.region.address(
			g.rand.Uint64N(g.region.NumPages),
			g.rand.Uint64N(g.region.PageSize)),
		Write: g.rand.Float64() < g.writeRatio,
	}, true
}

type hotspot struct {
	random
	hotPages uint64
	hotRatio float64
}

// NewHotspot is like NewRandom, but sends hotRatio of the accesses to the
// first hotPages pages of the region.
func NewHotspot(
	region Region,
	count int,
	writeRatio float64,
	hotPages uint64,
	hotRatio float64,
	seed uint64,
) Generator {
	if hotPages == 0 || hotPages > region.NumPages {
		hotPages = region.NumPages
	}

	return &hotspot{
		random: random{
			region:     region,
			remaining:  count,
			writeRatio: writeRatio,
			rand:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		},
		hotPages: hotPages,
		hotRatio: hotRatio,
	}
}

func (g *hotspot) Next() (Access, bool) {
	if g.remaining <= 0 {
		return Access{}, false
	}

	g.remaining--

	pages := g.region.NumPages
	if g.rand.Float64() < g.hotRatio {
		pages = g.hotPages
	}

	return Access{
		VAddr: g.region.address(
			g.rand.Uint64N(pages),
			g.rand.Uint64N(g.region.PageSize)),
		Write: g.rand.Float64() < g.writeRatio,
	}, true
}
