package frametable

import (
	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/sim"
)

var _ = g.Describe("LRUVictimFinder", func() {
	var (
		table  *Table
		space  *vm.Space
		finder *LRUVictimFinder
	)

	loadAll := func(lastUsed ...sim.Tick) {
		for i, t := range lastUsed {
			table.Load(i, 1, vm.VPN(i), space, t)
		}
	}

	g.BeforeEach(func() {
		table = New(4)
		space = vm.NewSpace(16, nil)
		finder = NewLRUVictimFinder()
	})

	g.It("should pick the first invalid frame", func() {
		loadAll(5, 2, 9, 2)
		table.Invalidate(3)
		table.Invalidate(2)

		Expect(finder.FindVictim(table)).To(Equal(2))
	})

	g.It("should prefer an invalid frame over an older valid one", func() {
		table.Load(0, 1, 0, space, 100)
		table.Load(1, 1, 1, space, 0)

		Expect(finder.FindVictim(table)).To(Equal(2))
	})

	g.It("should pick the least recently used frame", func() {
		loadAll(5, 3, 9, 4)

		Expect(finder.FindVictim(table)).To(Equal(1))
	})

	g.It("should let the leftmost frame win a tie", func() {
		loadAll(5, 2, 9, 2)

		Expect(finder.FindVictim(table)).To(Equal(1))
	})

	g.It("should pick frame 0 when every frame has the same age", func() {
		loadAll(7, 7, 7, 7)

		Expect(finder.FindVictim(table)).To(Equal(0))
	})

	g.It("should satisfy the VictimFinder interface", func() {
		var f VictimFinder = finder
		loadAll(1, 0, 1, 1)

		Expect(f.FindVictim(table)).To(Equal(1))
	})
})
