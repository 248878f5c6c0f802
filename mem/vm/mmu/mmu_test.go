package mmu

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmpager/mem/mem"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/pager"
	"github.com/sarchlab/vmpager/mem/vm/swap"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

const (
	pageSize  = 16
	numFrames = 3
	numPages  = 8
)

func pattern(seed byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i)
	}

	return data
}

var _ = Describe("MMU", func() {
	var (
		mockCtrl  *gomock.Controller
		ctx       *MockExecContext
		memory    *mem.Storage
		frames    *frametable.Table
		clock     *sim.TickCounter
		stats     *vm.Stats
		t         *tlb.Comp
		swapStore *swap.MemStore
		space     *vm.Space
		m         *Comp
	)

	// access does what the machine does on a memory access: translate, and
	// on a miss let the MMU serve it and translate again.
	access := func(vAddr uint64, write bool) int {
		clock.Advance(1)

		vpn := vm.VPN(vAddr / pageSize)

		frame, err := t.Translate(vpn, write)
		if errors.Is(err, tlb.ErrMiss) {
			Expect(m.HandleTLBMissAt(vAddr)).To(Succeed())
			frame, err = t.Translate(vpn, write)
		}

		Expect(err).NotTo(HaveOccurred())

		return frame
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		memory = mem.NewStorage(numFrames, pageSize)
		frames = frametable.New(numFrames)
		clock = sim.NewTickCounter(1)
		stats = new(vm.Stats)
		t = tlb.MakeBuilder().
			WithNumEntries(2).
			WithFrameTable(frames).
			WithClock(clock).
			WithStats(stats).
			Build("TLB")
		p := pager.MakeBuilder().
			WithMemory(memory).
			WithFrameTable(frames).
			WithTLB(t).
			WithClock(clock).
			WithStats(stats).
			Build("Pager")

		swapStore = swap.NewMemStore(numPages*pageSize, pageSize)
		space = vm.NewSpace(numPages, swapStore)

		ctx = NewMockExecContext(mockCtrl)
		ctx.EXPECT().PID().Return(vm.PID(1)).AnyTimes()
		ctx.EXPECT().Space().Return(space).AnyTimes()

		m = MakeBuilder().
			WithContext(ctx).
			WithFrameTable(frames).
			WithTLB(t).
			WithPager(p).
			WithClock(clock).
			WithStats(stats).
			Build("MMU")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should take the page size from the pager", func() {
		Expect(m.PageSize()).To(Equal(uint64(pageSize)))
	})

	It("should panic when built without a context", func() {
		Expect(func() { MakeBuilder().Build("MMU") }).To(Panic())
	})

	Context("TLB miss", func() {
		It("should bring a missing page in", func() {
			frame := access(3*pageSize+5, false)

			fe := frames.Entry(frame)
			Expect(fe.Valid).To(BeTrue())
			Expect(fe.PID).To(Equal(vm.PID(1)))
			Expect(fe.VPN).To(Equal(vm.VPN(3)))
			Expect(fe.TLBSlot).NotTo(Equal(frametable.NoTLBSlot))
			Expect(stats.PageFaults.Load()).To(Equal(uint64(1)))
			Expect(stats.PageIns.Load()).To(Equal(uint64(1)))
			Expect(stats.TLBMisses.Load()).To(Equal(uint64(1)))
		})

		It("should read the latched fault address", func() {
			ctx.EXPECT().FaultAddress().Return(uint64(5 * pageSize))

			Expect(m.HandleTLBMiss()).To(Succeed())

			_, found := frames.Lookup(1, 5)
			Expect(found).To(BeTrue())
		})

		It("should refill the TLB without a page fault", func() {
			access(0, false)
			access(pageSize, false)
			access(2*pageSize, false)

			Expect(stats.PageFaults.Load()).To(Equal(uint64(3)))

			access(0, false)

			Expect(stats.PageFaults.Load()).To(Equal(uint64(3)))
			Expect(stats.TLBMisses.Load()).To(Equal(uint64(4)))
		})

		It("should report refills to hooks", func() {
			var positions []*sim.HookPos
			m.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				positions = append(positions, ctx.Pos)
			}))

			access(0, false)
			access(pageSize, false)
			access(2*pageSize, false)
			access(0, false)

			Expect(positions).To(HaveLen(4))
			Expect(positions[3]).To(BeIdenticalTo(vm.HookPosTLBRefill))
		})

		It("should evict the least recently inserted frame", func() {
			access(0, false)
			access(pageSize, false)
			access(2*pageSize, false)
			access(0, false)
			access(3*pageSize, false)

			_, found := frames.Lookup(1, 1)
			Expect(found).To(BeFalse())
			_, found = frames.Lookup(1, 0)
			Expect(found).To(BeTrue())
			_, found = frames.Lookup(1, 2)
			Expect(found).To(BeTrue())
		})

		It("should accept the last page of the address space", func() {
			Expect(m.HandleTLBMissAt(numPages*pageSize - 1)).To(Succeed())
		})

		It("should report an address error past the address space", func() {
			var event vm.Event
			m.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(vm.HookPosAddressError))
				event = ctx.Item.(vm.Event)
			}))

			err := m.HandleTLBMissAt(numPages * pageSize)

			var addrErr *vm.AddressError
			Expect(errors.As(err, &addrErr)).To(BeTrue())
			Expect(addrErr.PID).To(Equal(vm.PID(1)))
			Expect(addrErr.VPN).To(Equal(vm.VPN(numPages)))
			Expect(event.VPN).To(Equal(vm.VPN(numPages)))
			Expect(stats.AddressErrors.Load()).To(Equal(uint64(1)))
			Expect(stats.TLBMisses.Load()).To(BeZero())
			Expect(stats.PageFaults.Load()).To(BeZero())
			for _, e := range t.Entries() {
				Expect(e.Valid).To(BeFalse())
			}
		})
	})

	Context("page fault", func() {
		It("should not refill the TLB", func() {
			frame := m.PageFault(4)

			Expect(frames.Entry(frame).VPN).To(Equal(vm.VPN(4)))
			Expect(frames.Entry(frame).TLBSlot).To(Equal(frametable.NoTLBSlot))
			Expect(stats.TLBMisses.Load()).To(BeZero())
		})

		It("should stamp the page with the current time", func() {
			clock.Advance(41)

			frame := m.PageFault(4)

			Expect(frames.Entry(frame).LastUsed).To(Equal(sim.Tick(42)))
		})

		It("should hand a copy of the tables to hooks", func() {
			var snapshot Snapshot
			m.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				snapshot = ctx.Detail.(Snapshot)
			}))

			m.PageFault(4)

			Expect(snapshot.Frames).To(HaveLen(numFrames))
			Expect(snapshot.TLB).To(HaveLen(2))
			Expect(snapshot.Frames[0].Valid).To(BeFalse())
		})
	})

	Context("round trip", func() {
		It("should write a modified page out and read it back", func() {
			data := pattern(0x40, pageSize)
			frame := access(2*pageSize, true)
			copy(memory.Frame(frame), data)

			for vpn := uint64(3); vpn < numPages; vpn++ {
				access(vpn*pageSize, false)
			}

			_, found := frames.Lookup(1, 2)
			Expect(found).To(BeFalse())
			Expect(stats.PageOuts.Load()).To(Equal(uint64(1)))

			stored := make([]byte, pageSize)
			_, err := swapStore.ReadAt(stored, 2*pageSize)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(Equal(data))

			frame = access(2*pageSize, false)
			Expect(memory.Frame(frame)).To(Equal(data))
		})

		It("should not write clean pages", func() {
			for vpn := uint64(0); vpn < numPages; vpn++ {
				access(vpn*pageSize, false)
			}

			Expect(stats.PageOuts.Load()).To(BeZero())
			Expect(swapStore.NumUnitsAllocated()).To(BeZero())
		})
	})

	Context("memory-mapped files", func() {
		var file *swap.MemStore

		BeforeEach(func() {
			file = swap.NewMemStore(64, pageSize)
			_, err := file.WriteAt(pattern(1, 40), 0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse an empty mapping", func() {
			_, err := m.Mmap(file, 0)
			Expect(err).To(MatchError(ErrEmptyMapping))
		})

		It("should map after the address space", func() {
			begin, err := m.Mmap(file, 40)

			Expect(err).NotTo(HaveOccurred())
			Expect(begin).To(Equal(vm.VPN(numPages)))

			entry, found := space.Mappings().Find(begin)
			Expect(found).To(BeTrue())
			Expect(entry.EndPage).To(Equal(vm.VPN(numPages + 2)))
			Expect(entry.LastPageLength).To(Equal(uint64(8)))
		})

		It("should map the next file after the previous one", func() {
			_, err := m.Mmap(file, 40)
			Expect(err).NotTo(HaveOccurred())

			begin, err := m.Mmap(file, 16)

			Expect(err).NotTo(HaveOccurred())
			Expect(begin).To(Equal(vm.VPN(numPages + 3)))
		})

		It("should read pages from the file", func() {
			begin, _ := m.Mmap(file, 40)

			frame := access(uint64(begin)*pageSize, false)
			Expect(memory.Frame(frame)).To(Equal(pattern(1, pageSize)))

			frame = access(uint64(begin+2)*pageSize, false)
			Expect(memory.Frame(frame)[:8]).To(Equal(pattern(1, 40)[32:]))
			Expect(memory.Frame(frame)[8:]).To(Equal(make([]byte, 8)))
		})

		It("should flush modified pages to the file", func() {
			begin, _ := m.Mmap(file, 40)
			access(uint64(begin)*pageSize, false)
			frame := access(uint64(begin+1)*pageSize, true)
			copy(memory.Frame(frame), pattern(0x80, pageSize))

			m.FlushMmapRange(begin, begin+2)

			_, found := frames.Lookup(1, begin)
			Expect(found).To(BeFalse())
			_, found = frames.Lookup(1, begin+1)
			Expect(found).To(BeFalse())
			Expect(stats.PageOuts.Load()).To(Equal(uint64(1)))

			stored := make([]byte, pageSize)
			_, err := file.ReadAt(stored, pageSize)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(Equal(pattern(0x80, pageSize)))
		})

		It("should write only the mapped part of the last page", func() {
			begin, _ := m.Mmap(file, 40)
			frame := access(uint64(begin+2)*pageSize, true)
			copy(memory.Frame(frame), pattern(0x80, pageSize))

			m.FlushMmapRange(begin, begin+2)

			stored := make([]byte, 64)
			_, err := file.ReadAt(stored, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored[32:40]).To(Equal(pattern(0x80, 8)))
			Expect(stored[40:]).To(Equal(make([]byte, 24)))
		})

		It("should leave other pages alone", func() {
			access(0, true)

			m.FlushMmapRange(numPages, numPages+2)

			_, found := frames.Lookup(1, 0)
			Expect(found).To(BeTrue())
		})

		It("should flush and drop a mapping on unmap", func() {
			begin, _ := m.Mmap(file, 40)
			frame := access(uint64(begin)*pageSize, true)
			copy(memory.Frame(frame), pattern(0x80, pageSize))

			Expect(m.Munmap(begin)).To(Succeed())

			_, found := space.Mappings().Find(begin)
			Expect(found).To(BeFalse())

			stored := make([]byte, pageSize)
			_, err := file.ReadAt(stored, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(Equal(pattern(0x80, pageSize)))

			Expect(m.HandleTLBMissAt(uint64(begin) * pageSize)).
				To(BeAssignableToTypeOf(&vm.AddressError{}))
		})

		It("should refuse to unmap a page that does not begin a mapping", func() {
			begin, _ := m.Mmap(file, 40)

			Expect(m.Munmap(begin + 1)).To(MatchError(ErrNotMapped))
		})
	})

	Context("context switch", func() {
		var (
			otherSpace *vm.Space
			other      *MockExecContext
		)

		BeforeEach(func() {
			otherSpace = vm.NewSpace(numPages,
				swap.NewMemStore(numPages*pageSize, pageSize))
			other = NewMockExecContext(mockCtrl)
			other.EXPECT().PID().Return(vm.PID(2)).AnyTimes()
			other.EXPECT().Space().Return(otherSpace).AnyTimes()
		})

		It("should flush the TLB into the frame table", func() {
			frame := access(0, true)

			m.SwitchContext(other)

			Expect(m.Context()).To(BeIdenticalTo(other))
			for _, e := range t.Entries() {
				Expect(e.Valid).To(BeFalse())
			}
			Expect(frames.Entry(frame).Dirty).To(BeTrue())
			Expect(frames.Entry(frame).TLBSlot).To(Equal(frametable.NoTLBSlot))
		})

		It("should keep the pages of both processes apart", func() {
			first := access(0, true)
			copy(memory.Frame(first), pattern(0x10, pageSize))

			m.SwitchContext(other)
			second := access(0, false)

			Expect(second).NotTo(Equal(first))
			Expect(frames.Entry(second).PID).To(Equal(vm.PID(2)))
			Expect(memory.Frame(second)).To(Equal(make([]byte, pageSize)))
		})

		It("should write the page of a switched-out process to its own swap",
			func() {
				first := access(0, true)
				copy(memory.Frame(first), pattern(0x10, pageSize))

				m.SwitchContext(other)
				for vpn := uint64(1); vpn <= numFrames; vpn++ {
					access(vpn*pageSize, false)
				}

				_, found := frames.Lookup(1, 0)
				Expect(found).To(BeFalse())

				stored := make([]byte, pageSize)
				_, err := swapStore.ReadAt(stored, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(stored).To(Equal(pattern(0x10, pageSize)))
			})
	})
})
