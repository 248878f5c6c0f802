package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MmapRegistry", func() {
	var (
		registry *MmapRegistry
		first    *MmapEntry
		second   *MmapEntry
	)

	BeforeEach(func() {
		registry = NewMmapRegistry()
		first = &MmapEntry{BeginPage: 10, EndPage: 12, LastPageLength: 200}
		second = &MmapEntry{BeginPage: 20, EndPage: 20, LastPageLength: 1}
		registry.Add(first)
		registry.Add(second)
	})

	It("should find the entry covering a page, bounds inclusive", func() {
		for _, vpn := range []VPN{10, 11, 12} {
			e, found := registry.Find(vpn)
			Expect(found).To(BeTrue())
			Expect(e).To(BeIdenticalTo(first))
		}

		e, found := registry.Find(20)
		Expect(found).To(BeTrue())
		Expect(e).To(BeIdenticalTo(second))
	})

	It("should not find pages outside every range", func() {
		for _, vpn := range []VPN{0, 9, 13, 19, 21} {
			_, found := registry.Find(vpn)
			Expect(found).To(BeFalse())
		}
	})

	It("should return the first match when ranges overlap", func() {
		overlapping := &MmapEntry{BeginPage: 11, EndPage: 15}
		registry.Add(overlapping)

		e, _ := registry.Find(11)
		Expect(e).To(BeIdenticalTo(first))

		e, _ = registry.Find(14)
		Expect(e).To(BeIdenticalTo(overlapping))
	})

	It("should remove an entry by its first page", func() {
		removed := registry.Remove(10)

		Expect(removed).To(BeIdenticalTo(first))
		Expect(registry.Entries()).To(ConsistOf(second))
		Expect(registry.Remove(10)).To(BeNil())
	})

	It("should refuse an inverted range", func() {
		Expect(func() {
			registry.Add(&MmapEntry{BeginPage: 5, EndPage: 4})
		}).To(Panic())
	})

	It("should compute the next free page", func() {
		Expect(registry.NextFreePage(0)).To(Equal(VPN(21)))
		Expect(registry.NextFreePage(30)).To(Equal(VPN(30)))
	})
})

var _ = Describe("MmapEntry", func() {
	entry := &MmapEntry{BeginPage: 10, EndPage: 12, LastPageLength: 200}

	It("should use the last page length only for the last page", func() {
		Expect(entry.BytesInPage(10, 128)).To(Equal(uint64(128)))
		Expect(entry.BytesInPage(11, 128)).To(Equal(uint64(128)))
		Expect(entry.BytesInPage(12, 128)).To(Equal(uint64(200)))
	})

	It("should place pages relative to the beginning of the file", func() {
		Expect(entry.FileOffset(10, 128)).To(Equal(int64(0)))
		Expect(entry.FileOffset(12, 128)).To(Equal(int64(256)))
		Expect(entry.NumPages()).To(Equal(uint64(3)))
	})
})
