package swap

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemStore", func() {
	var store *MemStore

	BeforeEach(func() {
		store = NewMemStore(256, 64)
	})

	It("should read zeros from untouched units", func() {
		buf := []byte{9, 9, 9, 9}

		n, err := store.ReadAt(buf, 100)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))
		Expect(buf).To(Equal([]byte{0, 0, 0, 0}))
		Expect(store.NumUnitsAllocated()).To(Equal(0))
	})

	It("should read back what was written across units", func() {
		n, err := store.WriteAt([]byte{1, 2, 3, 4}, 62)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))

		buf := make([]byte, 6)
		_, err = store.ReadAt(buf, 61)

		Expect(err).NotTo(HaveOccurred())
		Expect(buf).To(Equal([]byte{0, 1, 2, 3, 4, 0}))
		Expect(store.NumUnitsAllocated()).To(Equal(2))
	})

	It("should cut writes short at the capacity", func() {
		n, err := store.WriteAt(make([]byte, 10), 250)

		Expect(n).To(Equal(6))
		Expect(err).To(MatchError(io.ErrShortWrite))
	})

	It("should cut reads short at the capacity", func() {
		n, err := store.ReadAt(make([]byte, 10), 250)

		Expect(n).To(Equal(6))
		Expect(err).To(MatchError(io.EOF))
	})

	It("should not transfer anything past the capacity", func() {
		n, err := store.ReadAt(make([]byte, 1), 256)

		Expect(n).To(Equal(0))
		Expect(err).To(MatchError(io.EOF))
	})
})
