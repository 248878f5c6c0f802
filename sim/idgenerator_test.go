package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ID generators", func() {
	It("should count up from one", func() {
		g := new(CountingIDGenerator)

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should not repeat xids", func() {
		g := XIDGenerator{}

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})
})
