package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TickCounter", func() {
	It("should start at the given tick", func() {
		c := NewTickCounter(7)
		Expect(c.Now()).To(Equal(Tick(7)))
	})

	It("should only move forward when advanced", func() {
		c := NewTickCounter(0)

		Expect(c.Advance(1)).To(Equal(Tick(1)))
		Expect(c.Advance(3)).To(Equal(Tick(4)))
		Expect(c.Now()).To(Equal(Tick(4)))
	})
})
