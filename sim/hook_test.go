package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HookableBase", func() {
	var (
		domain *HookableBase
		pos    *HookPos
	)

	BeforeEach(func() {
		domain = NewHookableBase()
		pos = &HookPos{Name: "Test"}
	})

	It("should count registered hooks", func() {
		Expect(domain.NumHooks()).To(Equal(0))

		domain.AcceptHook(HookFunc(func(HookCtx) {}))

		Expect(domain.NumHooks()).To(Equal(1))
	})

	It("should invoke hooks in registration order", func() {
		var order []int
		domain.AcceptHook(HookFunc(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(pos))
			order = append(order, 1)
		}))
		domain.AcceptHook(HookFunc(func(ctx HookCtx) {
			Expect(ctx.Item).To(Equal("item"))
			order = append(order, 2)
		}))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: "item"})

		Expect(order).To(Equal([]int{1, 2}))
	})
})
