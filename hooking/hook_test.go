package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	received []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.received = append(h.received, ctx)
}

var _ = Describe("HookableBase", func() {
	var (
		domain *HookableBase
		hook   *recordingHook
	)

	BeforeEach(func() {
		domain = &HookableBase{}
		hook = &recordingHook{}
	})

	It("should invoke registered hooks in order", func() {
		pos := &HookPos{Name: "SomePos"}

		domain.AcceptHook(hook)
		domain.InvokeHook(HookCtx{Pos: pos, Item: "item"})

		Expect(domain.NumHooks()).To(Equal(1))
		Expect(hook.received).To(HaveLen(1))
		Expect(hook.received[0].Pos).To(BeIdenticalTo(pos))
		Expect(hook.received[0].Item).To(Equal("item"))
	})

	It("should panic on a duplicated hook", func() {
		domain.AcceptHook(hook)

		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
	})
})
