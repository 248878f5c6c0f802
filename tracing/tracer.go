// Package tracing turns the hook invocations of the virtual memory components
// into records and hands them to tracer backends.
package tracing

import (
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/sim"
)

// A Record is a virtual memory event flattened for storage.
type Record struct {
	ID     string
	Time   uint64
	Domain string
	Kind   string
	PID    uint32
	VPN    uint64
	Frame  int
	Slot   int
	Dirty  bool
	Mmap   bool
}

// Tracer can collect records.
type Tracer interface {
	Trace(r Record)
}

// CollectTrace lets the tracer collect the events of a domain.
func CollectTrace(domain sim.Hookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{t: tracer})
}

type traceHook struct {
	t Tracer
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	event, ok := ctx.Item.(vm.Event)
	if !ok {
		return
	}

	h.t.Trace(MakeRecord(ctx, event))
}

// MakeRecord flattens an event reported at a hook.
func MakeRecord(ctx sim.HookCtx, event vm.Event) Record {
	r := Record{
		ID:    sim.GetIDGenerator().Generate(),
		Time:  uint64(ctx.Now),
		Kind:  ctx.Pos.Name,
		PID:   uint32(event.PID),
		VPN:   uint64(event.VPN),
		Frame: event.Frame,
		Slot:  event.Slot,
		Dirty: event.Dirty,
		Mmap:  event.Mmap,
	}

	if named, ok := ctx.Domain.(sim.Named); ok {
		r.Domain = named.Name()
	}

	return r
}
