package tracing

import (
	"fmt"
	"log"
	"strings"

	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/mmu"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// LogTracer is a hook that prints virtual memory events. On page faults, it
// also prints the frame table and the TLB as they were before the fault.
type LogTracer struct {
	sim.LogHookBase

	DumpTables bool
}

// NewLogTracer returns a LogTracer that writes into the logger, or into
// stderr if the logger is nil.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{
		LogHookBase: sim.NewLogHookBase(logger),
		DumpTables:  true,
	}
}

// Func writes the event information into the logger
func (h *LogTracer) Func(ctx sim.HookCtx) {
	event, ok := ctx.Item.(vm.Event)
	if !ok {
		return
	}

	r := MakeRecord(ctx, event)
	h.Printf("%d, %s, %s, pid %d, page %d, frame %d, slot %d, dirty %t, mmap %t",
		r.Time, r.Domain, r.Kind, r.PID, r.VPN, r.Frame, r.Slot, r.Dirty, r.Mmap)

	if snapshot, ok := ctx.Detail.(mmu.Snapshot); ok && h.DumpTables {
		h.Print(FormatFrames(snapshot.Frames))
		h.Print(FormatTLB(snapshot.TLB))
	}
}

// FormatFrames renders a frame table, one frame per line.
func FormatFrames(frames []frametable.Entry) string {
	var b strings.Builder

	b.WriteString("frame table\n")
	for i, e := range frames {
		if !e.Valid {
			b.WriteString(fmtLine("  %3d  invalid", i))
			continue
		}

		b.WriteString(fmtLine(
			"  %3d  pid %d  page %d  dirty %t  slot %d  last used %d",
			i, e.PID, e.VPN, e.Dirty, e.TLBSlot, e.LastUsed))
	}

	return b.String()
}

// FormatTLB renders the TLB, one slot per line.
func FormatTLB(entries []tlb.Entry) string {
	var b strings.Builder

	b.WriteString("tlb\n")
	for i, e := range entries {
		if !e.Valid {
			b.WriteString(fmtLine("  %3d  invalid", i))
			continue
		}

		b.WriteString(fmtLine(
			"  %3d  page %d  frame %d  dirty %t  use %t  read-only %t",
			i, e.VPN, e.Frame, e.Dirty, e.Use, e.ReadOnly))
	}

	return b.String()
}

func fmtLine(format string, args ...any) string {
	return fmt.Sprintf(format, args...) + "\n"
}
