// Package pager moves page contents between physical frames and the backing
// stores, either the swap store of the owning process or a memory-mapped
// file.
package pager

import (
	"github.com/sarchlab/vmpager/mem/mem"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/frametable"
	"github.com/sarchlab/vmpager/mem/vm/tlb"
	"github.com/sarchlab/vmpager/sim"
)

// Pager performs page-outs and page-ins, one frame at a time.
type Pager struct {
	*sim.HookableBase

	name     string
	pageSize uint64
	memory   *mem.Storage
	frames   *frametable.Table
	tlb      *tlb.Comp
	clock    sim.Clock
	stats    *vm.Stats
}

// Name returns the name of the pager.
func (p *Pager) Name() string {
	return p.name
}

// PageSize returns the number of bytes in a page.
func (p *Pager) PageSize() uint64 {
	return p.pageSize
}

// PageOut evicts the content of a frame. If the page has been modified, it is
// written to the mapped file that covers it, or else to the swap store of its
// owner. The frame is invalid afterwards. Paging out an invalid frame does
// nothing.
func (p *Pager) PageOut(frame int) {
	fe := p.frames.Entry(frame)
	if !fe.Valid {
		return
	}

	if fe.TLBSlot != frametable.NoTLBSlot {
		fe.Dirty = p.tlb.Invalidate(fe.TLBSlot)
		fe.TLBSlot = frametable.NoTLBSlot
	}

	event := vm.Event{
		PID:   fe.PID,
		VPN:   fe.VPN,
		Frame: frame,
		Slot:  frametable.NoTLBSlot,
		Dirty: fe.Dirty,
	}

	if fe.Dirty {
		event.Mmap = p.writeBack(frame, fe)
		p.stats.PageOuts.Add(1)
	}

	p.frames.Invalidate(frame)

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    vm.HookPosPageOut,
		Now:    p.clock.Now(),
		Item:   event,
	})
}

func (p *Pager) writeBack(frame int, fe *frametable.Entry) (mmap bool) {
	data := p.memory.Frame(frame)

	if m, found := fe.Space.Mappings().Find(fe.VPN); found {
		n := p.mustFitPage(m, "write", fe.PID, fe.VPN, frame)
		p.mustTransfer(transfer{
			op:    "write",
			pid:   fe.PID,
			vpn:   fe.VPN,
			frame: frame,
			do:    m.File.WriteAt,
			data:  data[:n],
			off:   m.FileOffset(fe.VPN, p.pageSize),
		})

		return true
	}

	p.mustTransfer(transfer{
		op:    "write",
		pid:   fe.PID,
		vpn:   fe.VPN,
		frame: frame,
		do:    fe.Store.WriteAt,
		data:  data,
		off:   p.swapOffset(fe.VPN),
	})

	return false
}

// PageIn fills a free frame with a page of the given address space. The page
// is read from the mapped file that covers it, or else from the swap store.
// The frame table is not updated.
func (p *Pager) PageIn(pid vm.PID, vpn vm.VPN, frame int, space vm.AddressSpace) {
	data := p.memory.Frame(frame)
	event := vm.Event{
		PID:   pid,
		VPN:   vpn,
		Frame: frame,
		Slot:  frametable.NoTLBSlot,
	}

	if m, found := space.Mappings().Find(vpn); found {
		n := p.mustFitPage(m, "read", pid, vpn, frame)
		p.mustTransfer(transfer{
			op:    "read",
			pid:   pid,
			vpn:   vpn,
			frame: frame,
			do:    m.File.ReadAt,
			data:  data[:n],
			off:   m.FileOffset(vpn, p.pageSize),
		})

		// The tail of a partial last page is not backed by the file.
		clear(data[n:])

		event.Mmap = true
	} else {
		p.mustTransfer(transfer{
			op:    "read",
			pid:   pid,
			vpn:   vpn,
			frame: frame,
			do:    space.SwapStore().ReadAt,
			data:  data,
			off:   p.swapOffset(vpn),
		})
	}

	p.stats.PageIns.Add(1)

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    vm.HookPosPageIn,
		Now:    p.clock.Now(),
		Item:   event,
	})
}

func (p *Pager) swapOffset(vpn vm.VPN) int64 {
	return int64(uint64(vpn) * p.pageSize)
}

// mustFitPage returns the number of mapped bytes in the page, panicking with a
// ConsistencyFault if that is zero or more than a page.
func (p *Pager) mustFitPage(
	m *vm.MmapEntry,
	op string,
	pid vm.PID,
	vpn vm.VPN,
	frame int,
) uint64 {
	n := m.BytesInPage(vpn, p.pageSize)
	if n > 0 && n <= p.pageSize {
		return n
	}

	panic(&vm.ConsistencyFault{
		Op:       op,
		PID:      pid,
		VPN:      vpn,
		Frame:    frame,
		Offset:   m.FileOffset(vpn, p.pageSize),
		Expected: int(n),
		Err:      vm.ErrBadLastPageLength,
	})
}

type transfer struct {
	op    string
	pid   vm.PID
	vpn   vm.VPN
	frame int
	do    func(data []byte, off int64) (int, error)
	data  []byte
	off   int64
}

// mustTransfer runs the transfer and panics with a ConsistencyFault unless
// exactly len(data) bytes are moved.
func (p *Pager) mustTransfer(t transfer) {
	n, err := t.do(t.data, t.off)
	if err == nil && n == len(t.data) {
		return
	}

	panic(&vm.ConsistencyFault{
		Op:       t.op,
		PID:      t.pid,
		VPN:      t.vpn,
		Frame:    t.frame,
		Offset:   t.off,
		Expected: len(t.data),
		Actual:   n,
		Err:      err,
	})
}
