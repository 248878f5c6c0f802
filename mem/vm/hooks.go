package vm

import "github.com/sarchlab/vmpager/sim"

// Hook positions of the virtual memory components. The HookCtx.Item of each
// of them is an Event. The Detail of HookPosPageFault also carries a copy of
// the frame table and the TLB taken before the fault is served.
var (
	HookPosTLBInsert    = &sim.HookPos{Name: "TLBInsert"}
	HookPosTLBEvict     = &sim.HookPos{Name: "TLBEvict"}
	HookPosTLBRefill    = &sim.HookPos{Name: "TLBRefill"}
	HookPosPageFault    = &sim.HookPos{Name: "PageFault"}
	HookPosPageOut      = &sim.HookPos{Name: "PageOut"}
	HookPosPageIn       = &sim.HookPos{Name: "PageIn"}
	HookPosAddressError = &sim.HookPos{Name: "AddressError"}
)

// An Event describes something that happened to a page.
type Event struct {
	PID   PID
	VPN   VPN
	Frame int
	Slot  int
	Dirty bool
	Mmap  bool
}
