package vm

import "sync/atomic"

// Stats counts the virtual memory events of a machine.
type Stats struct {
	TLBMisses     atomic.Uint64
	PageFaults    atomic.Uint64
	PageOuts      atomic.Uint64
	PageIns       atomic.Uint64
	AddressErrors atomic.Uint64
}

// StatsSnapshot is a copy of the counters at one point in time.
type StatsSnapshot struct {
	TLBMisses     uint64 `json:"tlb_misses"`
	PageFaults    uint64 `json:"page_faults"`
	PageOuts      uint64 `json:"page_outs"`
	PageIns       uint64 `json:"page_ins"`
	AddressErrors uint64 `json:"address_errors"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TLBMisses:     s.TLBMisses.Load(),
		PageFaults:    s.PageFaults.Load(),
		PageOuts:      s.PageOuts.Load(),
		PageIns:       s.PageIns.Load(),
		AddressErrors: s.AddressErrors.Load(),
	}
}
