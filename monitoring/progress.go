package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/vmpager/mem/vm"
)

// A ProgressBar follows a running workload: how many of its accesses are done
// and how much paging they have caused since the bar was created.
type ProgressBar struct {
	mu sync.Mutex

	id        string
	name      string
	startTime time.Time
	total     uint64
	accesses  uint64
	writes    uint64
	base      vm.StatsSnapshot
	latest    vm.StatsSnapshot
}

func newProgressBar(
	id, name string,
	total uint64,
	base vm.StatsSnapshot,
) *ProgressBar {
	return &ProgressBar{
		id:        id,
		name:      name,
		startTime: time.Now(),
		total:     total,
		base:      base,
		latest:    base,
	}
}

// RecordAccess counts one access and takes the counters of the machine after
// it.
func (b *ProgressBar) RecordAccess(write bool, stats vm.StatsSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accesses++
	if write {
		b.writes++
	}

	b.latest = stats
}

// Accesses returns the number of accesses done.
func (b *ProgressBar) Accesses() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.accesses
}

type progressRsp struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Elapsed    float64 `json:"elapsed_seconds"`
	Total      uint64  `json:"total"`
	Accesses   uint64  `json:"accesses"`
	Writes     uint64  `json:"writes"`
	TLBMisses  uint64  `json:"tlb_misses"`
	PageFaults uint64  `json:"page_faults"`
	PageOuts   uint64  `json:"page_outs"`
	FaultRate  float64 `json:"fault_rate"`
}

func (b *ProgressBar) report() progressRsp {
	b.mu.Lock()
	defer b.mu.Unlock()

	rsp := progressRsp{
		ID:         b.id,
		Name:       b.name,
		Elapsed:    time.Since(b.startTime).Seconds(),
		Total:      b.total,
		Accesses:   b.accesses,
		Writes:     b.writes,
		TLBMisses:  b.latest.TLBMisses - b.base.TLBMisses,
		PageFaults: b.latest.PageFaults - b.base.PageFaults,
		PageOuts:   b.latest.PageOuts - b.base.PageOuts,
	}

	if rsp.Accesses > 0 {
		rsp.FaultRate = float64(rsp.PageFaults) / float64(rsp.Accesses)
	}

	return rsp
}
