package workload

import (
	"fmt"
	"slices"

	"github.com/sarchlab/vmpager/machine"
	"github.com/sarchlab/vmpager/mem/vm"
)

// Progress is told about every access together with the counters of the
// machine after it.
type Progress interface {
	RecordAccess(write bool, stats vm.StatsSnapshot)
}

// A Mismatch is a read that did not return what was last written.
type Mismatch struct {
	PID      vm.PID
	VAddr    uint64
	Expected byte
	Actual   byte
}

func (m Mismatch) String() string {
	return fmt.Sprintf("pid %d at 0x%x read 0x%02x, expected 0x%02x",
		m.PID, m.VAddr, m.Actual, m.Expected)
}

// Result summarizes a run.
type Result struct {
	Accesses   uint64
	Writes     uint64
	Mismatches []Mismatch
}

// Runner drives a machine with generated accesses. It remembers every byte
// written so that reads can be checked.
type Runner struct {
	machine  *machine.Machine
	progress Progress
	shadow   map[vm.PID]map[uint64]byte
	result   Result
}

// NewRunner creates a Runner for the machine.
func NewRunner(m *machine.Machine) *Runner {
	return &Runner{
		machine: m,
		shadow:  make(map[vm.PID]map[uint64]byte),
	}
}

// WithProgress sets where progress is reported.
func (r *Runner) WithProgress(p Progress) *Runner {
	r.progress = p
	return r
}

// Result returns what has been run so far.
func (r *Runner) Result() Result {
	return r.result
}

// Run runs a generator to completion on a process.
func (r *Runner) Run(pid vm.PID, gen Generator) error {
	return r.RunInterleaved(map[vm.PID]Generator{pid: gen}, 0)
}

// RunInterleaved runs several processes, switching to the next one every
// quantum accesses. A quantum of zero runs each process to completion. The
// processes take turns in the order of their IDs.
func (r *Runner) RunInterleaved(gens map[vm.PID]Generator, quantum int) error {
	pids := sortedPIDs(gens)

	for len(pids) > 0 {
		remaining := pids[:0]

		for _, pid := range pids {
			more, err := r.runSlice(pid, gens[pid], quantum)
			if err != nil {
				return err
			}

			if more {
				remaining = append(remaining, pid)
			}
		}

		pids = remaining
	}

	return nil
}

func (r *Runner) runSlice(pid vm.PID, gen Generator, quantum int) (bool, error) {
	if err := r.machine.Switch(pid); err != nil {
		return false, err
	}

	for n := 0; quantum == 0 || n < quantum; n++ {
		a, ok := gen.Next()
		if !ok {
			return false, nil
		}

		if err := r.access(pid, a); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (r *Runner) access(pid vm.PID, a Access) error {
	shadow, ok := r.shadow[pid]
	if !ok {
		shadow = make(map[uint64]byte)
		r.shadow[pid] = shadow
	}

	r.result.Accesses++

	if r.progress != nil {
		defer func() {
			r.progress.RecordAccess(a.Write, r.machine.Stats().Snapshot())
		}()
	}

	if a.Write {
		value := byte(r.result.Accesses*31) ^ byte(pid)
		if err := r.machine.WriteMem(a.VAddr, []byte{value}); err != nil {
			return err
		}

		shadow[a.VAddr] = value
		r.result.Writes++

		return nil
	}

	data, err := r.machine.ReadMem(a.VAddr, 1)
	if err != nil {
		return err
	}

	if expected := shadow[a.VAddr]; data[0] != expected {
		r.result.Mismatches = append(r.result.Mismatches, Mismatch{
			PID:      pid,
			VAddr:    a.VAddr,
			Expected: expected,
			Actual:   data[0],
		})
	}

	return nil
}

func sortedPIDs(gens map[vm.PID]Generator) []vm.PID {
	pids := make([]vm.PID, 0, len(gens))
	for pid := range gens {
		pids = append(pids, pid)
	}

	slices.Sort(pids)

	return pids
}
