package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vmpager/datarecording"
	"github.com/sarchlab/vmpager/machine"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/mem/vm/swap"
	"github.com/sarchlab/vmpager/monitoring"
	"github.com/sarchlab/vmpager/sim"
	"github.com/sarchlab/vmpager/tracing"
	"github.com/sarchlab/vmpager/workload"
)

// ErrMismatch is returned when a read did not return what was last written.
var ErrMismatch = errors.New("memory contents were not preserved")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload and report the paging statistics.",
	Long: "`run` creates the processes, runs the chosen access pattern on " +
		"each of them, and checks that every byte read back is the byte " +
		"last written.",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnvDefaults(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := readRunConfig(cmd)
		if err != nil {
			return err
		}

		return runWorkload(c)
	},
}

func init() {
	f := runCmd.Flags()
	f.Int("frames", 32, "Number of physical frames.")
	f.Uint64("page-size", 128, "Number of bytes in a page.")
	f.Int("tlb-size", 4, "Number of TLB entries.")
	f.Uint64("pages", 64, "Number of pages in the address space of each process.")
	f.Int("processes", 1, "Number of processes.")
	f.Int("accesses", 10000, "Number of accesses per process.")
	f.String("pattern", "random", "Access pattern: sequential, random or hotspot.")
	f.Float64("write-ratio", 0.3, "Fraction of the accesses that are writes.")
	f.Uint64("seed", 1, "Seed of the random access patterns.")
	f.Int("quantum", 100, "Accesses before switching to the next process; 0 runs each to completion.")
	f.String("swap-dir", "", "Directory for swap files. Swap is kept in memory if empty.")
	f.Uint64("mmap-bytes", 0, "Bytes of a file to map into the first process and sweep.")
	f.Bool("trace", false, "Print every virtual memory event to stderr.")
	f.Bool("dump-tables", false, "With --trace, print the frame table and the TLB at every page fault.")
	f.String("trace-csv", "", "Write every virtual memory event to a CSV file.")
	f.Bool("record", false, "Record the events and the run settings into an SQLite database.")
	f.String("record-path", "", "Database name without the .sqlite3 suffix. Generated if empty.")
	f.Bool("monitor", false, "Serve the machine state over HTTP while running.")
	f.Int("monitor-port", 0, "Port of the monitor. A random port is used if 0.")
	f.Bool("open-browser", false, "With --monitor, open the dashboard in a browser.")

	rootCmd.AddCommand(runCmd)
}

func readRunConfig(cmd *cobra.Command) (runConfig, error) {
	f := cmd.Flags()
	c := runConfig{}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	c.numFrames, err = f.GetInt("frames")
	collect(err)
	c.pageSize, err = f.GetUint64("page-size")
	collect(err)
	c.tlbSize, err = f.GetInt("tlb-size")
	collect(err)
	c.numPages, err = f.GetUint64("pages")
	collect(err)
	c.numProcesses, err = f.GetInt("processes")
	collect(err)
	c.accesses, err = f.GetInt("accesses")
	collect(err)
	c.pattern, err = f.GetString("pattern")
	collect(err)
	c.writeRatio, err = f.GetFloat64("write-ratio")
	collect(err)
	c.seed, err = f.GetUint64("seed")
	collect(err)
	c.quantum, err = f.GetInt("quantum")
	collect(err)
	c.swapDir, err = f.GetString("swap-dir")
	collect(err)
	c.mmapBytes, err = f.GetUint64("mmap-bytes")
	collect(err)
	c.trace, err = f.GetBool("trace")
	collect(err)
	c.dumpTables, err = f.GetBool("dump-tables")
	collect(err)
	c.traceCSV, err = f.GetString("trace-csv")
	collect(err)
	c.record, err = f.GetBool("record")
	collect(err)
	c.recordPath, err = f.GetString("record-path")
	collect(err)
	c.monitor, err = f.GetBool("monitor")
	collect(err)
	c.monitorPort, err = f.GetInt("monitor-port")
	collect(err)
	c.openBrowser, err = f.GetBool("open-browser")
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return c, err
	}

	return c, c.validate()
}

func runWorkload(c runConfig) error {
	m := machine.MakeBuilder().
		WithNumFrames(c.numFrames).
		WithPageSize(c.pageSize).
		WithNumTLBSlots(c.tlbSize).
		Build("Machine")

	gens, err := createProcesses(m, c)
	if err != nil {
		return err
	}

	if err := attachTracers(m, c); err != nil {
		return err
	}

	runner := workload.NewRunner(m)

	if c.monitor {
		mon := monitoring.NewMonitor().
			WithPortNumber(c.monitorPort).
			WithBrowser(c.openBrowser)
		mon.RegisterMachine(m)
		mon.StartServer()

		bar := mon.CreateProgressBar("Accesses", totalAccesses(c))
		defer mon.CompleteProgressBar(bar)

		runner.WithProgress(bar)
	}

	err = runner.RunInterleaved(gens, c.quantum)
	if err != nil {
		return err
	}

	if c.mmapBytes > 0 {
		if err := unmapAll(m, mmapPID(c)); err != nil {
			return err
		}
	}

	return report(m, runner.Result())
}

// newStore returns a store of size bytes, kept in a file under the swap
// directory when one is given. The file is removed at exit.
func newStore(c runConfig, name string, size uint64) (vm.BackingStore, error) {
	if c.swapDir == "" {
		return swap.NewMemStore(int64(size), int64(c.pageSize)), nil
	}

	s, err := swap.CreateFileStore(filepath.Join(c.swapDir, name))
	if err != nil {
		return nil, err
	}

	atexit.Register(func() {
		if err := s.Remove(); err != nil {
			log.Print(err)
		}
	})

	return s, nil
}

func addProcess(m *machine.Machine, c runConfig, pid vm.PID) error {
	store, err := newStore(c, "swap."+strconv.Itoa(int(pid)),
		c.numPages*c.pageSize)
	if err != nil {
		return err
	}

	_, err = m.AddProcess(pid, vm.NewSpace(c.numPages, store))

	return err
}

func createProcesses(
	m *machine.Machine,
	c runConfig,
) (map[vm.PID]workload.Generator, error) {
	gens := make(map[vm.PID]workload.Generator)

	for i := 0; i < c.numProcesses; i++ {
		pid := vm.PID(i + 1)

		if err := addProcess(m, c, pid); err != nil {
			return nil, err
		}

		region := workload.Region{NumPages: c.numPages, PageSize: c.pageSize}
		gens[pid] = newGenerator(c, region, c.seed+uint64(pid))
	}

	if c.mmapBytes > 0 {
		gen, err := mapFile(m, c)
		if err != nil {
			return nil, err
		}

		gens[mmapPID(c)] = gen
	}

	return gens, nil
}

// mmapPID is the process that sweeps the mapped file.
func mmapPID(c runConfig) vm.PID {
	return vm.PID(c.numProcesses + 1)
}

// mapFile maps a scratch file into a process of its own and returns two
// sweeps over the mapped bytes.
func mapFile(m *machine.Machine, c runConfig) (workload.Generator, error) {
	pid := mmapPID(c)

	if err := addProcess(m, c, pid); err != nil {
		return nil, err
	}

	if err := m.Switch(pid); err != nil {
		return nil, err
	}

	file, err := newStore(c, "mmap."+strconv.Itoa(int(pid)), c.mmapBytes)
	if err != nil {
		return nil, err
	}

	begin, err := m.MMU().Mmap(file, c.mmapBytes)
	if err != nil {
		return nil, err
	}

	region := workload.Region{
		FirstPage: uint64(begin),
		NumPages:  (c.mmapBytes + c.pageSize - 1) / c.pageSize,
		PageSize:  c.pageSize,
	}

	return &boundedSweep{
		gen:   workload.NewSequential(region, 2, 2),
		limit: uint64(begin)*c.pageSize + c.mmapBytes,
	}, nil
}

// boundedSweep drops the accesses at or beyond limit. The bytes of the last
// mapped page past the end of the file are not written back.
type boundedSweep struct {
	gen   workload.Generator
	limit uint64
}

func (b *boundedSweep) Next() (workload.Access, bool) {
	for {
		a, ok := b.gen.Next()
		if !ok || a.VAddr < b.limit {
			return a, ok
		}
	}
}

func newGenerator(c runConfig, region workload.Region, seed uint64) workload.Generator {
	switch c.pattern {
	case "sequential":
		passes := c.accesses / int(region.NumPages)
		if passes == 0 {
			passes = 1
		}

		writeEvery := 0
		if c.writeRatio > 0 {
			writeEvery = int(1 / c.writeRatio)
		}

		return workload.NewSequential(region, passes, writeEvery)
	case "hotspot":
		return workload.NewHotspot(region, c.accesses, c.writeRatio,
			region.NumPages/5, 0.8, seed)
	default:
		return workload.NewRandom(region, c.accesses, c.writeRatio, seed)
	}
}

func totalAccesses(c runConfig) uint64 {
	total := uint64(c.numProcesses * c.accesses)
	if c.mmapBytes > 0 {
		total += 2 * ((c.mmapBytes + c.pageSize - 1) / c.pageSize)
	}

	return total
}

func attachTracers(m *machine.Machine, c runConfig) error {
	if c.trace {
		t := tracing.NewLogTracer(nil)
		t.DumpTables = c.dumpTables
		m.AcceptHook(t)
	}

	if c.traceCSV != "" {
		file, err := os.Create(c.traceCSV)
		if err != nil {
			return err
		}

		t := tracing.NewCSVTracer(file)
		tracing.CollectTrace(m, t)

		atexit.Register(func() {
			t.Flush()
			if err := file.Close(); err != nil {
				log.Print(err)
			}
		})
	}

	if c.record {
		sim.UseXIDs()

		recorder := datarecording.New(c.recordPath)
		tracing.CollectTrace(m, tracing.NewDBTracer(recorder))

		exec := datarecording.NewExecRecorder(recorder)
		exec.Start()
		exec.Add("Frames", strconv.Itoa(c.numFrames))
		exec.Add("Page Size", strconv.FormatUint(c.pageSize, 10))
		exec.Add("TLB Size", strconv.Itoa(c.tlbSize))
		exec.Add("Pattern", c.pattern)

		atexit.Register(func() {
			exec.End()
			if err := recorder.Close(); err != nil {
				log.Print(err)
			}
		})
	}

	return nil
}

// unmapAll writes the mapped pages of a process back to their files and
// removes the mappings.
func unmapAll(m *machine.Machine, pid vm.PID) error {
	if err := m.Switch(pid); err != nil {
		return err
	}

	p := m.Current()
	for _, e := range slices.Clone(p.Space().Mappings().Entries()) {
		if err := m.MMU().Munmap(e.BeginPage); err != nil {
			return err
		}
	}

	return nil
}

func report(m *machine.Machine, result workload.Result) error {
	s := m.Stats().Snapshot()

	fmt.Printf("accesses       %d\n", result.Accesses)
	fmt.Printf("writes         %d\n", result.Writes)
	fmt.Printf("tlb misses     %d\n", s.TLBMisses)
	fmt.Printf("page faults    %d\n", s.PageFaults)
	fmt.Printf("page outs      %d\n", s.PageOuts)
	fmt.Printf("page ins       %d\n", s.PageIns)
	fmt.Printf("address errors %d\n", s.AddressErrors)

	for _, mm := range result.Mismatches {
		fmt.Fprintln(os.Stderr, mm)
	}

	if len(result.Mismatches) > 0 {
		return fmt.Errorf("%w: %d mismatches", ErrMismatch,
			len(result.Mismatches))
	}

	return nil
}
