// Package monitoring serves the state of a running machine over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/vmpager/machine"
	"github.com/sarchlab/vmpager/mem/vm"
	"github.com/sarchlab/vmpager/monitoring/web"
	"github.com/sarchlab/vmpager/sim"
)

// Monitor turns a machine into a server that can be inspected while it runs.
type Monitor struct {
	machine      *machine.Machine
	components   []sim.Named
	portNumber   int
	openBrowser  bool
	profileDelay time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDelay: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes the monitor open the dashboard in a browser once the
// server is up.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterMachine sets the machine to monitor. Its TLB and MMU become
// inspectable components. They are inspected through copies of their state
// taken under their locks, so they can be served while the machine runs.
func (m *Monitor) RegisterMachine(mach *machine.Machine) {
	m.machine = mach

	m.RegisterComponent(stateView{
		name: mach.TLB().Name(),
		state: func() any {
			s := mach.TLB().State()
			return &s
		},
	})
	m.RegisterComponent(stateView{
		name: mach.MMU().Name(),
		state: func() any {
			s := mach.MMU().Snapshot()
			return &s
		},
	})
}

// RegisterComponent registers a component whose fields can be inspected. The
// fields are read without synchronization.
func (m *Monitor) RegisterComponent(c sim.Named) {
	m.components = append(m.components, c)
}

// CreateProgressBar creates a progress bar for a workload of total accesses.
// Paging is counted from the current counters of the registered machine.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	var base vm.StatsSnapshot
	if m.machine != nil {
		base = m.machine.Stats().Snapshot()
	}

	bar := newProgressBar(sim.GetIDGenerator().Generate(), name, total, base)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the API and the dashboard.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/frames", m.listFrames)
	r.HandleFunc("/api/tlb", m.listTLB)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.Assets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Handler())
		dieOnErr(err)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return port
}

func (m *Monitor) machineOr503(w http.ResponseWriter) *machine.Machine {
	if m.machine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, err := w.Write([]byte("No machine registered"))
		dieOnErr(err)
	}

	return m.machine
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	mach := m.machineOr503(w)
	if mach == nil {
		return
	}

	fmt.Fprintf(w, "{\"now\":%d}", mach.Clock().Now())
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	mach := m.machineOr503(w)
	if mach == nil {
		return
	}

	writeJSON(w, mach.Stats().Snapshot())
}

type frameRsp struct {
	Valid    bool   `json:"valid"`
	PID      uint32 `json:"pid"`
	VPN      uint64 `json:"vpn"`
	Dirty    bool   `json:"dirty"`
	TLBSlot  int    `json:"tlb_slot"`
	LastUsed uint64 `json:"last_used"`
}

func (m *Monitor) listFrames(w http.ResponseWriter, _ *http.Request) {
	mach := m.machineOr503(w)
	if mach == nil {
		return
	}

	snapshot := mach.MMU().Snapshot()
	rsp := make([]frameRsp, len(snapshot.Frames))

	for i, e := range snapshot.Frames {
		rsp[i] = frameRsp{
			Valid:    e.Valid,
			PID:      uint32(e.PID),
			VPN:      uint64(e.VPN),
			Dirty:    e.Dirty,
			TLBSlot:  e.TLBSlot,
			LastUsed: uint64(e.LastUsed),
		}
	}

	writeJSON(w, rsp)
}

type tlbEntryRsp struct {
	Valid    bool   `json:"valid"`
	VPN      uint64 `json:"vpn"`
	Frame    int    `json:"frame"`
	Use      bool   `json:"use"`
	Dirty    bool   `json:"dirty"`
	ReadOnly bool   `json:"read_only"`
}

func (m *Monitor) listTLB(w http.ResponseWriter, _ *http.Request) {
	mach := m.machineOr503(w)
	if mach == nil {
		return
	}

	entries := mach.TLB().Entries()
	rsp := make([]tlbEntryRsp, len(entries))

	for i, e := range entries {
		rsp[i] = tlbEntryRsp{
			Valid:    e.Valid,
			VPN:      uint64(e.VPN),
			Frame:    e.Frame,
			Use:      e.Use,
			Dirty:    e.Dirty,
			ReadOnly: e.ReadOnly,
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(rootOf(component))
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(rootOf(component))
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

// stateView names a function that copies the state of a running component.
type stateView struct {
	name  string
	state func() any
}

func (v stateView) Name() string {
	return v.name
}

// rootOf returns what to serialize for a registered component.
func rootOf(c sim.Named) any {
	if v, ok := c.(stateView); ok {
		return v.state()
	}

	return c
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, len(m.progressBars))
	for i, b := range m.progressBars {
		rsp[i] = b.report()
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDelay)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
