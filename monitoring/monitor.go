// Package monitoring turns a set of memory engines into a small web server
// that exposes their state for external inspection.
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
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/memsim/paging"
	"github.com/sarchlab/memsim/partition"
)

// Monitor exposes registered engines over HTTP so that an external tool can
// inspect block lists, page tables, and frame tables.
type Monitor struct {
	partitions []*partition.Allocator
	pagings    []*paging.PagedMemory
	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterPartition registers a partition allocator to be monitored.
func (m *Monitor) RegisterPartition(a *partition.Allocator) {
	m.partitions = append(m.partitions, a)
}

// RegisterPaging registers a paged memory engine to be monitored.
func (m *Monitor) RegisterPaging(p *paging.PagedMemory) {
	m.pagings = append(m.pagings, p)
}

// StartServer starts the monitor as a web server. It returns the URL the
// server listens on.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()

	r.HandleFunc("/api/partitions", m.listPartitions)
	r.HandleFunc("/api/partition/{name}", m.partitionStatus)
	r.HandleFunc("/api/pagings", m.listPagings)
	r.HandleFunc("/api/paging/{name}", m.pagingStatus)
	r.HandleFunc("/api/engine/{name}", m.engineState)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring memory engines with %s\n", url)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) listPartitions(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.partitions))
	for _, a := range m.partitions {
		names = append(names, a.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listPagings(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.pagings))
	for _, p := range m.pagings {
		names = append(names, p.Name())
	}

	writeJSON(w, names)
}

type blockRsp struct {
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Size      uint64 `json:"size"`
	Allocated bool   `json:"allocated"`
	PID       string `json:"pid,omitempty"`
}

type partitionRsp struct {
	Name     string     `json:"name"`
	Capacity uint64     `json:"capacity"`
	Blocks   []blockRsp `json:"blocks"`
}

func (m *Monitor) partitionStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	allocator := m.findPartitionOr404(w, name)
	if allocator == nil {
		return
	}

	rsp := partitionRsp{
		Name:     allocator.Name(),
		Capacity: allocator.Capacity(),
	}

	for _, b := range allocator.Blocks() {
		rsp.Blocks = append(rsp.Blocks, blockRsp{
			Start:     b.Start,
			End:       b.End(),
			Size:      b.Size,
			Allocated: b.Allocated,
			PID:       b.PID,
		})
	}

	writeJSON(w, rsp)
}

type pageRsp struct {
	PageNo   int    `json:"page_no"`
	Resident bool   `json:"resident"`
	FrameNo  int    `json:"frame_no"`
	Dirty    bool   `json:"dirty"`
	DiskTag  string `json:"disk_tag"`
}

type frameRsp struct {
	Index     int  `json:"index"`
	Mapped    bool `json:"mapped"`
	PageNo    int  `json:"page_no"`
	Allocated bool `json:"allocated"`
}

type jobRsp struct {
	ID         string `json:"id"`
	Size       uint64 `json:"size"`
	PageCount  int    `json:"page_count"`
	FrameCount int    `json:"frame_count"`
}

type pagingRsp struct {
	Name      string     `json:"name"`
	Job       *jobRsp    `json:"job,omitempty"`
	PageTable []pageRsp  `json:"page_table"`
	Frames    []frameRsp `json:"frames"`
}

func (m *Monitor) pagingStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	engine := m.findPagingOr404(w, name)
	if engine == nil {
		return
	}

	rsp := pagingRsp{Name: engine.Name()}

	if job, ok := engine.CurrentJob(); ok {
		rsp.Job = &jobRsp{
			ID:         job.ID,
			Size:       job.Size,
			PageCount:  job.PageCount,
			FrameCount: job.FrameCount,
		}
	}

	for _, p := range engine.PageTable() {
		rsp.PageTable = append(rsp.PageTable, pageRsp{
			PageNo:   p.PageNo,
			Resident: p.Resident,
			FrameNo:  p.FrameNo,
			Dirty:    p.Dirty,
			DiskTag:  p.DiskTag,
		})
	}

	for _, f := range engine.Frames() {
		rsp.Frames = append(rsp.Frames, frameRsp{
			Index:     f.Index,
			Mapped:    f.Mapped,
			PageNo:    f.PageNo,
			Allocated: f.Allocated,
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) engineState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var engine any
	for _, a := range m.partitions {
		if a.Name() == name {
			engine = a
		}
	}
	for _, p := range m.pagings {
		if p.Name() == name {
			engine = p
		}
	}

	if engine == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Engine not found"))
		dieOnErr(err)

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(engine)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findPartitionOr404(
	w http.ResponseWriter,
	name string,
) *partition.Allocator {
	for _, a := range m.partitions {
		if a.Name() == name {
			return a
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Engine not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) findPagingOr404(
	w http.ResponseWriter,
	name string,
) *paging.PagedMemory {
	for _, p := range m.pagings {
		if p.Name() == name {
			return p
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Engine not found"))
	dieOnErr(err)

	return nil
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

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
