// Package monitoring serves the state of a running line over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/monitoring/web"
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
)

// Monitor turns a line run into a server that can be watched and paused from
// a browser.
type Monitor struct {
	engine     sim.Engine
	line       *line.Line
	components []line.Component
	buffers    []queueing.Buffer
	containers []*queueing.Container
	portNumber int

	pauseLock  sync.Mutex
	userPaused bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	ids              sim.IDGenerator
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{ids: sim.NewSequentialIDGenerator()}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		logrus.Warnf("port %d is not allowed for the monitoring server, "+
			"using a random port instead", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterLine registers the engine, components, stores and containers of a
// line.
func (m *Monitor) RegisterLine(l *line.Line) {
	m.line = l
	m.engine = l.Engine()
	m.components = l.Components()

	m.buffers = m.buffers[:0]
	for _, s := range l.Stores() {
		m.buffers = append(m.buffers, s)
	}

	m.containers = l.Containers()
}

// CreateProgressBar adds a bar to the dashboard.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        m.ids.Generate(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// TrackHorizon shows the progress of the simulated time toward horizon.
func (m *Monitor) TrackHorizon(horizon sim.VTimeInSec) *ProgressBar {
	bar := m.CreateProgressBar("Simulated time", uint64(horizon))
	m.engine.AcceptHook(horizonProgress{bar: bar})

	return bar
}

// TrackOutput counts the PCBs the sinks of the line finish. A target of 0
// leaves the bar open ended.
func (m *Monitor) TrackOutput(target uint64) *ProgressBar {
	bar := m.CreateProgressBar("PCBs finished", target)
	for _, s := range m.line.Sinks() {
		s.AcceptHook(outputProgress{bar: bar})
	}

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

// Router returns the handler of all the monitoring endpoints.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/states", m.listStates)
	r.HandleFunc("/api/buffers", m.listBuffers)
	r.HandleFunc("/api/containers", m.listContainers)
	r.HandleFunc("/api/report", m.report)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(web.Handler())

	return r
}

// StartServer starts serving in the background and returns the URL of the
// dashboard.
func (m *Monitor) StartServer() (string, error) {
	http.Handle("/", m.Router())

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		if err := http.Serve(listener, nil); err != nil {
			logrus.WithError(err).Error("monitoring server stopped")
		}
	}()

	return url, nil
}

// withEngineHeld runs f while no event is being handled, so that f sees a
// consistent line.
func (m *Monitor) withEngineHeld(f func()) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	if !m.userPaused {
		m.engine.Pause()
		defer m.engine.Continue()
	}

	f()
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	m.engine.Pause()
	m.userPaused = true

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	m.engine.Continue()
	m.userPaused = false

	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Now    float64 `json:"now"`
	Paused bool    `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	paused := m.userPaused
	m.pauseLock.Unlock()

	writeJSON(w, nowRsp{
		Now:    float64(m.engine.CurrentTime()),
		Paused: paused,
	})
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

	buf := bytes.NewBuffer(nil)

	var err error

	m.withEngineHeld(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(viewComponent(component, m.engine.CurrentTime()))
		serializer.SetMaxDepth(2)
		err = serializer.Serialize(buf)
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeBytes(w, buf.Bytes())
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	buf := bytes.NewBuffer(nil)

	m.withEngineHeld(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(viewComponent(component, m.engine.CurrentTime()))
		serializer.SetMaxDepth(1)

		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			return
		}

		err = serializer.Serialize(buf)
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeBytes(w, buf.Bytes())
}

type stateRsp struct {
	Component string             `json:"component"`
	State     string             `json:"state"`
	Dwell     map[string]float64 `json:"dwell"`
}

func (m *Monitor) listStates(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]stateRsp, 0, len(m.components))

	m.withEngineHeld(func() {
		now := m.engine.CurrentTime()

		for _, c := range m.components {
			sm := c.StateMachine()
			dwell := make(map[string]float64)

			for s, d := range sm.DwellTimes(now) {
				dwell[string(s)] = float64(d)
			}

			rsp = append(rsp, stateRsp{
				Component: c.Name(),
				State:     string(sm.Current()),
				Dwell:     dwell,
			})
		}
	})

	writeJSON(w, rsp)
}

type bufferRsp struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func (m *Monitor) listBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := buffersParseParams(r)
	if err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	var rsp []bufferRsp

	m.withEngineHeld(func() {
		for _, b := range m.sortAndSelectBuffers(sortMethod, limit, offset) {
			rsp = append(rsp, bufferRsp{
				Buffer: b.Name(),
				Level:  b.Size(),
				Cap:    b.Capacity(),
			})
		}
	})

	if rsp == nil {
		rsp = []bufferRsp{}
	}

	writeJSON(w, rsp)
}

func buffersParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	if limit < 0 || offset < 0 {
		return "", 0, 0, errors.New("limit and offset must not be negative")
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	return strconv.Atoi(str)
}

func bufferPercent(b queueing.Buffer) float64 {
	return float64(b.Size()) / float64(b.Capacity())
}

// sortAndSelectBuffers returns the fullest buffers first. A limit of 0
// returns all buffers after the offset.
func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []queueing.Buffer {
	sortedBuffers := make([]queueing.Buffer, len(m.buffers))
	copy(sortedBuffers, m.buffers)

	byLevel := func(i, j int) (less, tie bool) {
		sizeI, sizeJ := sortedBuffers[i].Size(), sortedBuffers[j].Size()
		return sizeI > sizeJ, sizeI == sizeJ
	}

	byPercent := func(i, j int) (less, tie bool) {
		pI, pJ := bufferPercent(sortedBuffers[i]), bufferPercent(sortedBuffers[j])
		return pI > pJ, pI == pJ
	}

	first, second := byPercent, byLevel
	if sortMethod == "level" {
		first, second = byLevel, byPercent
	}

	sort.SliceStable(sortedBuffers, func(i, j int) bool {
		if less, tie := first(i, j); !tie {
			return less
		}

		less, _ := second(i, j)

		return less
	})

	if offset > len(sortedBuffers) {
		offset = len(sortedBuffers)
	}

	end := len(sortedBuffers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sortedBuffers[offset:end]
}

type containerRsp struct {
	Container string  `json:"container"`
	Level     float64 `json:"level"`
	Cap       float64 `json:"cap"`
	Waiting   int     `json:"waiting"`
}

func (m *Monitor) listContainers(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]containerRsp, 0, len(m.containers))

	m.withEngineHeld(func() {
		for _, c := range m.containers {
			rsp = append(rsp, containerRsp{
				Container: c.Name(),
				Level:     c.Level(),
				Cap:       c.Capacity(),
				Waiting:   c.NumWaiting(),
			})
		}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) report(w http.ResponseWriter, _ *http.Request) {
	if m.line == nil {
		http.Error(w, "no line registered", http.StatusNotFound)
		return
	}

	var rsp any

	m.withEngineHeld(func() {
		rsp = m.line.Report()
	})

	writeJSON(w, rsp)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) line.Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	http.Error(w, "Component not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeBytes(w, data)
}

func writeBytes(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		logrus.WithError(err).Warn("failed to write monitoring response")
	}
}
