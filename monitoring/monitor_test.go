package monitoring

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/sim/queueing"
)

func buildLine() *line.Line {
	l := line.NewLine("Line")
	engine := l.Engine()

	in := line.MakeStoreBuilder().
		WithCapacity(4).
		WithTimeTeller(engine).
		Build("Line.In")
	out := line.MakeStoreBuilder().
		WithCapacity(math.MaxInt).
		WithTimeTeller(engine).
		Build("Line.Out")
	solder := queueing.MakeContainerBuilder().
		WithCapacity(100).
		WithInitLevel(100).
		WithTimeTeller(engine).
		Build("Line.Solder")

	source := line.MakeSourceBuilder().
		WithEngine(engine).
		WithOutput(in).
		Build("Line.Source")
	machine := line.MakeMachineBuilder().
		WithEngine(engine).
		WithInput(in).
		WithOutput(out).
		WithProcessingTime(line.FixedTime(5)).
		Build("Line.Machine")

	Expect(l.AddStore(in)).To(Succeed())
	Expect(l.AddStore(out)).To(Succeed())
	Expect(l.AddContainer(solder)).To(Succeed())
	Expect(l.AddComponent(source)).To(Succeed())
	Expect(l.AddComponent(machine)).To(Succeed())

	return l
}

var _ = Describe("Monitor", func() {
	var (
		l      *line.Line
		m      *Monitor
		router http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		l = buildLine()
		m = NewMonitor()
		m.RegisterLine(l)
		router = m.Router()

		Expect(l.Run(12)).To(Succeed())
	})

	AfterEach(func() {
		l.Close()
	})

	It("should report the current time", func() {
		rsp := nowRsp{}
		decode(get("/api/now"), &rsp)

		Expect(rsp.Now).To(Equal(12.0))
		Expect(rsp.Paused).To(BeFalse())
	})

	It("should pause and continue", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))

		rsp := nowRsp{}
		decode(get("/api/now"), &rsp)
		Expect(rsp.Paused).To(BeTrue())

		states := []stateRsp{}
		decode(get("/api/states"), &states)
		Expect(states).To(HaveLen(2))

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		decode(get("/api/now"), &rsp)
		Expect(rsp.Paused).To(BeFalse())

		Expect(l.Run(20)).To(Succeed())
	})

	It("should list components", func() {
		names := []string{}
		decode(get("/api/list_components"), &names)

		Expect(names).To(Equal([]string{"Line.Source", "Line.Machine"}))
	})

	It("should serialize a component", func() {
		rec := get("/api/component/Line.Machine")

		Expect(rec.Code).To(Equal(http.StatusOK))

		doc := map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &doc)).To(Succeed())
		Expect(doc).To(HaveKeyWithValue("r", "0"))
		Expect(rec.Body.String()).To(ContainSubstring(`"v":"Line.Machine"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"v":"Line.In"`))
	})

	It("should serialize one field of a component", func() {
		req := url.PathEscape(
			`{"comp_name":"Line.Machine","field_name":"State"}`)
		rec := get("/api/field/" + req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"v":"busy"`))
	})

	It("should refuse unknown fields", func() {
		req := url.PathEscape(
			`{"comp_name":"Line.Machine","field_name":"Process"}`)

		Expect(get("/api/field/" + req).Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should answer 404 for unknown components", func() {
		Expect(get("/api/component/Line.Oven").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should list states with dwell times", func() {
		states := []stateRsp{}
		decode(get("/api/states"), &states)

		Expect(states[1].Component).To(Equal("Line.Machine"))
		Expect(states[1].State).To(Equal("busy"))
		Expect(states[1].Dwell["busy"]).To(Equal(12.0))
	})

	It("should sort buffers by level", func() {
		buffers := []bufferRsp{}
		decode(get("/api/buffers?sort=level"), &buffers)

		Expect(buffers).To(Equal([]bufferRsp{
			{Buffer: "Line.In", Level: 4, Cap: 4},
			{Buffer: "Line.Out", Level: 2, Cap: math.MaxInt},
		}))
	})

	It("should page buffers", func() {
		buffers := []bufferRsp{}
		decode(get("/api/buffers?limit=1&offset=1"), &buffers)

		Expect(buffers).To(HaveLen(1))
		Expect(buffers[0].Buffer).To(Equal("Line.Out"))
	})

	It("should refuse unknown sort methods", func() {
		Expect(get("/api/buffers?sort=name").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should list containers", func() {
		containers := []containerRsp{}
		decode(get("/api/containers"), &containers)

		Expect(containers).To(Equal([]containerRsp{
			{Container: "Line.Solder", Level: 100, Cap: 100},
		}))
	})

	It("should report the line", func() {
		report := map[string]any{}
		decode(get("/api/report"), &report)

		Expect(report["now"]).To(Equal(12.0))
	})

	It("should track the simulated time", func() {
		bar := m.TrackHorizon(20)
		Expect(l.Run(20)).To(Succeed())

		bars := []map[string]any{}
		decode(get("/api/progress"), &bars)

		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("Simulated time"))
		Expect(bars[0]["total"]).To(Equal(20.0))
		Expect(bars[0]["finished"]).To(Equal(20.0))

		m.CompleteProgressBar(bar)
		decode(get("/api/progress"), &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should count the finished PCBs", func() {
		out, found := l.Store("Line.Out")
		Expect(found).To(BeTrue())

		sink := line.MakeSinkBuilder().
			WithEngine(l.Engine()).
			WithInput(out).
			Build("Line.Sink")
		Expect(l.AddComponent(sink)).To(Succeed())
		m.RegisterLine(l)

		bar := m.TrackOutput(0)
		Expect(l.Run(30)).To(Succeed())

		Expect(bar.Total()).To(BeZero())
		Expect(bar.Finished()).To(Equal(uint64(sink.Count())))
		Expect(bar.Finished()).To(BeNumerically(">", 0))
	})

	It("should serve the dashboard", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("SMT Line Monitor"))
	})
})
