package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/sim/queueing"
)

// BufferAnalyzer uses the fill levels of buffers to find the bottleneck of a
// line. The buffer that stays fullest sits in front of the slowest stage.
type BufferAnalyzer struct {
	timeTeller sim.TimeTeller
	period     sim.VTimeInSec
	lastTime   sim.VTimeInSec

	buffers map[string]*bufferInfo
	order   []string
}

type bufferInfo struct {
	buf         queueing.Buffer
	lastLevel   int
	lastTime    sim.VTimeInSec
	levelTime   map[int]sim.VTimeInSec
	periodLevel map[int]sim.VTimeInSec
}

func weightedAverage(
	levelTime map[int]sim.VTimeInSec,
	lastLevel int,
	extra sim.VTimeInSec,
) float64 {
	sum := float64(lastLevel) * float64(extra)
	total := float64(extra)

	for level, d := range levelTime {
		sum += float64(level) * float64(d)
		total += float64(d)
	}

	if total == 0 {
		return float64(lastLevel)
	}

	return sum / total
}

// BufferAnalyzerBuilder builds buffer analyzers.
type BufferAnalyzerBuilder struct {
	timeTeller sim.TimeTeller
	period     sim.VTimeInSec
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{}
}

// WithTimeTeller sets the clock the analyzer reads.
func (b BufferAnalyzerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) BufferAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod makes the analyzer log the average levels of every period.
func (b BufferAnalyzerBuilder) WithPeriod(p sim.VTimeInSec) BufferAnalyzerBuilder {
	b.period = p
	return b
}

// Build creates the analyzer.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	if b.timeTeller == nil {
		panic(sim.NewConfigurationError("BufferAnalyzer", "time teller is not set"))
	}

	if b.period < 0 {
		panic(sim.NewConfigurationError("BufferAnalyzer", "negative period"))
	}

	return &BufferAnalyzer{
		timeTeller: b.timeTeller,
		period:     b.period,
		lastTime:   b.timeTeller.CurrentTime(),
		buffers:    make(map[string]*bufferInfo),
	}
}

// Watch starts tracking the level of buf.
func (a *BufferAnalyzer) Watch(buf queueing.Buffer) {
	if _, found := a.buffers[buf.Name()]; found {
		return
	}

	a.buffers[buf.Name()] = &bufferInfo{
		buf:         buf,
		lastLevel:   buf.Size(),
		lastTime:    a.timeTeller.CurrentTime(),
		levelTime:   make(map[int]sim.VTimeInSec),
		periodLevel: make(map[int]sim.VTimeInSec),
	}
	a.order = append(a.order, buf.Name())

	buf.AcceptHook(a)
}

// Func records a buffer level change.
func (a *BufferAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != queueing.HookPosStorePut && ctx.Pos != queueing.HookPosStoreGet {
		return
	}

	buf, ok := ctx.Domain.(queueing.Buffer)
	if !ok {
		return
	}

	info, found := a.buffers[buf.Name()]
	if !found {
		panic(sim.NewInvariantViolation("BufferAnalyzer",
			"buffer %s is not watched", buf.Name()))
	}

	now := a.timeTeller.CurrentTime()

	if a.period > 0 && a.periodIndex(now) != a.periodIndex(a.lastTime) {
		a.closePeriod(now)
	}

	a.lastTime = now

	a.advance(info, now)
	info.lastLevel = buf.Size()
}

func (a *BufferAnalyzer) periodIndex(t sim.VTimeInSec) float64 {
	return math.Floor(float64(t / a.period))
}

func (a *BufferAnalyzer) periodStart(t sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(a.periodIndex(t)) * a.period
}

func (a *BufferAnalyzer) advance(info *bufferInfo, now sim.VTimeInSec) {
	info.levelTime[info.lastLevel] += now - info.lastTime

	if a.period > 0 {
		from := max(info.lastTime, a.periodStart(now))
		info.periodLevel[info.lastLevel] += now - from
	}

	info.lastTime = now
}

func (a *BufferAnalyzer) periodAverage(
	info *bufferInfo,
	end sim.VTimeInSec,
) float64 {
	from := max(info.lastTime, end-a.period)
	if end < from {
		from = end
	}

	return weightedAverage(info.periodLevel, info.lastLevel, end-from)
}

func (a *BufferAnalyzer) closePeriod(now sim.VTimeInSec) {
	end := a.periodStart(now)

	for _, name := range a.order {
		info := a.buffers[name]

		logrus.WithFields(logrus.Fields{
			"buffer":  name,
			"period":  float64(end),
			"average": a.periodAverage(info, end),
		}).Info("buffer level")

		info.periodLevel = make(map[int]sim.VTimeInSec)
	}
}

// AverageLevel returns the time-weighted average number of items in the
// buffer up to now.
func (a *BufferAnalyzer) AverageLevel(name string) (float64, bool) {
	info, found := a.buffers[name]
	if !found {
		return 0, false
	}

	now := a.timeTeller.CurrentTime()

	return weightedAverage(info.levelTime, info.lastLevel, now-info.lastTime),
		true
}

// PeriodAverageLevel returns the average level in the current period. It
// panics if no period is set.
func (a *BufferAnalyzer) PeriodAverageLevel(name string) (float64, bool) {
	if a.period <= 0 {
		panic(sim.NewConfigurationError("BufferAnalyzer", "no period set"))
	}

	info, found := a.buffers[name]
	if !found {
		return 0, false
	}

	now := a.timeTeller.CurrentTime()
	from := max(info.lastTime, a.periodStart(now))

	return weightedAverage(info.periodLevel, info.lastLevel, now-from), true
}

// A BufferLevel summarizes the level of one buffer.
type BufferLevel struct {
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Current  int     `json:"current"`
	Average  float64 `json:"average"`

	// Fill is the average level as a fraction of the capacity.
	Fill float64 `json:"fill"`
}

// Levels returns the levels of all the watched buffers, fullest first.
func (a *BufferAnalyzer) Levels() []BufferLevel {
	levels := make([]BufferLevel, 0, len(a.order))

	for _, name := range a.order {
		info := a.buffers[name]
		avg, _ := a.AverageLevel(name)

		level := BufferLevel{
			Name:     name,
			Capacity: info.buf.Capacity(),
			Current:  info.buf.Size(),
			Average:  avg,
		}

		if level.Capacity > 0 {
			level.Fill = avg / float64(level.Capacity)
		}

		levels = append(levels, level)
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Fill > levels[j].Fill
	})

	return levels
}

// Bottleneck returns the buffer with the highest average fill.
func (a *BufferAnalyzer) Bottleneck() (BufferLevel, bool) {
	levels := a.Levels()
	if len(levels) == 0 {
		return BufferLevel{}, false
	}

	return levels[0], true
}

// Write prints the levels as aligned text.
func (a *BufferAnalyzer) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Buffer\tcapacity\tcurrent\taverage\tfill")

	for _, l := range a.Levels() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.1f%%\n",
			l.Name, l.Capacity, l.Current, l.Average, l.Fill*100)
	}

	return tw.Flush()
}
