package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smtline/smtline/config"
	"github.com/smtline/smtline/datarecording"
	"github.com/smtline/smtline/line"
	"github.com/smtline/smtline/monitoring"
	"github.com/smtline/smtline/sim"
	"github.com/smtline/smtline/stats"
	"github.com/smtline/smtline/tracing"
)

type runOptions struct {
	configPath    string
	horizon       float64
	logLevel      string
	record        string
	recordBuffers bool
	monitor       bool
	monitorPort   int
	open          bool
	json          bool

	trace          string
	analyzeBuffers bool
	analyzePeriod  float64
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a line and print its report.",
	Long: `Run builds the line described by --config, simulates it up to the ` +
		`horizon and prints the report. The log level, the recording ` +
		`database and the monitor port default to SMTLINE_LOG_LEVEL, ` +
		`SMTLINE_RECORD_DB and SMTLINE_MONITOR_PORT, which may also be ` +
		`set in a .env file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDefaults(cmd, &runOpts)
		return runLine(cmd, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.configPath, "config", "c", "",
		"the YAML file that describes the line")
	f.Float64Var(&runOpts.horizon, "horizon", 0,
		"the simulated seconds to run, overriding the configuration")
	f.StringVar(&runOpts.logLevel, "log-level", "info",
		"the log level (trace, debug, info, warn, error)")
	f.StringVar(&runOpts.record, "record", "",
		"record the run into this SQLite database")
	f.BoolVar(&runOpts.recordBuffers, "record-buffers", false,
		"also record every store put and get")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the monitoring dashboard while the line runs")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"the port of the monitoring dashboard, 0 picks a free one")
	f.BoolVar(&runOpts.open, "open", false,
		"open the monitoring dashboard in a browser")
	f.BoolVar(&runOpts.json, "json", false, "print the report as JSON")
	f.StringVar(&runOpts.trace, "trace", "",
		"write the state intervals of every component into this CSV file")
	f.BoolVar(&runOpts.analyzeBuffers, "analyze-buffers", false,
		"report the average fill of every store to locate the bottleneck")
	f.Float64Var(&runOpts.analyzePeriod, "analyze-period", 0,
		"also log the store levels of every period of this many seconds")

	_ = runCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(runCmd)
}

func applyDefaults(cmd *cobra.Command, o *runOptions) {
	flags := cmd.Flags()

	if !flags.Changed("log-level") && defaults.LogLevel != "" {
		o.logLevel = defaults.LogLevel
	}

	if !flags.Changed("record") && defaults.RecordDB != "" {
		o.record = defaults.RecordDB
	}

	if !flags.Changed("monitor-port") && defaults.MonitorPort != 0 {
		o.monitorPort = defaults.MonitorPort
	}
}

func runLine(cmd *cobra.Command, o runOptions) error {
	if err := setLogLevel(o.logLevel); err != nil {
		return err
	}

	c, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	horizon := c.Horizon
	if o.horizon > 0 {
		horizon = o.horizon
	}

	if horizon <= 0 {
		return errors.New("no horizon given in the configuration or by --horizon")
	}

	l, err := c.Build()
	if err != nil {
		return err
	}
	defer l.Close()

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		l.Engine().AcceptHook(sim.NewEventLogger(logrus.StandardLogger()))
	}

	if o.record != "" {
		closeRecorder, err := startRecording(l, o)
		if err != nil {
			return err
		}
		defer closeRecorder()
	}

	if o.monitor {
		if err := startMonitor(l, sim.VTimeInSec(horizon), o); err != nil {
			return err
		}
	}

	var trace *tracing.CSVTraceWriter
	if o.trace != "" {
		trace = tracing.NewCSVTraceWriter(strings.TrimSuffix(o.trace, ".csv"))
		if err := trace.Init(); err != nil {
			return err
		}
		defer trace.Close()

		for _, comp := range l.Components() {
			trace.Watch(comp.StateMachine(), l.Now())
		}
	}

	var analyzer *stats.BufferAnalyzer
	if o.analyzeBuffers {
		analyzer = stats.MakeBufferAnalyzerBuilder().
			WithTimeTeller(l.Engine()).
			WithPeriod(sim.VTimeInSec(o.analyzePeriod)).
			Build()

		for _, s := range l.Stores() {
			analyzer.Watch(s)
		}
	}

	logrus.WithFields(logrus.Fields{
		"line":    c.Name,
		"horizon": horizon,
	}).Info("running line")

	if err := l.Run(sim.VTimeInSec(horizon)); err != nil {
		return fmt.Errorf("running line %s: %w", c.Name, err)
	}

	if trace != nil {
		trace.Finish(l.Now())
	}

	return printReport(cmd, l, analyzer, o.json)
}

func startRecording(l *line.Line, o runOptions) (func(), error) {
	path := strings.TrimSuffix(o.record, ".sqlite3")

	if _, err := os.Stat(path + ".sqlite3"); err == nil {
		return nil, fmt.Errorf("recording %s.sqlite3 already exists", path)
	}

	recorder := datarecording.New(path)
	datarecording.NewLineRecorder(recorder, o.recordBuffers).Attach(l)

	return func() {
		if err := recorder.Close(); err != nil {
			logrus.WithError(err).Error("closing recording")
		}
	}, nil
}

func startMonitor(l *line.Line, horizon sim.VTimeInSec, o runOptions) error {
	m := monitoring.NewMonitor().WithPortNumber(o.monitorPort)
	m.RegisterLine(l)
	m.TrackHorizon(horizon)
	m.TrackOutput(0)

	url, err := m.StartServer()
	if err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}

	if o.open {
		if err := browser.OpenURL(url); err != nil {
			logrus.WithError(err).Warn("cannot open the dashboard")
		}
	}

	return nil
}

type jsonReport struct {
	stats.LineReport

	Buffers []stats.BufferLevel `json:"buffers,omitempty"`
}

func printReport(
	cmd *cobra.Command,
	l *line.Line,
	analyzer *stats.BufferAnalyzer,
	asJSON bool,
) error {
	report := l.Report()
	out := cmd.OutOrStdout()

	if asJSON {
		r := jsonReport{LineReport: report}
		if analyzer != nil {
			r.Buffers = analyzer.Levels()
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(r)
	}

	if err := report.Write(out); err != nil {
		return err
	}

	if analyzer == nil {
		return nil
	}

	fmt.Fprintln(out)

	return analyzer.Write(out)
}
