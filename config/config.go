// Package config describes a production line in YAML and builds it.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LineConfig is the description of a whole line. Parts refer to stores,
// containers, operators and ovens by their names.
type LineConfig struct {
	Name    string  `yaml:"name"`
	Horizon float64 `yaml:"horizon"`

	Stores           []StoreConfig           `yaml:"stores"`
	Containers       []ContainerConfig       `yaml:"containers"`
	Operators        []OperatorConfig        `yaml:"operators"`
	Sources          []SourceConfig          `yaml:"sources"`
	Loaders          []LoaderConfig          `yaml:"loaders"`
	Machines         []MachineConfig         `yaml:"machines"`
	Conveyors        []ConveyorConfig        `yaml:"conveyors"`
	Ovens            []OvenConfig            `yaml:"ovens"`
	BufferingModules []BufferingModuleConfig `yaml:"buffering_modules"`
	Downloaders      []DownloaderConfig      `yaml:"downloaders"`
	Sinks            []SinkConfig            `yaml:"sinks"`
	Tasks            []TaskConfig            `yaml:"tasks"`
	Routines         []RoutineConfig         `yaml:"routines"`
}

// PowerTable maps state names to power ratings in watts.
type PowerTable map[string]float64

// StoreConfig describes a buffer between two parts.
type StoreConfig struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

// ContainerConfig describes a consumable reservoir.
type ContainerConfig struct {
	Name      string  `yaml:"name"`
	Capacity  float64 `yaml:"capacity"`
	InitLevel float64 `yaml:"init_level"`
}

// OperatorConfig describes a human operator.
type OperatorConfig struct {
	Name       string     `yaml:"name"`
	IdlePeriod float64    `yaml:"idle_period"`
	Power      PowerTable `yaml:"power"`
}

// SourceConfig describes a PCB source.
type SourceConfig struct {
	Name      string  `yaml:"name"`
	Output    string  `yaml:"output"`
	StartTime float64 `yaml:"start_time"`
	Delay     float64 `yaml:"delay"`
	PCBType   int     `yaml:"pcb_type"`
	StackSize int     `yaml:"stack_size"`
}

// LoaderConfig describes a line loader.
type LoaderConfig struct {
	Name      string     `yaml:"name"`
	Input     string     `yaml:"input"`
	Output    string     `yaml:"output"`
	StartTime float64    `yaml:"start_time"`
	Delay     float64    `yaml:"delay"`
	Power     PowerTable `yaml:"power"`
}

// ResourceConfig describes a consumable a machine needs for every item.
type ResourceConfig struct {
	Cause     string  `yaml:"cause"`
	Container string  `yaml:"container"`
	Amount    float64 `yaml:"amount"`

	// PerType scales the amount with the PCB type.
	PerType bool `yaml:"per_type"`
}

// The kinds of periodic maintenance.
const (
	SelfMaintenance     = "self"
	OperatorMaintenance = "operator"
)

// MaintenanceConfig describes the periodic maintenance of a machine.
type MaintenanceConfig struct {
	Kind  string  `yaml:"kind"`
	Every int     `yaml:"every"`
	Delay float64 `yaml:"delay"`
	Cause string  `yaml:"cause"`
}

// MachineConfig describes a machine. The processing time is either fixed
// or proportional to the number of components on the PCB.
type MachineConfig struct {
	Name             string             `yaml:"name"`
	Input            string             `yaml:"input"`
	Output           string             `yaml:"output"`
	StartTime        float64            `yaml:"start_time"`
	ProcessingTime   float64            `yaml:"processing_time"`
	TimePerComponent float64            `yaml:"time_per_component"`
	Operator         string             `yaml:"operator"`
	Resources        []ResourceConfig   `yaml:"resources"`
	Maintenance      *MaintenanceConfig `yaml:"maintenance"`
	Power            PowerTable         `yaml:"power"`
}

// ConveyorConfig describes a conveyor belt.
type ConveyorConfig struct {
	Name          string     `yaml:"name"`
	Input         string     `yaml:"input"`
	Output        string     `yaml:"output"`
	Stages        int        `yaml:"stages"`
	DelayPerStage int        `yaml:"delay_per_stage"`
	Power         PowerTable `yaml:"power"`
}

// The operational modes of ovens.
const (
	ModeAutonomous      = "autonomous"
	ModeExternalControl = "external_control"
)

// OvenConfig describes a reflow oven.
type OvenConfig struct {
	Name          string     `yaml:"name"`
	Input         string     `yaml:"input"`
	Output        string     `yaml:"output"`
	Stages        int        `yaml:"stages"`
	DelayPerStage int        `yaml:"delay_per_stage"`
	SetupTime     float64    `yaml:"setup_time"`
	Mode          string     `yaml:"mode"`
	Power         PowerTable `yaml:"power"`
}

// BufferingModuleConfig describes a buffering module. Oven optionally names
// an externally controlled oven the module switches.
type BufferingModuleConfig struct {
	Name     string     `yaml:"name"`
	Input    string     `yaml:"input"`
	Output   string     `yaml:"output"`
	Capacity int        `yaml:"capacity"`
	Oven     string     `yaml:"oven"`
	Power    PowerTable `yaml:"power"`
}

// DownloaderConfig describes a line downloader.
type DownloaderConfig struct {
	Name      string  `yaml:"name"`
	Input     string  `yaml:"input"`
	Output    string  `yaml:"output"`
	StartTime float64 `yaml:"start_time"`
	StackSize int     `yaml:"stack_size"`
}

// SinkConfig describes a sink.
type SinkConfig struct {
	Name      string  `yaml:"name"`
	Input     string  `yaml:"input"`
	StartTime float64 `yaml:"start_time"`
	Delay     float64 `yaml:"delay"`
}

// The effects a task can have on the requesting machine.
const (
	ActionRefill      = "refill"
	ActionMaintenance = "maintenance"
	ActionNone        = "none"
)

// TaskConfig assigns a task to an operator. Machine names a machine or a
// routine.
type TaskConfig struct {
	Operator   string  `yaml:"operator"`
	Cause      string  `yaml:"cause"`
	Machine    string  `yaml:"machine"`
	Delay      float64 `yaml:"delay"`
	Action     string  `yaml:"action"`
	Container  string  `yaml:"container"`
	Background bool    `yaml:"background"`
}

// RoutineConfig describes a periodic request, such as an inspection round.
type RoutineConfig struct {
	Name      string  `yaml:"name"`
	Operator  string  `yaml:"operator"`
	Cause     string  `yaml:"cause"`
	Period    float64 `yaml:"period"`
	StartTime float64 `yaml:"start_time"`
}

// Load reads and parses a YAML line description.
func Load(path string) (*LineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading line config: %w", err)
	}

	return Parse(data)
}

// Parse parses a YAML line description. Unknown fields are errors.
func Parse(data []byte) (*LineConfig, error) {
	var c LineConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing line config: %w", err)
	}

	c.applyDefaults()

	return &c, nil
}

func (c *LineConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "Line"
	}

	for i := range c.Stores {
		if c.Stores[i].Capacity == 0 {
			c.Stores[i].Capacity = 1
		}
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		if s.PCBType == 0 {
			s.PCBType = 1
		}

		if s.StackSize == 0 {
			s.StackSize = 1
		}
	}

	for i := range c.Conveyors {
		cv := &c.Conveyors[i]
		if cv.Stages == 0 {
			cv.Stages = 2
		}

		if cv.DelayPerStage == 0 {
			cv.DelayPerStage = 1
		}
	}

	for i := range c.Ovens {
		o := &c.Ovens[i]
		if o.Stages == 0 {
			o.Stages = 2
		}

		if o.DelayPerStage == 0 {
			o.DelayPerStage = 1
		}

		if o.Mode == "" {
			o.Mode = ModeAutonomous
		}
	}

	for i := range c.Tasks {
		t := &c.Tasks[i]
		if t.Action == "" {
			t.Action = ActionNone
		}

		if t.Delay == 0 {
			t.Delay = 1
		}
	}

	for i := range c.Routines {
		if c.Routines[i].Cause == "" {
			c.Routines[i].Cause = "inspection"
		}
	}
}
