// Package loader reads scheduling problems from YAML documents and writes
// committed schedules back in the same format.
package loader

import (
	"fmt"

	"github.com/TudorHulban/taskpacker"
	"gopkg.in/yaml.v3"
)

// Capacity is a resource capacity. In YAML the value "inf" stands for
// an unbounded resource, in JSON -1 does.
type Capacity int

func (c *Capacity) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "inf" {
		*c = Capacity(taskpacker.CapacityUnbounded)

		return nil
	}

	var value int

	if err := node.Decode(&value); err != nil {
		return fmt.Errorf("loader: capacity %q: %w", node.Value, err)
	}

	*c = Capacity(value)

	return nil
}

func (c Capacity) MarshalYAML() (any, error) {
	if c == taskpacker.CapacityUnbounded {
		return "inf", nil
	}

	return int(c), nil
}

type ResourceDoc struct {
	Name     string   `yaml:"name" json:"name"`
	FullName string   `yaml:"full_name,omitempty" json:"full_name,omitempty"`
	Capacity Capacity `yaml:"capacity,omitempty" json:"capacity,omitempty" doc:"Number of slots, -1 for unbounded. Zero means 1."`
}

type TaskDoc struct {
	Name      string   `yaml:"name" json:"name"`
	Resources []string `yaml:"resources" json:"resources"`
	Duration  int64    `yaml:"duration" json:"duration"`

	Follows  []string `yaml:"follows,omitempty" json:"follows,omitempty"`
	MaxWait  *int64   `yaml:"max_wait,omitempty" json:"max_wait,omitempty"`
	DueTime  *int64   `yaml:"due_time,omitempty" json:"due_time,omitempty"`
	Priority int64    `yaml:"priority,omitempty" json:"priority,omitempty"`
	Color    string   `yaml:"color,omitempty" json:"color,omitempty"`

	ScheduledStart     *int64         `yaml:"scheduled_start,omitempty" json:"scheduled_start,omitempty"`
	ScheduledResources map[string]int `yaml:"scheduled_resources,omitempty" json:"scheduled_resources,omitempty"`
}

// ProcessDoc is a chain of tasks solved together by the series scheduler.
// Repeat > 1 expands it into numbered copies, e.g. batch1_wash, batch2_wash.
type ProcessDoc struct {
	Name   string    `yaml:"name,omitempty" json:"name,omitempty"`
	Repeat int       `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Color  string    `yaml:"color,omitempty" json:"color,omitempty" doc:"color of the tasks that do not set one"`
	Tasks  []TaskDoc `yaml:"tasks" json:"tasks"`
}

type RelationDoc struct {
	From   string `yaml:"from" json:"from"`
	To     string `yaml:"to" json:"to"`
	Kind   string `yaml:"kind" json:"kind" enum:"at_least,at_most,equals"`
	Offset int64  `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// GapDoc bounds the time between the end of From and the start of To.
type GapDoc struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
	Min  *int64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max  *int64 `yaml:"max,omitempty" json:"max,omitempty"`
}

type WorkUnitDoc struct {
	Name      string        `yaml:"name" json:"name"`
	Tasks     []TaskDoc     `yaml:"tasks" json:"tasks"`
	Relations []RelationDoc `yaml:"relations,omitempty" json:"relations,omitempty"`
	Gaps      []GapDoc      `yaml:"gaps,omitempty" json:"gaps,omitempty"`
	Parents   []string      `yaml:"parents,omitempty" json:"parents,omitempty"`

	DueTime        *int64 `yaml:"due_time,omitempty" json:"due_time,omitempty"`
	ScheduledStart *int64 `yaml:"scheduled_start,omitempty" json:"scheduled_start,omitempty"`
	Priority       int64  `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// Document is the file format. Tasks holds standalone tasks, typically
// already committed ones blocking resources for later solves.
type Document struct {
	Resources []ResourceDoc `yaml:"resources" json:"resources"`
	Tasks     []TaskDoc     `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	Processes []ProcessDoc  `yaml:"processes,omitempty" json:"processes,omitempty"`
	WorkUnits []WorkUnitDoc `yaml:"work_units,omitempty" json:"work_units,omitempty"`
}
