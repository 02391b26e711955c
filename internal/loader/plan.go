package loader

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/TudorHulban/taskpacker"
	"gopkg.in/yaml.v3"
)

// Plan holds the domain objects built from a Document.
type Plan struct {
	Resources []*taskpacker.Resource
	Tasks     []*taskpacker.Task
	Processes [][]*taskpacker.Task
	WorkUnits []*taskpacker.WorkUnit
}

// AllTasks returns standalone, process and work unit tasks, in document order.
func (p *Plan) AllTasks() []*taskpacker.Task {
	result := slices.Clone(p.Tasks)

	for _, process := range p.Processes {
		result = append(result, process...)
	}

	for _, unit := range p.WorkUnits {
		result = append(result, unit.Tasks...)
	}

	return result
}

// ProcessTasks returns the process tasks flattened.
func (p *Plan) ProcessTasks() []*taskpacker.Task {
	var result []*taskpacker.Task

	for _, process := range p.Processes {
		result = append(result, process...)
	}

	return result
}

// Load reads and builds a YAML document.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Plan, error) {
	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("loader: parse: %w", err)
	}

	return Build(&doc)
}

// Build resolves names in the document into linked domain objects.
// Follows references resolve inside the same process or work unit first,
// then against the standalone tasks.
func Build(doc *Document) (*Plan, error) {
	b := builder{
		resources: make(map[string]*taskpacker.Resource, len(doc.Resources)),
	}

	var result Plan

	for _, resourceDoc := range doc.Resources {
		if _, exists := b.resources[resourceDoc.Name]; exists {
			return nil, fmt.Errorf("loader: duplicate resource %q", resourceDoc.Name)
		}

		res, errCr := taskpacker.NewResource(
			&taskpacker.ParamsNewResource{
				Name:     resourceDoc.Name,
				FullName: resourceDoc.FullName,
				Capacity: int(resourceDoc.Capacity),
			},
		)
		if errCr != nil {
			return nil, fmt.Errorf("loader: resource %q: %w", resourceDoc.Name, errCr)
		}

		b.resources[res.Name] = res
		result.Resources = append(result.Resources, res)
	}

	standalone, errStandalone := b.group(doc.Tasks, "", nil)
	if errStandalone != nil {
		return nil, errStandalone
	}

	result.Tasks = standalone

	for ix, processDoc := range doc.Processes {
		if len(processDoc.Tasks) == 0 {
			return nil, fmt.Errorf("loader: process %d has no tasks", ix)
		}

		for _, prefix := range processPrefixes(&processDoc) {
			process, errProcess := b.group(withColor(processDoc.Tasks, processDoc.Color), prefix, standalone)
			if errProcess != nil {
				return nil, errProcess
			}

			result.Processes = append(result.Processes, process)
		}
	}

	units := make(map[string]*taskpacker.WorkUnit, len(doc.WorkUnits))

	for _, unitDoc := range doc.WorkUnits {
		unit, errUnit := b.workUnit(&unitDoc, standalone, units)
		if errUnit != nil {
			return nil, errUnit
		}

		units[unit.Name] = unit
		result.WorkUnits = append(result.WorkUnits, unit)
	}

	return &result,
		nil
}

func processPrefixes(doc *ProcessDoc) []string {
	if doc.Repeat <= 1 {
		if len(doc.Name) == 0 {
			return []string{""}
		}

		return []string{doc.Name + "_"}
	}

	result := make([]string, doc.Repeat)

	for ix := range doc.Repeat {
		result[ix] = fmt.Sprintf("%s%d_", doc.Name, ix+1)
	}

	return result
}

func withColor(docs []TaskDoc, color string) []TaskDoc {
	if len(color) == 0 {
		return docs
	}

	result := slices.Clone(docs)

	for ix := range result {
		if len(result[ix].Color) == 0 {
			result[ix].Color = color
		}
	}

	return result
}

type builder struct {
	resources map[string]*taskpacker.Resource
}

// group builds tasks that reference each other by their unprefixed names.
func (b *builder) group(docs []TaskDoc, prefix string, outside []*taskpacker.Task) ([]*taskpacker.Task, error) {
	result := make([]*taskpacker.Task, len(docs))
	byName := make(map[string]*taskpacker.Task, len(docs))

	for ix := range docs {
		task, errCr := b.task(&docs[ix], prefix)
		if errCr != nil {
			return nil, errCr
		}

		if _, exists := byName[docs[ix].Name]; exists {
			return nil, fmt.Errorf("loader: duplicate task %q", task.Name)
		}

		byName[docs[ix].Name] = task
		result[ix] = task
	}

	for ix, doc := range docs {
		for _, name := range doc.Follows {
			predecessor, exists := byName[name]
			if !exists {
				predecessor = findTask(outside, name)
			}

			if predecessor == nil {
				return nil,
					fmt.Errorf(
						"loader: task %q: unknown predecessor %q",

						result[ix].Name,
						name,
					)
			}

			result[ix].Follows = append(result[ix].Follows, predecessor)
		}
	}

	return result,
		nil
}

func (b *builder) task(doc *TaskDoc, prefix string) (*taskpacker.Task, error) {
	resources := make([]*taskpacker.Resource, 0, len(doc.Resources))

	for _, name := range doc.Resources {
		res, exists := b.resources[name]
		if !exists {
			return nil, fmt.Errorf("loader: task %q: unknown resource %q", doc.Name, name)
		}

		resources = append(resources, res)
	}

	task, errCr := taskpacker.NewTask(
		&taskpacker.ParamsNewTask{
			Name:      prefix + doc.Name,
			Resources: resources,
			Color:     doc.Color,

			MaxWait:            copyValue(doc.MaxWait),
			DueTime:            copyValue(doc.DueTime),
			ScheduledStart:     copyValue(doc.ScheduledStart),
			ScheduledResources: maps.Clone(doc.ScheduledResources),

			Duration: doc.Duration,
			Priority: doc.Priority,
		},
	)
	if errCr != nil {
		return nil, fmt.Errorf("loader: task %q: %w", doc.Name, errCr)
	}

	return task,
		nil
}

func (b *builder) workUnit(doc *WorkUnitDoc, outside []*taskpacker.Task, units map[string]*taskpacker.WorkUnit) (*taskpacker.WorkUnit, error) {
	tasks, errTasks := b.group(doc.Tasks, "", outside)
	if errTasks != nil {
		return nil, fmt.Errorf("loader: work unit %q: %w", doc.Name, errTasks)
	}

	relations := make([]taskpacker.Relation, 0, len(doc.Relations)+len(doc.Gaps))

	for _, relationDoc := range doc.Relations {
		kind, errKind := taskpacker.ParseRelationKind(relationDoc.Kind)
		if errKind != nil {
			return nil, fmt.Errorf("loader: work unit %q: %w", doc.Name, errKind)
		}

		relations = append(
			relations,
			taskpacker.Relation{
				From:   relationDoc.From,
				To:     relationDoc.To,
				Kind:   kind,
				Offset: relationDoc.Offset,
			},
		)
	}

	for _, gap := range doc.Gaps {
		from := findTask(tasks, gap.From)
		if from == nil {
			return nil, fmt.Errorf("loader: work unit %q: unknown gap task %q", doc.Name, gap.From)
		}

		relations = append(relations, taskpacker.GapRelations(from, gap.To, gap.Min, gap.Max)...)
	}

	parents := make([]*taskpacker.WorkUnit, 0, len(doc.Parents))

	for _, name := range doc.Parents {
		parent, exists := units[name]
		if !exists {
			return nil, fmt.Errorf("loader: work unit %q: parent %q must be declared before it", doc.Name, name)
		}

		parents = append(parents, parent)
	}

	unit, errCr := taskpacker.NewWorkUnit(
		&taskpacker.ParamsNewWorkUnit{
			Name:      doc.Name,
			Tasks:     tasks,
			Relations: relations,
			Parents:   parents,

			DueTime:        copyValue(doc.DueTime),
			ScheduledStart: copyValue(doc.ScheduledStart),

			Priority: doc.Priority,
		},
	)
	if errCr != nil {
		return nil, fmt.Errorf("loader: work unit %q: %w", doc.Name, errCr)
	}

	return unit,
		nil
}

func findTask(tasks []*taskpacker.Task, name string) *taskpacker.Task {
	for _, task := range tasks {
		if task.Name == name {
			return task
		}
	}

	return nil
}

func copyValue(value *int64) *int64 {
	if value == nil {
		return nil
	}

	result := *value

	return &result
}
