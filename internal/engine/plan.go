package engine

import (
	"fmt"
	"sort"
	"strings"

	"asset-bundler/internal/vfs"
)

// plan is a validated task set with dependency edges resolved to indices.
type plan struct {
	tasks      []Task
	byName     map[string]int
	byOutput   map[string]int
	deps       [][]int // sorted, deduplicated
	dependents [][]int
}

func newPlan(tasks []Task, registry *Registry) (*plan, error) {
	p := &plan{
		tasks:    tasks,
		byName:   make(map[string]int, len(tasks)),
		byOutput: make(map[string]int, len(tasks)),
	}
	for i, t := range tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: task %d has no name", ErrInvalidTask, i)
		}
		if t.Output == "" {
			return nil, fmt.Errorf("%w: %s has no output", ErrInvalidTask, t.Name)
		}
		if _, dup := p.byName[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate task name %s", ErrInvalidTask, t.Name)
		}
		out := vfs.Clean(t.Output)
		if other, dup := p.byOutput[out]; dup {
			return nil, fmt.Errorf("%w: %s and %s both produce %s", ErrInvalidTask, tasks[other].Name, t.Name, out)
		}
		if _, ok := registry.Lookup(t.Compiler); !ok {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownCompiler, t.Compiler, t.Name)
		}
		p.byName[t.Name] = i
		p.byOutput[out] = i
	}

	p.deps = make([][]int, len(tasks))
	p.dependents = make([][]int, len(tasks))
	for i, t := range tasks {
		set := make(map[int]struct{})
		for _, d := range t.Deps {
			j, ok := p.byName[d]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on unknown task %s", ErrInvalidTask, t.Name, d)
			}
			set[j] = struct{}{}
		}
		for _, in := range t.Inputs {
			if j, ok := p.byOutput[vfs.Clean(in)]; ok {
				set[j] = struct{}{}
			}
		}
		if _, self := set[i]; self {
			return nil, fmt.Errorf("%w: %s depends on itself", ErrCycle, t.Name)
		}
		for j := range set {
			p.deps[i] = append(p.deps[i], j)
			p.dependents[j] = append(p.dependents[j], i)
		}
		sort.Ints(p.deps[i])
	}
	for i := range p.dependents {
		sort.Ints(p.dependents[i])
	}

	if err := p.checkAcyclic(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *plan) checkAcyclic() error {
	const (
		unvisited = iota
		active
		finished
	)
	mark := make([]int, len(p.tasks))
	var stack []string
	var visit func(i int) error
	visit = func(i int) error {
		switch mark[i] {
		case active:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(stack, " -> "), p.tasks[i].Name)
		case finished:
			return nil
		}
		mark[i] = active
		stack = append(stack, p.tasks[i].Name)
		for _, d := range p.deps[i] {
			if err := visit(d); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		mark[i] = finished
		return nil
	}
	for i := range p.tasks {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}
