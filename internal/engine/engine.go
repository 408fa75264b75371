package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"asset-bundler/internal/cache"
	"asset-bundler/internal/logging"
	"asset-bundler/internal/vfs"
)

// Resolver reads source resources. A LayeredFS is one.
type Resolver interface {
	Resolve(p string) (*vfs.Resource, error)
}

// Config tunes a build.
type Config struct {
	Toolchain string // engine/toolchain version mixed into every cache key
	Workers   int    // parallel tasks, NumCPU when <= 0
	FailFast  bool   // stop dispatching new tasks after the first failure
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	Name     string
	Output   string
	State    State
	Cached   bool
	Key      cache.Key
	Data     []byte
	Duration time.Duration
	Err      error
}

// Result is the outcome of a whole build.
type Result struct {
	Tasks    []TaskResult // in task declaration order
	Duration time.Duration
}

// Success reports whether every task finished.
func (r *Result) Success() bool {
	for _, t := range r.Tasks {
		if t.State != Done {
			return false
		}
	}
	return true
}

// Failed returns the tasks that failed or were skipped.
func (r *Result) Failed() []TaskResult {
	var out []TaskResult
	for _, t := range r.Tasks {
		if t.State != Done {
			out = append(out, t)
		}
	}
	return out
}

// Outputs maps each finished output path to its bytes.
func (r *Result) Outputs() map[string][]byte {
	out := make(map[string][]byte, len(r.Tasks))
	for _, t := range r.Tasks {
		if t.State == Done {
			out[vfs.Clean(t.Output)] = t.Data
		}
	}
	return out
}

// Engine executes task sets against a filesystem, a cache and a set of
// compilers.
type Engine struct {
	fs       Resolver
	cache    cache.Backend
	registry *Registry
	cfg      Config
}

// New returns an engine. All collaborators are required.
func New(fs Resolver, backend cache.Backend, registry *Registry, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{fs: fs, cache: backend, registry: registry, cfg: cfg}
}

type job struct {
	index int
	deps  map[string][]byte
}

// Run builds tasks. Independent tasks run in parallel; a task starts only
// after every task it depends on is done. Failed tasks do not stop
// independent ones unless FailFast is set, and their dependents are
// skipped. Tasks already running always finish.
//
// The returned error covers an invalid task set only; task failures are in
// the Result.
func (e *Engine) Run(ctx context.Context, tasks []Task) (*Result, error) {
	p, err := newPlan(tasks, e.registry)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	log := logging.Logger()

	results := make([]TaskResult, len(tasks))
	for i, t := range tasks {
		results[i] = TaskResult{Name: t.Name, Output: vfs.Clean(t.Output), State: Pending}
	}

	waiting := make([]int, len(tasks))
	var ready []int
	for i := range tasks {
		waiting[i] = len(p.deps[i])
		if waiting[i] == 0 {
			ready = append(ready, i)
		}
	}

	jobs := make(chan job)
	done := make(chan TaskResult)
	workers := min(e.cfg.Workers, max(1, len(tasks)))
	for w := 0; w < workers; w++ {
		go func() {
			for j := range jobs {
				done <- e.runTask(ctx, tasks[j.index], j.deps)
			}
		}()
	}

	inFlight := 0
	stopped := false
	for {
		for !stopped && inFlight < workers && len(ready) > 0 {
			if ctx.Err() != nil {
				stopped = true
				break
			}
			i := ready[0]
			ready = ready[1:]
			deps := make(map[string][]byte, len(p.deps[i]))
			for _, d := range p.deps[i] {
				deps[results[d].Output] = results[d].Data
			}
			jobs <- job{index: i, deps: deps}
			inFlight++
		}
		if inFlight == 0 {
			break
		}

		r := <-done
		inFlight--
		i := p.byName[r.Name]
		results[i] = r
		taskCompletionsTotal.WithLabelValues(string(r.State), fmt.Sprint(r.Cached)).Inc()

		if r.State != Done {
			log.Error("task failed", "task", r.Name, "err", r.Err)
			e.skipDependents(p, results, i)
			if e.cfg.FailFast {
				stopped = true
			}
			continue
		}
		log.Debug("task done", "task", r.Name, "cached", r.Cached, "bytes", len(r.Data), "duration", r.Duration)
		for _, d := range p.dependents[i] {
			waiting[d]--
			if waiting[d] == 0 && results[d].State == Pending {
				ready = insertSorted(ready, d)
			}
		}
	}
	close(jobs)

	for i := range results {
		if results[i].State == Pending {
			results[i].State = Skipped
			results[i].Err = &TaskError{Task: results[i].Name, Err: ErrAborted}
			taskCompletionsTotal.WithLabelValues(string(Skipped), "false").Inc()
		}
	}

	res := &Result{Tasks: results, Duration: time.Since(start)}
	log.Info("build finished", "tasks", len(tasks), "failed", len(res.Failed()), "duration", res.Duration)
	return res, nil
}

// skipDependents marks every task downstream of i as skipped.
func (e *Engine) skipDependents(p *plan, results []TaskResult, i int) {
	queue := append([]int(nil), p.dependents[i]...)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if results[d].State != Pending {
			continue
		}
		results[d].State = Skipped
		results[d].Err = &TaskError{Task: results[d].Name, Err: fmt.Errorf("%w: %s", ErrDependency, results[i].Name)}
		taskCompletionsTotal.WithLabelValues(string(Skipped), "false").Inc()
		queue = append(queue, p.dependents[d]...)
	}
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
