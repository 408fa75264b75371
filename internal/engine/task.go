// Package engine runs build tasks: it keys every task on its inputs, serves
// what it can from the cache and compiles the rest on a worker pool,
// respecting dependencies between tasks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"asset-bundler/internal/vfs"
)

var (
	ErrInvalidTask     = errors.New("engine: invalid task")
	ErrCycle           = errors.New("engine: dependency cycle")
	ErrUnknownCompiler = errors.New("engine: unknown compiler")
	ErrDependency      = errors.New("engine: dependency failed")
	ErrAborted         = errors.New("engine: build aborted")
)

// Options are the build options a compiler sees. They are part of the
// cache key.
type Options map[string]string

// Compiler turns the resolved inputs of a task into its output bytes. It
// must be a pure function of its inputs and options.
type Compiler interface {
	Compile(ctx context.Context, inputs []*vfs.Resource, opts Options) ([]byte, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, inputs []*vfs.Resource, opts Options) ([]byte, error)

func (f CompilerFunc) Compile(ctx context.Context, inputs []*vfs.Resource, opts Options) ([]byte, error) {
	return f(ctx, inputs, opts)
}

// Registry maps compiler names to implementations. It is filled at start-up
// and handed to the engine; it is safe for concurrent lookups afterwards.
type Registry struct {
	mu        sync.RWMutex
	compilers map[string]Compiler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{compilers: make(map[string]Compiler)}
}

// Register adds c under name. Names can be registered once.
func (r *Registry) Register(name string, c Compiler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.compilers[name]; exists {
		return fmt.Errorf("engine: compiler %q already registered", name)
	}
	r.compilers[name] = c
	return nil
}

// Lookup returns the compiler registered under name.
func (r *Registry) Lookup(name string) (Compiler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.compilers[name]
	return c, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.compilers))
	for n := range r.compilers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Task produces one output from declared inputs.
//
// Inputs are read in the declared order. An input naming another task's
// Output is served from that task's result and implies a dependency on it.
type Task struct {
	Name     string
	Compiler string
	Inputs   []string
	Output   string
	Options  Options
	Deps     []string
}

// State is where a task is in its life cycle:
//
//	Pending -> CacheHit  -> Done
//	Pending -> Compiling -> Done | Failed
//	Pending -> Failed | Skipped
type State string

const (
	Pending   State = "pending"
	CacheHit  State = "cache-hit"
	Compiling State = "compiling"
	Done      State = "done"
	Failed    State = "failed"
	Skipped   State = "skipped"
)

func allowedTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == CacheHit || to == Compiling || to == Failed || to == Skipped
	case CacheHit:
		return to == Done || to == Failed
	case Compiling:
		return to == Done || to == Failed
	default:
		return false
	}
}

// TaskError ties a failure to the task that raised it.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.Task, e.Err) }

func (e *TaskError) Unwrap() error { return e.Err }
