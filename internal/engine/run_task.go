package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-bundler/internal/cache"
	"asset-bundler/internal/logging"
	"asset-bundler/internal/vfs"
)

// taskRun tracks the state of one task while a worker owns it.
type taskRun struct {
	result TaskResult
	start  time.Time
}

func (r *taskRun) to(s State) {
	if !allowedTransition(r.result.State, s) {
		panic(fmt.Sprintf("engine: task %s: illegal transition %s -> %s", r.result.Name, r.result.State, s))
	}
	r.result.State = s
}

func (r *taskRun) fail(err error) TaskResult {
	r.to(Failed)
	r.result.Err = &TaskError{Task: r.result.Name, Err: err}
	r.result.Data = nil
	r.result.Duration = time.Since(r.start)
	return r.result
}

func (r *taskRun) finish(data []byte) TaskResult {
	r.to(Done)
	r.result.Data = data
	r.result.Duration = time.Since(r.start)
	return r.result
}

// runTask resolves inputs, keys the task and either replays the cached
// output or compiles. Failures are never written to the cache.
func (e *Engine) runTask(ctx context.Context, t Task, deps map[string][]byte) TaskResult {
	run := &taskRun{
		result: TaskResult{Name: t.Name, Output: vfs.Clean(t.Output), State: Pending},
		start:  time.Now(),
	}

	inputs := make([]*vfs.Resource, 0, len(t.Inputs))
	for _, in := range t.Inputs {
		p := vfs.Clean(in)
		if data, ok := deps[p]; ok {
			inputs = append(inputs, &vfs.Resource{Path: p, Exists: true, Content: data, Origin: "build"})
			continue
		}
		r, err := e.fs.Resolve(p)
		if err != nil {
			return run.fail(err)
		}
		if !r.Exists {
			return run.fail(fmt.Errorf("%w: %s", cache.ErrMissingInput, p))
		}
		inputs = append(inputs, r)
	}

	key, err := cache.ComputeKey(cache.Signature{
		Inputs:    inputs,
		Output:    t.Output,
		Toolchain: e.cfg.Toolchain,
		Options:   t.Options,
	})
	if err != nil {
		return run.fail(err)
	}
	run.result.Key = key

	if e.cache.Contains(ctx, key) {
		if data, ok := e.cache.Get(ctx, key); ok {
			run.to(CacheHit)
			run.result.Cached = true
			return run.finish(data)
		}
	}

	compiler, ok := e.registry.Lookup(t.Compiler)
	if !ok {
		return run.fail(fmt.Errorf("%w: %q", ErrUnknownCompiler, t.Compiler))
	}
	run.to(Compiling)
	timeStart := time.Now()
	data, err := safeCompile(ctx, compiler, inputs, t.Options)
	compileDurationSeconds.WithLabelValues(t.Compiler).Observe(time.Since(timeStart).Seconds())
	if err != nil {
		return run.fail(err)
	}
	if !e.cache.Put(ctx, key, data) {
		logging.Logger().Debug("output not cached", "task", t.Name, "key", key)
	}
	return run.finish(data)
}

var errCompilerPanic = errors.New("compiler panicked")

// safeCompile turns a compiler panic into an ordinary task failure.
func safeCompile(ctx context.Context, c Compiler, inputs []*vfs.Resource, opts Options) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errCompilerPanic, r)
		}
	}()
	if opts == nil {
		opts = Options{}
	}
	return c.Compile(ctx, inputs, opts)
}
