package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"asset-bundler/internal/cache"
	"asset-bundler/internal/vfs"
)

type mapFS map[string]string

func (m mapFS) Resolve(p string) (*vfs.Resource, error) {
	p = vfs.Clean(p)
	if p == "/broken" {
		return nil, errors.New("disk on fire")
	}
	c, ok := m[p]
	if !ok {
		return vfs.Missing(p), nil
	}
	return &vfs.Resource{Path: p, Exists: true, Content: []byte(c)}, nil
}

// upper concatenates its inputs in upper case and counts invocations.
type upper struct{ calls atomic.Int32 }

func (u *upper) Compile(_ context.Context, inputs []*vfs.Resource, opts Options) ([]byte, error) {
	u.calls.Add(1)
	var b bytes.Buffer
	for _, in := range inputs {
		b.WriteString(strings.ToUpper(string(in.Content)))
	}
	b.WriteString(opts["suffix"])
	return b.Bytes(), nil
}

func newTestEngine(t *testing.T, fs Resolver, backend cache.Backend, cfg Config) (*Engine, *upper) {
	t.Helper()
	u := &upper{}
	reg := NewRegistry()
	require.NoError(t, reg.Register("upper", u))
	require.NoError(t, reg.Register("fail", CompilerFunc(func(context.Context, []*vfs.Resource, Options) ([]byte, error) {
		return nil, errors.New("unsupported input")
	})))
	require.NoError(t, reg.Register("panic", CompilerFunc(func(context.Context, []*vfs.Resource, Options) ([]byte, error) {
		panic("boom")
	})))
	if cfg.Toolchain == "" {
		cfg.Toolchain = "test"
	}
	return New(fs, backend, reg, cfg), u
}

func stateOf(t *testing.T, res *Result, name string) TaskResult {
	t.Helper()
	for _, r := range res.Tasks {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result for %s", name)
	return TaskResult{}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("a", &upper{}))
	require.Error(t, reg.Register("a", &upper{}))
	require.Equal(t, []string{"a"}, reg.Names())
}

func TestRunCompilesAndCaches(t *testing.T) {
	fs := mapFS{"/a.txt": "a", "/b.txt": "b"}
	backend := cache.NewMemory()
	e, u := newTestEngine(t, fs, backend, Config{Workers: 2})

	tasks := []Task{
		{Name: "a", Compiler: "upper", Inputs: []string{"/a.txt"}, Output: "/a.out"},
		{Name: "b", Compiler: "upper", Inputs: []string{"/b.txt"}, Output: "/b.out", Options: Options{"suffix": "!"}},
	}
	res, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, res.Success())
	require.Equal(t, int32(2), u.calls.Load())
	require.Equal(t, map[string][]byte{"/a.out": []byte("A"), "/b.out": []byte("B!")}, res.Outputs())
	require.Equal(t, 2, backend.Len())
	for _, r := range res.Tasks {
		require.Equal(t, Done, r.State)
		require.False(t, r.Cached)
		require.True(t, r.Key.Valid())
	}
}

func TestRunIsIdempotentWithWarmCache(t *testing.T) {
	fs := mapFS{"/a.txt": "a", "/b.txt": "b"}
	backend := cache.NewLocal(t.TempDir(), true, false)
	tasks := []Task{
		{Name: "a", Compiler: "upper", Inputs: []string{"/a.txt"}, Output: "/a.out"},
		{Name: "ab", Compiler: "upper", Inputs: []string{"/a.out", "/b.txt"}, Output: "/ab.out"},
	}

	e1, u1 := newTestEngine(t, fs, backend, Config{})
	first, err := e1.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, first.Success())
	require.Equal(t, int32(2), u1.calls.Load())

	e2, u2 := newTestEngine(t, fs, backend, Config{})
	second, err := e2.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, second.Success())
	require.Zero(t, u2.calls.Load())
	require.Equal(t, first.Outputs(), second.Outputs())
	for _, r := range second.Tasks {
		require.True(t, r.Cached, r.Name)
	}
}

func TestRunDependencyOutputsFeedDependents(t *testing.T) {
	fs := mapFS{"/src.txt": "x", "/more.txt": "y"}
	e, _ := newTestEngine(t, fs, cache.NewMemory(), Config{Workers: 4})
	tasks := []Task{
		{Name: "final", Compiler: "upper", Inputs: []string{"/mid.out", "/more.txt"}, Output: "/final.out"},
		{Name: "mid", Compiler: "upper", Inputs: []string{"/src.txt"}, Output: "/mid.out", Options: Options{"suffix": "m"}},
	}
	res, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, res.Success())
	require.Equal(t, "XMY", string(res.Outputs()["/final.out"]))
}

func TestRunChangedInputRecompiles(t *testing.T) {
	backend := cache.NewMemory()
	tasks := []Task{{Name: "a", Compiler: "upper", Inputs: []string{"/a.txt"}, Output: "/a.out"}}

	e, _ := newTestEngine(t, mapFS{"/a.txt": "a"}, backend, Config{})
	_, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)

	e, u := newTestEngine(t, mapFS{"/a.txt": "b"}, backend, Config{})
	res, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.Equal(t, int32(1), u.calls.Load())
	require.Equal(t, "B", string(res.Outputs()["/a.out"]))
}

func TestRunFailureSkipsDependentsOnly(t *testing.T) {
	fs := mapFS{"/a.txt": "a", "/b.txt": "b"}
	backend := cache.NewMemory()
	e, _ := newTestEngine(t, fs, backend, Config{Workers: 2})
	tasks := []Task{
		{Name: "bad", Compiler: "fail", Inputs: []string{"/a.txt"}, Output: "/bad.out"},
		{Name: "after-bad", Compiler: "upper", Inputs: []string{"/bad.out"}, Output: "/after.out"},
		{Name: "after-after", Compiler: "upper", Inputs: []string{"/after.out"}, Output: "/after2.out"},
		{Name: "good", Compiler: "upper", Inputs: []string{"/b.txt"}, Output: "/good.out"},
		{Name: "crash", Compiler: "panic", Inputs: []string{"/b.txt"}, Output: "/crash.out"},
		{Name: "io", Compiler: "upper", Inputs: []string{"/broken"}, Output: "/io.out"},
		{Name: "missing", Compiler: "upper", Inputs: []string{"/nope.txt"}, Output: "/missing.out"},
	}
	res, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.False(t, res.Success())

	require.Equal(t, Failed, stateOf(t, res, "bad").State)
	require.Equal(t, Skipped, stateOf(t, res, "after-bad").State)
	require.ErrorIs(t, stateOf(t, res, "after-after").Err, ErrDependency)
	require.Equal(t, Done, stateOf(t, res, "good").State)
	require.ErrorIs(t, stateOf(t, res, "crash").Err, errCompilerPanic)
	require.Equal(t, Failed, stateOf(t, res, "io").State)
	require.ErrorIs(t, stateOf(t, res, "missing").Err, cache.ErrMissingInput)

	var te *TaskError
	require.ErrorAs(t, stateOf(t, res, "bad").Err, &te)
	require.Equal(t, "bad", te.Task)

	require.Len(t, res.Failed(), 6)
	require.Equal(t, 1, backend.Len(), "only the good task is cached")
}

func TestRunFailFastStopsDispatch(t *testing.T) {
	fs := mapFS{"/a.txt": "a"}
	e, u := newTestEngine(t, fs, cache.NewMemory(), Config{Workers: 1, FailFast: true})
	tasks := []Task{
		{Name: "bad", Compiler: "fail", Inputs: []string{"/a.txt"}, Output: "/bad.out"},
		{Name: "x", Compiler: "upper", Inputs: []string{"/a.txt"}, Output: "/x.out"},
		{Name: "y", Compiler: "upper", Inputs: []string{"/a.txt"}, Output: "/y.out"},
	}
	res, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.Zero(t, u.calls.Load())
	require.ErrorIs(t, stateOf(t, res, "x").Err, ErrAborted)
	require.Equal(t, Skipped, stateOf(t, res, "y").State)
}

func TestRunIndependentTasksInParallel(t *testing.T) {
	const n = 4
	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	reg := NewRegistry()
	require.NoError(t, reg.Register("rendezvous", CompilerFunc(func(context.Context, []*vfs.Resource, Options) ([]byte, error) {
		started.Done()
		select {
		case <-allStarted:
			return []byte("ok"), nil
		case <-time.After(5 * time.Second):
			return nil, errors.New("tasks did not run concurrently")
		}
	})))
	fs := mapFS{"/in": "x"}
	e := New(fs, cache.NewMemory(), reg, Config{Workers: n, Toolchain: "t"})

	var tasks []Task
	for _, name := range []string{"a", "b", "c", "d"} {
		tasks = append(tasks, Task{Name: name, Compiler: "rendezvous", Inputs: []string{"/in"}, Output: "/" + name})
	}
	res, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, res.Success())
}

func TestRunRejectsInvalidTaskSets(t *testing.T) {
	e, _ := newTestEngine(t, mapFS{}, cache.NewMemory(), Config{})
	ctx := context.Background()

	_, err := e.Run(ctx, []Task{
		{Name: "a", Compiler: "upper", Inputs: []string{"/b.out"}, Output: "/a.out"},
		{Name: "b", Compiler: "upper", Inputs: []string{"/a.out"}, Output: "/b.out"},
	})
	require.ErrorIs(t, err, ErrCycle)

	_, err = e.Run(ctx, []Task{{Name: "a", Compiler: "nope", Output: "/a"}})
	require.ErrorIs(t, err, ErrUnknownCompiler)

	_, err = e.Run(ctx, []Task{
		{Name: "a", Compiler: "upper", Output: "/same"},
		{Name: "b", Compiler: "upper", Output: "/same"},
	})
	require.ErrorIs(t, err, ErrInvalidTask)

	_, err = e.Run(ctx, []Task{{Name: "a", Compiler: "upper", Output: "/a", Deps: []string{"ghost"}}})
	require.ErrorIs(t, err, ErrInvalidTask)
}

func TestRunEmptyTaskSet(t *testing.T) {
	e, _ := newTestEngine(t, mapFS{}, cache.NewMemory(), Config{})
	res, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Success())
}

func TestAllowedTransitions(t *testing.T) {
	require.True(t, allowedTransition(Pending, CacheHit))
	require.True(t, allowedTransition(Pending, Compiling))
	require.True(t, allowedTransition(Compiling, Failed))
	require.True(t, allowedTransition(CacheHit, Done))
	require.False(t, allowedTransition(Done, Compiling))
	require.False(t, allowedTransition(Failed, Done))
	require.False(t, allowedTransition(Pending, Done))
}

func TestReport(t *testing.T) {
	fs := mapFS{"/a.txt": "a"}
	e, _ := newTestEngine(t, fs, cache.NewMemory(), Config{})
	res, err := e.Run(context.Background(), []Task{
		{Name: "a", Compiler: "upper", Inputs: []string{"/a.txt"}, Output: "/a.out"},
		{Name: "bad", Compiler: "fail", Inputs: []string{"/a.txt"}, Output: "/bad.out"},
	})
	require.NoError(t, err)

	rep := NewReport(res, []string{"/level/level.collectionc"})
	require.False(t, rep.Success)
	require.Len(t, rep.Tasks, 2)
	require.Len(t, rep.Failed, 1)
	require.Equal(t, 1, rep.TotalSize)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteJSON(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, false, decoded["success"])

	buf.Reset()
	require.NoError(t, rep.WriteHTML(&buf))
	require.Contains(t, buf.String(), "Build failed")
	require.Contains(t, buf.String(), "/level/level.collectionc")
	require.Contains(t, buf.String(), "unsupported input")
}
