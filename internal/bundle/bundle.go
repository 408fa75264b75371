// Package bundle lays out a finished build on disk: compiled resources,
// manifest.json, excluded.json and the build reports.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"asset-bundler/internal/engine"
	"asset-bundler/internal/logging"
	"asset-bundler/internal/vfs"
)

// File names written at the bundle root.
const (
	ManifestFile = "manifest.json"
	ExcludedFile = "excluded.json"
	ExcludedDir  = "liveupdate"
)

// Config describes where and how to write a bundle.
type Config struct {
	Dir      string
	Title    string
	Platform string
	Workers  int
}

// Summary is what Write produced.
type Summary struct {
	Manifest Manifest
	Written  int
	Bytes    int64
}

type file struct {
	dest  string
	entry ManifestEntry
	data  []byte
}

// Write stores every finished task output under cfg.Dir. Outputs of
// excluded sources go to the liveupdate subdirectory instead. Failed tasks
// are not bundled; Write does not judge whether the build succeeded.
func Write(cfg Config, res *engine.Result, excluded []string) (*Summary, error) {
	if cfg.Dir == "" {
		return nil, errors.New("bundle: no output directory")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	skip := make(map[string]bool, len(excluded))
	for _, p := range excluded {
		skip[vfs.Clean(p)] = true
	}

	sum := &Summary{Manifest: Manifest{
		Title:    cfg.Title,
		Platform: cfg.Platform,
		Files:    []ManifestEntry{},
		Excluded: []ManifestEntry{},
	}}
	var files []file
	for _, t := range res.Tasks {
		if t.State != engine.Done {
			continue
		}
		e := ManifestEntry{Path: t.Output, Source: t.Name, Size: len(t.Data), Key: t.Key.String()}
		dir := cfg.Dir
		if skip[vfs.Clean(t.Name)] {
			dir = filepath.Join(cfg.Dir, ExcludedDir)
			sum.Manifest.Excluded = append(sum.Manifest.Excluded, e)
		} else {
			sum.Manifest.Files = append(sum.Manifest.Files, e)
		}
		files = append(files, file{dest: outPath(dir, t.Output), entry: e, data: t.Data})
	}
	sort.Slice(sum.Manifest.Files, func(i, j int) bool { return sum.Manifest.Files[i].Path < sum.Manifest.Files[j].Path })
	sort.Slice(sum.Manifest.Excluded, func(i, j int) bool { return sum.Manifest.Excluded[i].Path < sum.Manifest.Excluded[j].Path })

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("bundle: create %s: %w", cfg.Dir, err)
	}

	var written, size atomic.Int64
	errs := make([]error, len(files))
	work := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				f := files[i]
				if err := writeFile(f.dest, f.data); err != nil {
					errs[i] = err
					continue
				}
				written.Add(1)
				size.Add(int64(len(f.data)))
			}
		}()
	}
	for i := range files {
		work <- i
	}
	close(work)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	sum.Written = int(written.Load())
	sum.Bytes = size.Load()

	if err := writeJSON(filepath.Join(cfg.Dir, ManifestFile), sum.Manifest); err != nil {
		return nil, err
	}
	excludedPaths := make([]string, len(sum.Manifest.Excluded))
	for i, e := range sum.Manifest.Excluded {
		excludedPaths[i] = e.Path
	}
	if err := writeJSON(filepath.Join(cfg.Dir, ExcludedFile), excludedPaths); err != nil {
		return nil, err
	}
	logging.Logger().Info("bundle written", "dir", cfg.Dir, "files", sum.Written, "bytes", sum.Bytes, "excluded", len(excludedPaths))
	return sum, nil
}

func outPath(dir, output string) string {
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(vfs.Clean(output), "/")))
}

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("bundle: create dir for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("bundle: write %s: %w", dest, err)
	}
	return nil
}

// WriteReports writes rep as JSON and HTML. Empty paths are skipped.
func WriteReports(rep *engine.Report, jsonPath, htmlPath string) error {
	if jsonPath != "" {
		if err := writeWith(jsonPath, rep.WriteJSON); err != nil {
			return err
		}
	}
	if htmlPath != "" {
		if err := writeWith(htmlPath, rep.WriteHTML); err != nil {
			return err
		}
	}
	return nil
}

func writeWith(path string, fn func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bundle: create dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bundle: create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Clean removes the given build directories, as "distclean" does.
// Missing directories are fine; the filesystem root and "" are refused.
func Clean(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return fmt.Errorf("bundle: clean %s: %w", d, err)
		}
		if filepath.Dir(abs) == abs {
			return fmt.Errorf("bundle: refusing to remove %s", abs)
		}
		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("bundle: clean %s: %w", abs, err)
		}
		logging.Logger().Info("removed", "dir", abs)
	}
	return nil
}
