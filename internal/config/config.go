package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultToolchain is mixed into every cache key. Bump it whenever a
// compiler's output format changes so stale cache entries are not reused.
const DefaultToolchain = "bob-1"

// Config holds all configurable paths and build settings.
type Config struct {
	// Paths
	RootDir    string `json:"root_dir"`
	Descriptor string `json:"descriptor"`
	BuildDir   string `json:"build_dir"`
	BundleDir  string `json:"bundle_dir"`
	CacheDir   string `json:"cache_dir"`
	ReportJSON string `json:"report_json"`
	ReportHTML string `json:"report_html"`

	// Remote cache
	RemoteCache         string `json:"remote_cache"`
	RemoteCacheWritable bool   `json:"remote_cache_writable"`

	// Build settings
	Platform    string `json:"platform"`
	Variant     string `json:"variant"`
	Toolchain   string `json:"toolchain"`
	Workers     int    `json:"workers"`
	FailFast    bool   `json:"fail_fast"`
	CacheShards bool   `json:"cache_shards"`
	NoCache     bool   `json:"no_cache"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	RootDir     string
	BuildDir    string
	BundleDir   string
	CacheDir    string
	RemoteCache string
	Platform    string
	Variant     string
	Workers     int
	FailFast    bool
	NoCache     bool
}

// Resolve fills in any empty fields with auto-detected defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.RootDir != "" {
		c.RootDir = flags.RootDir
	}
	if flags.BuildDir != "" {
		c.BuildDir = flags.BuildDir
	}
	if flags.BundleDir != "" {
		c.BundleDir = flags.BundleDir
	}
	if flags.CacheDir != "" {
		c.CacheDir = flags.CacheDir
	}
	if flags.RemoteCache != "" {
		c.RemoteCache = flags.RemoteCache
	}
	if flags.Platform != "" {
		c.Platform = flags.Platform
	}
	if flags.Variant != "" {
		c.Variant = flags.Variant
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.FailFast {
		c.FailFast = true
	}
	if flags.NoCache {
		c.NoCache = true
	}

	if c.RootDir == "" {
		c.RootDir = detectRootDir()
	}

	if c.RootDir != "" {
		c.Descriptor = under(c.RootDir, c.Descriptor, "game.project.xml")
		c.BuildDir = under(c.RootDir, c.BuildDir, "build")
	}
	if c.BuildDir != "" {
		c.BundleDir = under(c.BuildDir, c.BundleDir, "bundle")
		c.CacheDir = under(c.BuildDir, c.CacheDir, "cache")
		c.ReportJSON = under(c.BuildDir, c.ReportJSON, "report.json")
		c.ReportHTML = under(c.BuildDir, c.ReportHTML, "report.html")
	}

	if c.Platform == "" {
		c.Platform = runtime.GOOS
	}
	if c.Variant == "" {
		c.Variant = "debug"
	}
	if c.Toolchain == "" {
		c.Toolchain = DefaultToolchain
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// under returns p resolved against base, or def under base when p is empty.
func under(base, p, def string) string {
	if p == "" {
		return filepath.Join(base, def)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// detectRootDir looks for a project descriptor in the working directory
// and its parent.
func detectRootDir() string {
	cwd, _ := os.Getwd()
	if cwd == "" {
		return ""
	}
	for _, dir := range []string{cwd, filepath.Dir(cwd)} {
		if _, err := os.Stat(filepath.Join(dir, "game.project.xml")); err == nil {
			return dir
		}
	}
	return ""
}
