package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"asset-bundler/internal/bundle"
	"asset-bundler/internal/cache"
	"asset-bundler/internal/compiler"
	"asset-bundler/internal/config"
	"asset-bundler/internal/engine"
	"asset-bundler/internal/logging"
	"asset-bundler/internal/project"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a JSON config file")
	rootDir := flag.String("root", "", "Project root directory (default: auto-detect game.project.xml)")
	buildDir := flag.String("build", "", "Build directory (default: <root>/build)")
	bundleDir := flag.String("bundle", "", "Bundle output directory (default: <build>/bundle)")
	cacheDir := flag.String("cache", "", "Local cache directory (default: <build>/cache)")
	remote := flag.String("remote-cache", "", "Base URL of an HTTP remote cache")
	platform := flag.String("platform", "", "Target platform (default: host OS)")
	variant := flag.String("variant", "", "debug or release (default: debug)")
	workers := flag.Int("workers", 0, "Parallel compile tasks (default: NumCPU)")
	failFast := flag.Bool("fail-fast", false, "Stop scheduling tasks after the first failure")
	noCache := flag.Bool("no-cache", false, "Disable the local cache")
	metricsFile := flag.String("metrics", "", "Write Prometheus metrics to this file when done")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bob [flags] [distclean] [resolve] [build] [bundle]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logging.SetLogger(logging.NewText(os.Stderr, *verbose))

	phases := flag.Args()
	if len(phases) == 0 {
		phases = []string{"build", "bundle"}
	}
	for _, p := range phases {
		switch p {
		case "distclean", "resolve", "build", "bundle":
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown phase %q\n", p)
			flag.Usage()
			os.Exit(2)
		}
	}

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		RootDir:     *rootDir,
		BuildDir:    *buildDir,
		BundleDir:   *bundleDir,
		CacheDir:    *cacheDir,
		RemoteCache: *remote,
		Platform:    *platform,
		Variant:     *variant,
		Workers:     *workers,
		FailFast:    *failFast,
		NoCache:     *noCache,
	})

	if cfg.RootDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find game.project.xml. Use -root flag or config file.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, cfg, phases)
	stop()

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, prometheus.DefaultGatherer); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: metrics: %v\n", err)
		}
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, phases []string) int {
	var (
		desc *project.Descriptor
		proj *project.Project
		res  *engine.Result
	)
	start := time.Now()

	for _, phase := range phases {
		switch phase {
		case "distclean":
			if err := bundle.Clean(cfg.BuildDir, cfg.CacheDir); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			fmt.Printf("Removed %s\n", cfg.BuildDir)
			continue
		}

		if desc == nil {
			var err error
			desc, err = project.LoadDescriptor(cfg.Descriptor)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
		}

		switch phase {
		case "resolve":
			fsys := desc.FS(cfg.RootDir)
			release, err := fsys.Acquire()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			for _, m := range fsys.Mounts() {
				fmt.Printf("Mounted %s\n", m.Name())
			}
			if err := unmount(release); err != nil {
				return 1
			}

		case "build":
			var err error
			proj, res, err = build(ctx, cfg, desc)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}

		case "bundle":
			if res == nil {
				fmt.Fprintln(os.Stderr, "Error: bundle needs the build phase in the same run")
				return 1
			}
			if !res.Success() {
				fmt.Fprintln(os.Stderr, "Error: build failed, not bundling")
				return 1
			}
			sum, err := bundle.Write(bundle.Config{
				Dir:      cfg.BundleDir,
				Title:    desc.Title,
				Platform: cfg.Platform,
				Workers:  cfg.Workers,
			}, res, proj.Excluded())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			fmt.Printf("Bundled: %d files, %d bytes (%d excluded) → %s\n",
				len(sum.Manifest.Files), sum.Bytes, len(sum.Manifest.Excluded), cfg.BundleDir)
		}
	}

	fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())
	if res != nil && !res.Success() {
		return 1
	}
	return 0
}

func build(ctx context.Context, cfg config.Config, desc *project.Descriptor) (*project.Project, *engine.Result, error) {
	fsys := desc.FS(cfg.RootDir)
	release, err := fsys.Acquire()
	if err != nil {
		return nil, nil, err
	}
	defer unmount(release)

	proj, err := project.Scan(fsys, desc.Bootstrap)
	if err != nil {
		return nil, nil, err
	}
	plat := desc.Platform(cfg.Platform)
	tasks, err := proj.Tasks(project.TaskOptions{TextureMaxSize: plat.TextureMaxSize})
	if err != nil {
		return nil, nil, err
	}

	var backend cache.Backend = cache.NewMetricsBackend(cache.NewLocal(cfg.CacheDir, !cfg.NoCache, cfg.CacheShards), "local")
	if cfg.RemoteCache != "" {
		client := &http.Client{Timeout: 30 * time.Second}
		remote := cache.NewMetricsBackend(cache.NewRemote(cfg.RemoteCache, client, cfg.RemoteCacheWritable), "remote")
		backend = cache.NewTiered(backend, remote)
	}

	fmt.Printf("%s (%s, %s)\n", desc.Title, cfg.Platform, cfg.Variant)
	fmt.Printf("Resources: %d, Workers: %d\n", len(tasks), cfg.Workers)
	fmt.Println("------------------------------------------------------------")

	e := engine.New(fsys, backend, compiler.NewRegistry(), engine.Config{
		Toolchain: cfg.Toolchain + "/" + cfg.Variant,
		Workers:   cfg.Workers,
		FailFast:  cfg.FailFast,
	})
	res, err := e.Run(ctx, tasks)
	if err != nil {
		return nil, nil, err
	}

	rep := engine.NewReport(res, proj.Excluded())
	if err := bundle.WriteReports(rep, cfg.ReportJSON, cfg.ReportHTML); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: report: %v\n", err)
	}

	cached := 0
	for _, t := range res.Tasks {
		if t.Cached {
			cached++
		}
	}
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Built: %d/%d (%d from cache) in %.1fs\n", len(tasks)-len(rep.Failed), len(tasks), cached, res.Duration.Seconds())

	if len(rep.Failed) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(rep.Failed))
		limit := min(20, len(rep.Failed))
		for _, f := range rep.Failed[:limit] {
			fmt.Printf("  %s [%s]: %s\n", f.Name, f.State, f.Error)
		}
		if len(rep.Failed) > limit {
			fmt.Printf("  ... and %d more\n", len(rep.Failed)-limit)
		}
	}
	return proj, res, nil
}

// unmount runs release and reports a failure on stderr.
func unmount(release func() error) error {
	if err := release(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: unmount: %v\n", err)
		return err
	}
	return nil
}
