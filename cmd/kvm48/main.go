// SPDX-License-Identifier: MIT

// kvm48 is the Koudai48 VOD manager. It downloads the streaming VODs
// of monitored members in a date range (standard mode), or walks the
// group performance listing through an interactive review step
// (performance mode).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SNH48Live/KVM48/internal/config"
	"github.com/SNH48Live/KVM48/internal/dirs"
	"github.com/SNH48Live/KVM48/internal/filter"
	"github.com/SNH48Live/KVM48/internal/lock"
	"github.com/SNH48Live/KVM48/internal/log"
	"github.com/SNH48Live/KVM48/internal/update"
	"github.com/SNH48Live/KVM48/internal/version"
)

const bugReportURL = "https://github.com/SNH48Live/KVM48/issues"

type cliOptions struct {
	from       string
	to         string
	span       int
	spanSet    bool
	mode       string
	dry        bool
	configPath string
	filterPath string
	debug      bool
}

func parseFlags() *cliOptions {
	opts := &cliOptions{}
	showVersion := false
	flag.StringVar(&opts.from, "f", "", "starting day of date range (YYYY-MM-DD or MM-DD)")
	flag.StringVar(&opts.from, "from", "", "starting day of date range (YYYY-MM-DD or MM-DD)")
	flag.StringVar(&opts.to, "t", "", "ending day of date range (YYYY-MM-DD or MM-DD)")
	flag.StringVar(&opts.to, "to", "", "ending day of date range (YYYY-MM-DD or MM-DD)")
	flag.IntVar(&opts.span, "s", 0, "number of days in date range")
	flag.IntVar(&opts.span, "span", 0, "number of days in date range")
	flag.StringVar(&opts.mode, "mode", "std", "operation mode: std (member VODs) or perf (performance VODs)")
	flag.BoolVar(&opts.dry, "dry", false, "print URL & filename combos but do not download")
	flag.StringVar(&opts.configPath, "config", "", "use this config file instead of the default")
	flag.StringVar(&opts.filterPath, "filter", "", "use this path filter rule file instead of the default")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "s" || f.Name == "span" {
			opts.spanSet = true
		}
	})
	return opts
}

func main() {
	opts := parseFlags()

	level := "info"
	if opts.debug {
		level = "debug"
	}
	log.Configure(log.Config{Level: level, Service: "kvm48"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, opts)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "kvm48: interrupted")
		os.Exit(130)
	}
	fmt.Fprintf(os.Stderr, "kvm48: %v\n", err)
	fmt.Fprintf(os.Stderr, "If you believe this is a bug, please report it at %s\n", bugReportURL)
	os.Exit(1)
}

func run(ctx context.Context, opts *cliOptions) error {
	configDir, err := dirs.Config()
	if err != nil {
		return err
	}
	cacheDir, err := dirs.Cache()
	if err != nil {
		return err
	}
	dataDir, err := dirs.Data()
	if err != nil {
		return err
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = config.DefaultPath(configDir)
		created, err := config.DumpTemplate(configPath)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(os.Stderr, "Configuration template written to %s.\n", configPath)
			fmt.Fprintln(os.Stderr, "Edit it to your liking, then run kvm48 again.")
			return nil
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	switch opts.mode {
	case "std":
		cfg.Mode = config.ModeStd
		if err := cfg.RequireNames(); err != nil {
			return err
		}
	case "perf":
		cfg.Mode = config.ModePerf
	default:
		return fmt.Errorf("invalid mode %q; expected std or perf", opts.mode)
	}

	if opts.spanSet && opts.span <= 0 {
		return errors.New("span should be positive")
	}
	span := cfg.Span()
	if opts.spanSet {
		span = opts.span
	}
	dateRange, err := resolveDateRange(opts.from, opts.to, span, opts.spanSet)
	if err != nil {
		return err
	}

	// Best-effort housekeeping: single instance and at most one update
	// check per day. Neither failure mode blocks a download run.
	l, err := lock.Acquire(cacheDir)
	if err != nil {
		return err
	}
	if l != nil {
		defer l.Release()
	}
	if cfg.UpdateChecks {
		update.Check(ctx, cacheDir, version.Version, false)
	}

	filterPath := opts.filterPath
	if filterPath == "" {
		filterPath = filter.DefaultPath(configDir, string(cfg.Mode))
	}
	filt, err := filter.Load(filterPath)
	if err != nil {
		return err
	}

	app := &app{
		cfg:      cfg,
		filter:   filt,
		cacheDir: cacheDir,
		dataDir:  dataDir,
		dry:      opts.dry,
		logger:   log.WithComponent("pipeline"),
	}
	if cfg.Mode == config.ModePerf {
		return app.runPerf(ctx, dateRange)
	}
	return app.runStd(ctx, dateRange)
}
