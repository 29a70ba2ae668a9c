// SPDX-License-Identifier: MIT

// kvm48-crawler walks the live.48.cn performance VOD listings and
// archives the metadata into a local database for kvm48-server and for
// kvm48's performance mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/SNH48Live/KVM48/internal/crawler"
	"github.com/SNH48Live/KVM48/internal/dirs"
	"github.com/SNH48Live/KVM48/internal/log"
	"github.com/SNH48Live/KVM48/internal/store"
	"github.com/SNH48Live/KVM48/internal/version"
)

func main() {
	full := flag.Bool("full", false, "crawl all pages instead of stopping at the last seen VOD")
	limitPages := flag.Int("limit-pages", 0, "only crawl at most the first N pages of each club")
	legacy := flag.Bool("legacy", false, "also crawl VODs of the defunct SHY48 and CKG48")
	dbPath := flag.String("database", "", "path to the VOD archive database (default: <data dir>/perf.db)")
	archiveDir := flag.String("archive-dir", "", "directory for gzipped raw HTML (default: <data dir>/html; empty string after explicit -archive-dir= disables)")
	showVersion := flag.Bool("version", false, "print version and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Configure(log.Config{Level: level, Service: "kvm48-crawler"})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dataDir, err := dirs.Data()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot determine data directory")
	}
	path := *dbPath
	if path == "" {
		path = filepath.Join(dataDir, "perf.db")
	}
	archive := *archiveDir
	if archive == "" && !flagPassed("archive-dir") {
		archive = filepath.Join(dataDir, "html")
	}

	st, err := store.Open(path)
	if err != nil {
		logger.Fatal().Err(err).Str("database", path).Msg("cannot open archive database")
	}
	defer st.Close()

	c := crawler.New(st, crawler.Options{
		Full:       *full,
		LimitPages: *limitPages,
		Legacy:     *legacy,
		ArchiveDir: archive,
	})
	if err := c.Run(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Warn().Msg("interrupted")
			os.Exit(130)
		}
		logger.Error().Err(err).Msg("crawl finished with errors")
		os.Exit(1)
	}
	logger.Info().Msg("crawl complete")
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
