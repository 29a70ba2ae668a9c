// SPDX-License-Identifier: MIT

// kvm48-server serves read-only HTTP queries over the performance VOD
// archive built by kvm48-crawler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/SNH48Live/KVM48/internal/api"
	"github.com/SNH48Live/KVM48/internal/dirs"
	"github.com/SNH48Live/KVM48/internal/log"
	"github.com/SNH48Live/KVM48/internal/store"
	"github.com/SNH48Live/KVM48/internal/version"
)

func main() {
	addr := flag.String("addr", ":8048", "listen address")
	dbPath := flag.String("database", "", "path to the VOD archive database (default: <data dir>/perf.db)")
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
	log.Configure(log.Config{Level: level, Service: "kvm48-server"})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := *dbPath
	if path == "" {
		dataDir, err := dirs.Data()
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot determine data directory")
		}
		path = filepath.Join(dataDir, "perf.db")
	}
	st, err := store.Open(path)
	if err != nil {
		logger.Fatal().Err(err).Str("database", path).Msg("cannot open archive database")
	}
	defer st.Close()

	cfg := api.Config{
		Addr:     *addr,
		RedisURL: os.Getenv("RATELIMIT_REDIS_URL"),
	}
	// Rate limiting follows the redis backer: no backer, no limit.
	if cfg.RedisURL != "" {
		cfg.RateLimit = 1
		if v := os.Getenv("RATELIMIT"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				logger.Fatal().Str("RATELIMIT", v).Msg("RATELIMIT must be a positive integer (requests per second)")
			}
			cfg.RateLimit = n
		}
	}

	router, err := api.New(st, cfg).Router()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot assemble router")
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *addr).Str("database", path).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
			os.Exit(1)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}
}
