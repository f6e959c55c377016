// Command syswatchd is the syswatch host-monitoring daemon. It samples OS
// metrics and reports directory activity every cycle, writing each
// observation to an append-only log file and to syslog, and shuts down
// cleanly on SIGTERM or SIGINT. The configuration file path is fixed by
// deployment convention; there are no command-line flags.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syswatch/agent/internal/config"
	"github.com/syswatch/agent/internal/daemon"
	"github.com/syswatch/agent/internal/health"
	"github.com/syswatch/agent/internal/journal"
	"github.com/syswatch/agent/internal/logsink"
	"github.com/syswatch/agent/internal/watch"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		// A broken config file degrades to defaults rather than refusing to
		// monitor; the operator sees why on stderr.
		logger.Warn("configuration unusable, continuing with defaults", slog.Any("error", err))
		cfg = config.Default()
	}

	actor := config.Username()

	sink, err := logsink.Open(cfg.LogFile, cfg.UseSyslog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "syswatchd: failed to open log file: %v\n", err)
		return 1
	}
	defer sink.Close()

	// Initialise the notification channel. Failure is non-fatal: the daemon
	// runs with the fallback poller as its sole detection mechanism.
	var (
		src      watch.Source
		inst     watch.Installer
		watchErr error
	)
	if ino, err := watch.NewInotify(); err != nil {
		watchErr = err
	} else {
		src, inst = ino, ino
		defer ino.Close()
	}

	reg := watch.NewRegistry(cfg.WatchDirs, inst)

	var (
		rec watch.Recorder
		jnl *journal.Journal
	)
	if cfg.EventDB != "" {
		jnl, err = journal.Open(cfg.EventDB, logger)
		if err != nil {
			logger.Warn("observation journal unavailable", slog.Any("error", err))
		} else {
			rec = jnl
			defer jnl.Close()
		}
	}

	watcher := watch.NewEventWatcher(src, reg, sink, rec, actor, cfg.LogFile)
	poller := watch.NewPoller(reg, sink, rec, actor, cfg.LogFile, 0)

	var opts []daemon.Option
	if watchErr != nil {
		opts = append(opts, daemon.WithWatchError(watchErr))
	}
	if jnl != nil {
		opts = append(opts, daemon.WithObservationCounter(jnl))
	}

	d := daemon.New(cfg, sink, reg, watcher, poller, actor, logger, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.HealthAddr != "" {
		hs := health.New(cfg.HealthAddr, d, jnl, logger)
		hs.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", slog.Any("error", err))
			}
		}()
	}

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon failed", slog.Any("error", err))
		return 1
	}
	return 0
}
