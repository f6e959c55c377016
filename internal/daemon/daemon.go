// Package daemon contains the syswatch main loop. It orchestrates the metric
// samplers, the event watcher, and the fallback poller in a single-threaded
// cycle, writes the startup banner and shutdown message, and exposes a health
// snapshot for the optional healthz server.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/syswatch/agent/internal/config"
	"github.com/syswatch/agent/internal/logsink"
	"github.com/syswatch/agent/internal/metrics"
	"github.com/syswatch/agent/internal/watch"
)

// Sampler is one named metric source run every cycle. A failed sample is
// logged at warning severity with the underlying OS error and the cycle
// continues with the next sampler.
type Sampler struct {
	Name   string
	Sample func() (string, error)
}

// defaultSamplers are the production metric sources.
func defaultSamplers() []Sampler {
	return []Sampler{
		{Name: "uptime", Sample: func() (string, error) { return metrics.Uptime(metrics.ProcUptime) }},
		{Name: "network connections", Sample: func() (string, error) { return metrics.TCPConnections(metrics.ProcNetTCP) }},
		{Name: "inode information", Sample: func() (string, error) { return metrics.FreeInodes(metrics.RootMount) }},
	}
}

// ObservationCounter exposes the journal's row count to the health snapshot.
type ObservationCounter interface {
	Count() int
}

// Daemon is the single-threaded main loop. All of its collaborators are
// touched only from Run's goroutine; the mutex below guards only the fields
// the healthz server reads concurrently.
type Daemon struct {
	cfg     *config.Config
	sink    logsink.Writer
	reg     *watch.Registry
	watcher *watch.EventWatcher
	poller  *watch.Poller
	actor   string
	logger  *slog.Logger

	samplers []Sampler
	watchErr error // inotify initialisation failure, reported once at startup
	counter  ObservationCounter

	start time.Time

	mu     sync.RWMutex
	cycles uint64
}

// Option is a functional option for Daemon construction.
type Option func(*Daemon)

// WithSamplers replaces the default metric samplers; used by tests.
func WithSamplers(ss ...Sampler) Option {
	return func(d *Daemon) { d.samplers = ss }
}

// WithWatchError records that the notification channel failed to initialise.
// The failure is reported once at warning severity during startup and the
// event watcher stays a no-op for the process lifetime.
func WithWatchError(err error) Option {
	return func(d *Daemon) { d.watchErr = err }
}

// WithObservationCounter wires the journal's row counter into the health
// snapshot.
func WithObservationCounter(c ObservationCounter) Option {
	return func(d *Daemon) { d.counter = c }
}

// New assembles the daemon. sink, reg, watcher, and poller must be non-nil;
// the watcher may carry a nil source (degraded, poll-only operation).
func New(cfg *config.Config, sink logsink.Writer, reg *watch.Registry, watcher *watch.EventWatcher, poller *watch.Poller, actor string, logger *slog.Logger, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:      cfg,
		sink:     sink,
		reg:      reg,
		watcher:  watcher,
		poller:   poller,
		actor:    actor,
		logger:   logger,
		samplers: defaultSamplers(),
		start:    time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run writes the startup banner, then cycles until ctx is cancelled:
// sample metrics, drain the event watcher, run the fallback poll, sleep for
// the configured interval. The sleep is a timer select that also watches ctx,
// so a termination signal interrupts it immediately. On cancellation Run
// writes the shutdown message while the sinks are still open and returns;
// closing the sinks is the caller's job.
func (d *Daemon) Run(ctx context.Context) error {
	d.startup()

	timer := time.NewTimer(d.cfg.Interval)
	defer timer.Stop()

	for {
		d.cycle()

		select {
		case <-ctx.Done():
			d.sink.Write(d.actor, "Termination signal received. Program is stopping.", logsink.SeverityInfo)
			d.logger.Info("daemon stopping")
			return nil
		case <-timer.C:
			timer.Reset(d.cfg.Interval)
		}
	}
}

// startup emits the banner records: separator, start message, privilege
// level, effective interval, and any degraded-capability warnings.
func (d *Daemon) startup() {
	d.sink.Write(d.actor, "------------------------------", logsink.SeverityInfo)
	d.sink.Write(d.actor, "Logging program started", logsink.SeverityInfo)

	if os.Geteuid() == 0 {
		d.sink.Write(d.actor, "Program is running with root privileges", logsink.SeverityInfo)
	} else {
		d.sink.Write(d.actor, fmt.Sprintf("Program is running as user (UID: %d)", os.Getuid()), logsink.SeverityInfo)
	}

	d.sink.Write(d.actor, fmt.Sprintf("Logging interval: %d seconds", int(d.cfg.Interval.Seconds())), logsink.SeverityInfo)

	if d.watchErr != nil {
		d.sink.Write(d.actor, fmt.Sprintf("Failed to initialize directory monitoring: %v", d.watchErr), logsink.SeverityWarning)
	} else {
		// Watch installation failure for a subset of directories is reported
		// once here and never retried; those targets stay poll-only.
		for _, t := range d.reg.Targets() {
			if !t.Watched() {
				d.sink.Write(d.actor, "Directory watch could not be installed: "+t.Path, logsink.SeverityWarning)
			}
		}
	}

	d.logger.Info("daemon started",
		slog.String("log_file", d.cfg.LogFile),
		slog.Duration("interval", d.cfg.Interval),
		slog.Int("watched_dirs", d.reg.Watched()),
		slog.Int("total_dirs", d.reg.Len()),
		slog.Bool("events_enabled", d.watcher.Enabled()),
	)
}

// cycle runs one iteration of the monitoring loop.
func (d *Daemon) cycle() {
	for _, s := range d.samplers {
		text, err := s.Sample()
		if err != nil {
			d.sink.Write(d.actor, fmt.Sprintf("Error reading %s: %v", s.Name, err), logsink.SeverityWarning)
			continue
		}
		d.sink.Write(d.actor, text, logsink.SeverityInfo)
	}

	d.watcher.Drain()
	d.poller.Run()

	d.mu.Lock()
	d.cycles++
	d.mu.Unlock()
}

// HealthStatus is the payload served by the /healthz endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	UptimeS       float64 `json:"uptime_s"`
	Cycles        uint64  `json:"cycles"`
	WatchedDirs   int     `json:"watched_dirs"`
	TotalDirs     int     `json:"total_dirs"`
	EventsEnabled bool    `json:"events_enabled"`
	Observations  int     `json:"observations,omitempty"`
}

// Health returns a snapshot of the daemon's state. Safe to call from the
// healthz server goroutine.
func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	cycles := d.cycles
	d.mu.RUnlock()

	h := HealthStatus{
		Status:        "ok",
		UptimeS:       time.Since(d.start).Seconds(),
		Cycles:        cycles,
		WatchedDirs:   d.reg.Watched(),
		TotalDirs:     d.reg.Len(),
		EventsEnabled: d.watcher.Enabled(),
	}
	if d.counter != nil {
		h.Observations = d.counter.Count()
	}
	return h
}

// HealthzHandler serves the health snapshot as JSON with HTTP 200.
func (d *Daemon) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(d.Health()); err != nil {
		d.logger.Warn("healthz: failed to encode response", slog.Any("error", err))
	}
}
