package watch

import (
	"os"
	"path/filepath"
	"time"

	"github.com/syswatch/agent/internal/logsink"
)

// DefaultPollInterval is the minimum spacing between fallback scans. The
// poller is a safety net for events the watcher missed, not a primary
// detection mechanism, so it runs far less often than the main loop.
const DefaultPollInterval = 30 * time.Second

// Poller is the stat-based fallback scanner. Once per interval it compares
// each target's on-disk modification time against the stored baseline and
// reports directories that changed. It is the only writer of Target.LastMod.
type Poller struct {
	reg  *Registry
	sink logsink.Writer
	rec  Recorder // optional
	actor string

	logDir  string
	logName string

	interval time.Duration
	lastRun  time.Time
}

// NewPoller creates the fallback poller. logFile is the daemon's own
// observation log path, used to suppress baseline churn caused by the
// daemon's writes. A non-positive interval selects DefaultPollInterval.
func NewPoller(reg *Registry, sink logsink.Writer, rec Recorder, actor, logFile string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		reg:      reg,
		sink:     sink,
		rec:      rec,
		actor:    actor,
		logDir:   filepath.Dir(logFile),
		logName:  filepath.Base(logFile),
		interval: interval,
	}
}

// Run performs one rate-limited fallback scan. Calls arriving before the
// interval has elapsed since the previous scan are no-ops, so Run can be
// invoked every main-loop cycle.
func (p *Poller) Run() {
	now := time.Now()
	if now.Sub(p.lastRun) < p.interval {
		return
	}
	p.lastRun = now

	for _, t := range p.reg.Targets() {
		st, err := os.Stat(t.Path)
		if err != nil {
			continue
		}
		mtime := st.ModTime()

		// Self-noise: when the log directory's mtime moved only because the
		// log file inside it did, advance the baseline without reporting.
		// The check is skipped on the very first observation so a genuine
		// pre-existing baseline is established.
		if t.Path == p.logDir && !t.LastMod.IsZero() {
			if ls, err := os.Stat(filepath.Join(p.logDir, p.logName)); err == nil && ls.ModTime().Equal(mtime) {
				t.LastMod = mtime
				continue
			}
		}

		if !t.LastMod.IsZero() && mtime.After(t.LastMod) {
			p.sink.Write(p.actor, "Changes detected in directory: "+t.Path, logsink.SeverityInfo)
			if p.rec != nil {
				p.rec.Record(Observation{
					Dir:    t.Path,
					Kind:   KindModified,
					Source: SourcePoll,
					At:     now.UTC(),
				})
			}
		}

		// Advance unconditionally so an unchanged state never re-triggers.
		t.LastMod = mtime
	}
}
