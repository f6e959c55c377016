package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/syswatch/agent/internal/logsink"
)

// readBufSize bounds a single drain of the notification channel. Events left
// in the kernel queue are picked up on the next cycle.
const readBufSize = 4096

// Source is the OS notification channel the EventWatcher drains. Satisfied
// by *Inotify; tests substitute fakes that serve injected buffers.
type Source interface {
	// Pending reports, without blocking, whether the channel has readable
	// data (a zero-timeout readiness check).
	Pending() (bool, error)
	// Read fills p with raw event records. A read that would block returns
	// (0, nil).
	Read(p []byte) (int, error)
}

// EventWatcher drains pending inotify events once per main-loop cycle,
// decodes them, maps each back to its registry target, suppresses the
// daemon's own log-write noise, and emits one info record per change.
type EventWatcher struct {
	src  Source // nil when the notification channel failed to initialise
	reg  *Registry
	sink logsink.Writer
	rec  Recorder // optional
	actor string

	// selfDir and selfName identify the daemon's own log file; events for it
	// are suppressed to break the write→event→write feedback loop.
	selfDir  string
	selfName string

	buf []byte
}

// NewEventWatcher wires the watcher to its notification source and registry.
// src may be nil, in which case every Drain is a no-op and the fallback
// poller is the sole detection mechanism. logFile is the daemon's own
// observation log path, used for self-noise suppression.
func NewEventWatcher(src Source, reg *Registry, sink logsink.Writer, rec Recorder, actor, logFile string) *EventWatcher {
	return &EventWatcher{
		src:      src,
		reg:      reg,
		sink:     sink,
		rec:      rec,
		actor:    actor,
		selfDir:  filepath.Dir(logFile),
		selfName: filepath.Base(logFile),
		buf:      make([]byte, readBufSize),
	}
}

// Enabled reports whether the notification channel is available.
func (w *EventWatcher) Enabled() bool { return w.src != nil }

// Drain performs one non-blocking check of the notification channel and
// processes whatever records are pending. A pending event never extends the
// main loop's sleep: at most one bounded read happens per call.
func (w *EventWatcher) Drain() {
	if w.src == nil {
		return
	}

	ready, err := w.src.Pending()
	if err != nil {
		w.sink.Write(w.actor, fmt.Sprintf("Error checking directory events: %v", err), logsink.SeverityWarning)
		return
	}
	if !ready {
		return
	}

	n, err := w.src.Read(w.buf)
	if err != nil {
		w.sink.Write(w.actor, fmt.Sprintf("Error reading directory events: %v", err), logsink.SeverityWarning)
		return
	}
	if n <= 0 {
		return
	}

	w.Process(w.buf[:n])
}

// Process decodes one raw event buffer and emits a log record per reportable
// change. It is exported so tests can inject crafted buffers without a live
// inotify descriptor.
func (w *EventWatcher) Process(buf []byte) {
	events, err := DecodeAll(buf)
	if err != nil {
		w.sink.Write(w.actor, fmt.Sprintf("Discarding malformed event data: %v", err), logsink.SeverityWarning)
	}

	for _, ev := range events {
		if ev.Mask&MaskQOverflow != 0 {
			// Delivered with wd == -1 when the kernel dropped events; the
			// fallback poller covers the gap.
			w.sink.Write(w.actor, "Directory event queue overflowed; some events may be lost", logsink.SeverityWarning)
			continue
		}

		target := w.reg.FindByWD(ev.WD)
		if target == nil {
			continue
		}

		// Self-noise: our own log writes show up as activity in the log
		// directory.
		if target.Path == w.selfDir && ev.Name == w.selfName {
			continue
		}

		kind := ev.Kind()
		var text string
		if ev.Name != "" {
			text = fmt.Sprintf("%s: %s of file %s", target.Path, kind, ev.Name)
		} else {
			text = fmt.Sprintf("%s: %s", target.Path, kind)
		}
		w.sink.Write(w.actor, text, logsink.SeverityInfo)

		if w.rec != nil {
			w.rec.Record(Observation{
				Dir:    target.Path,
				Kind:   kind,
				Entry:  ev.Name,
				Source: SourceEvent,
				At:     time.Now().UTC(),
			})
		}
	}
}
