// Package watch implements the directory-change detection subsystem: a fixed
// registry of watched directories, an inotify-backed event watcher that
// drains and decodes the raw kernel event stream without blocking the main
// loop, and a rate-limited stat-based fallback poller that covers targets the
// event watcher missed or never received.
package watch

import "time"

// Observation is one detected directory change, as handed to an optional
// Recorder after it has been written to the log sink.
type Observation struct {
	// Dir is the watched directory the change occurred in.
	Dir string
	// Kind classifies the change. Fallback-poll observations always carry
	// KindModified: stat-based detection cannot distinguish further.
	Kind Kind
	// Entry is the affected file name within Dir, when the event named one.
	Entry string
	// Source is SourceEvent or SourcePoll.
	Source string
	// At is when the change was observed.
	At time.Time
}

// Observation sources.
const (
	SourceEvent = "inotify"
	SourcePoll  = "poll"
)

// Recorder receives every emitted observation, e.g. for the SQLite journal.
// Implementations must not block the single-threaded main loop.
type Recorder interface {
	Record(o Observation)
}
