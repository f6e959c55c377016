// Package logsink implements the daemon's dual-destination observation log:
// an append-only log file and, when enabled, the system log facility. The two
// sinks are independent — failure of one never blocks or drops the other.
package logsink

import (
	"fmt"
	"log/syslog"
	"os"
	"time"
)

// Tag is the program identifier attached to every syslog record.
const Tag = "syswatchd"

// timeLayout is the log-file timestamp format.
const timeLayout = "2006-01-02 15:04:05"

// Severity classifies a log record.
type Severity int

const (
	// SeverityInfo is a routine observation.
	SeverityInfo Severity = iota
	// SeverityWarning is a degraded-capability or sampling failure.
	SeverityWarning
	// SeverityError is a hard failure.
	SeverityError
	// SeverityDebug is diagnostic detail.
	SeverityDebug
)

// String returns the level label used in the log-file line format.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// Writer is the interface components log observations through. It is
// satisfied by *Sink and by in-memory test doubles.
type Writer interface {
	// Write records one observation attributed to actor at the given
	// severity. Implementations must never fail the caller.
	Write(actor, text string, severity Severity)
}

// Sink writes each record to a line-buffered log file and forwards it to
// syslog. Records are formatted as
//
//	[YYYY-MM-DD HH:MM:SS] [LEVEL] [actor] text
//
// in the file, and as "[actor] text" at the mapped priority in syslog.
type Sink struct {
	file *os.File       // nil once the file sink is unavailable
	sys  *syslog.Writer // nil when syslog is disabled or unreachable
}

// Open opens (or creates) the log file at path for appending and, when
// useSyslog is set, connects to the system log with the daemon facility and
// the fixed program tag. A file open failure is returned to the caller and is
// fatal to startup; a syslog connection failure is not surfaced — the file
// sink simply runs alone.
func Open(path string, useSyslog bool) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open %q: %w", path, err)
	}

	s := &Sink{file: f}
	if useSyslog {
		// Best effort: a missing syslog daemon leaves sys nil.
		s.sys, _ = syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, Tag)
	}
	return s, nil
}

// Write implements Writer. Each file write is handed to the OS before Write
// returns (the file is opened unbuffered in append mode). If the file write
// fails the file sink disables itself; syslog delivery is fire-and-forget.
func (s *Sink) Write(actor, text string, severity Severity) {
	if s.file != nil {
		line := fmt.Sprintf("[%s] [%s] [%s] %s\n",
			time.Now().Format(timeLayout), severity, actor, text)
		if _, err := s.file.WriteString(line); err != nil {
			// The sink is append-only with no recovery path; stop attempting
			// file writes and keep the syslog side alive.
			_ = s.file.Close()
			s.file = nil
		}
	}

	if s.sys != nil {
		msg := fmt.Sprintf("[%s] %s", actor, text)
		switch severity {
		case SeverityWarning:
			_ = s.sys.Warning(msg)
		case SeverityError:
			_ = s.sys.Err(msg)
		case SeverityDebug:
			_ = s.sys.Debug(msg)
		default:
			_ = s.sys.Info(msg)
		}
	}
}

// SyslogEnabled reports whether the syslog side of the sink is connected.
func (s *Sink) SyslogEnabled() bool {
	return s.sys != nil
}

// Close flushes and closes both sinks. Write remains safe to call after
// Close; records are silently discarded.
func (s *Sink) Close() error {
	var firstErr error
	if s.file != nil {
		if err := s.file.Sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logsink: sync: %w", err)
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logsink: close: %w", err)
		}
		s.file = nil
	}
	if s.sys != nil {
		if err := s.sys.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("logsink: close syslog: %w", err)
		}
		s.sys = nil
	}
	return firstErr
}
