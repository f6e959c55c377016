package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/syswatch/agent/internal/watch"
)

// pollOnlyRegistry builds a registry whose targets have no live watches, so
// every baseline starts zero and the poller owns it outright.
func pollOnlyRegistry(paths ...string) *watch.Registry {
	return watch.NewRegistry(paths, nil)
}

// TestPoller_FirstScanEstablishesBaseline verifies that the first observation
// of a directory never reports: it only records the pre-existing state.
func TestPoller_FirstScanEstablishesBaseline(t *testing.T) {
	dir := t.TempDir()
	reg := pollOnlyRegistry(dir)
	sink := &memSink{}
	p := watch.NewPoller(reg, sink, nil, "root", "/var/log/syswatch.log", time.Nanosecond)

	p.Run()

	if len(sink.recs) != 0 {
		t.Fatalf("first scan reported: %+v", sink.recs)
	}
	if reg.Targets()[0].LastMod.IsZero() {
		t.Error("baseline not established after first scan")
	}
}

// TestPoller_UnchangedDirectoryStaysQuiet verifies repeated scans of an
// untouched directory produce no reports.
func TestPoller_UnchangedDirectoryStaysQuiet(t *testing.T) {
	dir := t.TempDir()
	reg := pollOnlyRegistry(dir)
	sink := &memSink{}
	p := watch.NewPoller(reg, sink, nil, "root", "/var/log/syswatch.log", time.Nanosecond)

	for i := 0; i < 3; i++ {
		p.Run()
		time.Sleep(2 * time.Millisecond)
	}

	if len(sink.recs) != 0 {
		t.Fatalf("unchanged directory reported: %+v", sink.recs)
	}
}

// TestPoller_ReportsNewerMtime verifies that a directory whose modification
// time moves past the baseline is reported exactly once and the baseline
// advances.
func TestPoller_ReportsNewerMtime(t *testing.T) {
	dir := t.TempDir()
	reg := pollOnlyRegistry(dir)
	sink := &memSink{}
	rec := &memRecorder{}
	p := watch.NewPoller(reg, sink, rec, "root", "/var/log/syswatch.log", time.Nanosecond)

	p.Run() // baseline

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	p.Run()

	if len(sink.recs) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(sink.recs), sink.recs)
	}
	if sink.recs[0].text != "Changes detected in directory: "+dir {
		t.Errorf("record text = %q", sink.recs[0].text)
	}
	if len(rec.obs) != 1 || rec.obs[0].Source != watch.SourcePoll {
		t.Errorf("observations = %+v, want one poll-sourced entry", rec.obs)
	}

	// Baseline advanced; the same state must not re-trigger.
	time.Sleep(2 * time.Millisecond)
	p.Run()
	if len(sink.recs) != 1 {
		t.Fatalf("unchanged state re-triggered: %+v", sink.recs[1:])
	}
}

// TestPoller_RateLimited verifies that scans arriving before the interval
// elapses are no-ops.
func TestPoller_RateLimited(t *testing.T) {
	dir := t.TempDir()
	reg := pollOnlyRegistry(dir)
	sink := &memSink{}
	p := watch.NewPoller(reg, sink, nil, "root", "/var/log/syswatch.log", time.Hour)

	p.Run() // baseline scan

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatal(err)
	}
	p.Run() // inside the interval: must not scan

	if len(sink.recs) != 0 {
		t.Fatalf("rate-limited scan reported: %+v", sink.recs)
	}
	if reg.Targets()[0].LastMod.Equal(future) {
		t.Error("rate-limited scan advanced the baseline")
	}
}

// TestPoller_SuppressesLogDirectoryNoise verifies that when the log
// directory's mtime matches the log file's own mtime, the poller advances the
// baseline silently instead of reporting the daemon's writes back to itself.
func TestPoller_SuppressesLogDirectoryNoise(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "syswatch.log")
	if err := os.WriteFile(logFile, []byte("seed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := pollOnlyRegistry(dir)
	sink := &memSink{}
	p := watch.NewPoller(reg, sink, nil, "root", logFile, time.Nanosecond)

	p.Run() // baseline

	// Simulate a log write: both the file and its directory move forward to
	// the same instant.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(logFile, future, future); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	p.Run()

	if len(sink.recs) != 0 {
		t.Fatalf("log-directory noise reported: %+v", sink.recs)
	}
	if !reg.Targets()[0].LastMod.Equal(future) {
		t.Error("baseline not advanced past suppressed change")
	}

	// A change not matching the log file's mtime still reports.
	later := future.Add(time.Hour)
	if err := os.Chtimes(dir, later, later); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	p.Run()

	if len(sink.recs) != 1 {
		t.Fatalf("genuine change in log directory not reported: %+v", sink.recs)
	}
}

// TestPoller_MissingDirectorySkipped verifies that a stat failure on one
// target does not disturb the others.
func TestPoller_MissingDirectorySkipped(t *testing.T) {
	dir := t.TempDir()
	gone := filepath.Join(dir, "never-created")
	reg := pollOnlyRegistry(gone, dir)
	sink := &memSink{}
	p := watch.NewPoller(reg, sink, nil, "root", "/var/log/syswatch.log", time.Nanosecond)

	p.Run() // baseline for dir; gone is skipped

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	p.Run()

	if len(sink.recs) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(sink.recs), sink.recs)
	}
	if sink.recs[0].text != "Changes detected in directory: "+dir {
		t.Errorf("record text = %q", sink.recs[0].text)
	}
}
