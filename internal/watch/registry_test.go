package watch_test

import (
	"errors"
	"testing"

	"github.com/syswatch/agent/internal/watch"
)

// TestNewRegistry_MapsHandlesToTargets verifies handle lookup across a table
// of installed watches.
func TestNewRegistry_MapsHandlesToTargets(t *testing.T) {
	inst := &fakeInstaller{wds: map[string]int32{
		"/etc":     1,
		"/var/log": 2,
		"/tmp":     3,
	}}
	reg := watch.NewRegistry([]string{"/etc", "/var/log", "/tmp"}, inst)

	if reg.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reg.Len())
	}
	if reg.Watched() != 3 {
		t.Fatalf("Watched() = %d, want 3", reg.Watched())
	}

	for wd, path := range map[int32]string{1: "/etc", 2: "/var/log", 3: "/tmp"} {
		target := reg.FindByWD(wd)
		if target == nil {
			t.Fatalf("FindByWD(%d) = nil", wd)
		}
		if target.Path != path {
			t.Errorf("FindByWD(%d).Path = %q, want %q", wd, target.Path, path)
		}
		if target.LastMod.IsZero() {
			t.Errorf("installed target %q has zero baseline", path)
		}
	}

	if got := reg.FindByWD(42); got != nil {
		t.Errorf("FindByWD(42) = %+v, want nil", got)
	}
}

// TestNewRegistry_FailedInstallStaysPollOnly verifies that a failed watch
// installation keeps the target registered with an unset handle and a zero
// baseline, so the fallback poller covers it.
func TestNewRegistry_FailedInstallStaysPollOnly(t *testing.T) {
	inst := &fakeInstaller{
		wds:  map[string]int32{"/etc": 1},
		errs: map[string]error{"/var/log": errors.New("watch limit reached")},
	}
	reg := watch.NewRegistry([]string{"/etc", "/var/log"}, inst)

	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if reg.Watched() != 1 {
		t.Fatalf("Watched() = %d, want 1", reg.Watched())
	}

	targets := reg.Targets()
	if targets[1].Path != "/var/log" {
		t.Fatalf("targets[1].Path = %q", targets[1].Path)
	}
	if targets[1].Watched() {
		t.Error("failed install reports Watched() = true")
	}
	if !targets[1].LastMod.IsZero() {
		t.Error("failed install has a non-zero baseline")
	}
}

// TestNewRegistry_NilInstaller verifies degraded startup: no installer at all
// leaves every target poll-only.
func TestNewRegistry_NilInstaller(t *testing.T) {
	reg := watch.NewRegistry([]string{"/etc", "/tmp"}, nil)

	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if reg.Watched() != 0 {
		t.Fatalf("Watched() = %d, want 0", reg.Watched())
	}
	for _, target := range reg.Targets() {
		if target.Watched() {
			t.Errorf("target %q watched without installer", target.Path)
		}
	}
}
