package watch

import "time"

// unsetWD marks a target whose inotify subscription was never installed.
const unsetWD int32 = -1

// Installer installs an OS-level watch on a directory and returns its
// subscription handle. Satisfied by *Inotify; tests substitute fakes.
type Installer interface {
	AddWatch(path string) (int32, error)
}

// Target is one monitored directory. The registry is populated once at
// startup; Path and WD never change afterwards. LastMod is the fallback
// poller's comparison baseline and is written only by the poller (the event
// path never touches it, so the two mechanisms cannot contradict each other).
type Target struct {
	// Path is the absolute directory path.
	Path string
	// WD is the inotify watch descriptor, or unset (-1) when installation
	// failed and the target is covered by the fallback poller only.
	WD int32
	// LastMod is the most recent modification time observed for the
	// directory. Zero until the watch is installed or the poller first
	// stats the directory.
	LastMod time.Time
}

// Watched reports whether the target has a live inotify subscription.
func (t *Target) Watched() bool { return t.WD != unsetWD }

// Registry is the fixed-size table of watch targets. It is built once at
// startup and never grows or shrinks; each installed watch descriptor
// identifies exactly one target. All access happens on the single main
// thread, so no locking is needed.
type Registry struct {
	targets []*Target
}

// NewRegistry registers each path with the installer and returns the
// immutable target table. A nil installer (the notification channel failed to
// initialise) or a failed AddWatch leaves the target's handle unset; such
// targets remain eligible for the fallback poller. On success the target's
// baseline is initialised to the current time so the poller reports only
// changes made after startup.
func NewRegistry(paths []string, inst Installer) *Registry {
	targets := make([]*Target, 0, len(paths))
	for _, path := range paths {
		t := &Target{Path: path, WD: unsetWD}
		if inst != nil {
			if wd, err := inst.AddWatch(path); err == nil {
				t.WD = wd
				t.LastMod = time.Now()
			}
		}
		targets = append(targets, t)
	}
	return &Registry{targets: targets}
}

// FindByWD returns the target owning the given watch descriptor, or nil.
func (r *Registry) FindByWD(wd int32) *Target {
	for _, t := range r.targets {
		if t.Watched() && t.WD == wd {
			return t
		}
	}
	return nil
}

// Targets returns the full target table in registration order. The slice is
// the registry's own backing store; callers must not modify it.
func (r *Registry) Targets() []*Target {
	return r.targets
}

// Watched returns how many targets have a live inotify subscription.
func (r *Registry) Watched() int {
	n := 0
	for _, t := range r.targets {
		if t.Watched() {
			n++
		}
	}
	return n
}

// Len returns the number of registered targets.
func (r *Registry) Len() int { return len(r.targets) }
