//go:build linux

package watch

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// watchMask is the event set subscribed on every watched directory.
const watchMask = MaskCreate | MaskDelete | MaskModify | MaskMovedFrom | MaskMovedTo

// Inotify owns the kernel notification channel. It implements both Installer
// (watch registration at startup) and Source (the per-cycle drain). The
// descriptor is opened non-blocking so a drained queue never stalls the main
// loop, and close-on-exec so it does not leak into children.
type Inotify struct {
	fd int
}

// NewInotify initialises the inotify instance. An error here is the
// degraded-capability case: the caller reports it once at warning severity
// and the fallback poller becomes the sole detection mechanism.
func NewInotify() (*Inotify, error) {
	fd, err := syscall.InotifyInit1(syscall.IN_NONBLOCK | syscall.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("watch: inotify init: %w", err)
	}
	return &Inotify{fd: fd}, nil
}

// AddWatch subscribes path for the directory-change event set and returns the
// kernel-issued watch descriptor. It implements Installer.
func (in *Inotify) AddWatch(path string) (int32, error) {
	wd, err := syscall.InotifyAddWatch(in.fd, path, watchMask)
	if err != nil {
		return 0, fmt.Errorf("watch: add watch %q: %w", path, err)
	}
	return int32(wd), nil
}

// Pending reports whether the descriptor has readable event data, using a
// zero-timeout poll(2) so the check never blocks. It implements Source.
func (in *Inotify) Pending() (bool, error) {
	pfd := []unix.PollFd{{Fd: int32(in.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(pfd, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("watch: poll: %w", err)
		}
		return n > 0 && pfd[0].Revents&unix.POLLIN != 0, nil
	}
}

// Read fills p with pending raw event records. The descriptor is
// non-blocking; a race against an empty queue returns (0, nil) rather than
// an error. It implements Source.
func (in *Inotify) Read(p []byte) (int, error) {
	n, err := syscall.Read(in.fd, p)
	if err == syscall.EAGAIN || err == syscall.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("watch: read: %w", err)
	}
	return n, nil
}

// Close releases the notification channel and all its watches.
func (in *Inotify) Close() error {
	if err := syscall.Close(in.fd); err != nil {
		return fmt.Errorf("watch: close: %w", err)
	}
	return nil
}
