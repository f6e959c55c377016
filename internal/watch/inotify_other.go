//go:build !linux

package watch

import "errors"

// Inotify is unavailable off Linux; the daemon runs in fallback-poll-only
// mode there, exactly as it does when inotify initialisation fails.
type Inotify struct{}

// NewInotify always fails on non-Linux platforms.
func NewInotify() (*Inotify, error) {
	return nil, errors.New("watch: inotify requires linux")
}

func (in *Inotify) AddWatch(path string) (int32, error) {
	return 0, errors.New("watch: inotify requires linux")
}

func (in *Inotify) Pending() (bool, error) {
	return false, errors.New("watch: inotify requires linux")
}

func (in *Inotify) Read(p []byte) (int, error) {
	return 0, errors.New("watch: inotify requires linux")
}

func (in *Inotify) Close() error { return nil }
