//go:build !linux

package metrics

import "errors"

// FreeInodes is unavailable off Linux; the daemon logs the failure at
// warning severity once per cycle and continues.
func FreeInodes(mount string) (string, error) {
	return "", errors.New("metrics: statfs not supported on this platform")
}
