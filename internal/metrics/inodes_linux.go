//go:build linux

package metrics

import (
	"fmt"
	"syscall"
)

// FreeInodes reports the free and total inode counts of the filesystem
// holding mount (normally "/"), as returned by statfs(2).
func FreeInodes(mount string) (string, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(mount, &fs); err != nil {
		return "", fmt.Errorf("metrics: statfs %s: %w", mount, err)
	}
	return fmt.Sprintf("Free inodes: %d out of %d", fs.Ffree, fs.Files), nil
}
