// Package metrics holds the stateless single-shot samplers the daemon runs
// every cycle: uptime, TCP connection counts, and free inodes. Each sampler
// reads one OS-exposed data source and renders a human-readable observation
// line; failures are returned to the caller, which logs them at warning
// severity and moves on.
package metrics

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default data sources.
const (
	ProcUptime = "/proc/uptime"
	ProcNetTCP = "/proc/net/tcp"
	RootMount  = "/"
)

// Uptime reads the kernel uptime counter at path (normally /proc/uptime) and
// renders it as days/hours/minutes plus the raw second count.
func Uptime(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("metrics: read %s: %w", path, err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("metrics: %s: empty", path)
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", fmt.Errorf("metrics: parse %s: %w", path, err)
	}

	total := int64(secs)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	return fmt.Sprintf("Uptime: %d days, %d hours, %d minutes (%.0f seconds)",
		days, hours, minutes, secs), nil
}

// tcpEstablished is the hex connection-state code for ESTABLISHED in the
// /proc/net/tcp table.
const tcpEstablished = "01"

// TCPConnections counts the rows of the kernel TCP connection table at path
// (normally /proc/net/tcp) and how many of them are in the ESTABLISHED state.
func TCPConnections(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("metrics: open %s: %w", path, err)
	}
	defer f.Close()

	total, established := 0, 0
	first := true

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if first {
			first = false // column header row
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		total++
		if fields[3] == tcpEstablished {
			established++
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("metrics: read %s: %w", path, err)
	}

	return fmt.Sprintf("TCP network connections: total %d, established %d",
		total, established), nil
}
