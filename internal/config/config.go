// Package config loads the syswatch daemon configuration: a line-oriented
// KEY=VALUE file plus an optional YAML watch-list file naming the directories
// to monitor.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the deployment-convention location of the daemon
// configuration file. The file is optional; when it is absent the defaults
// below apply.
const DefaultPath = "/etc/syswatch/syswatch.conf"

// DefaultLogFile is the observation log the daemon appends to.
const DefaultLogFile = "/var/log/syswatch.log"

// DefaultInterval is the main-loop cycle interval when LOG_INTERVAL is absent
// or out of range.
const DefaultInterval = 5 * time.Second

// maxInterval is the upper bound accepted for LOG_INTERVAL, in seconds.
// Values outside (0, 3600] leave the previous interval untouched.
const maxInterval = 3600

// DefaultWatchDirs is the built-in set of monitored directories, used when no
// WATCH_LIST file is configured. The set is fixed for the process lifetime.
var DefaultWatchDirs = []string{"/etc", "/var/log", "/tmp"}

// Config holds the effective daemon configuration.
type Config struct {
	// Interval is the main-loop cycle interval. Read from LOG_INTERVAL
	// (seconds); out-of-range values are rejected and the previous value
	// kept.
	Interval time.Duration

	// UseSyslog enables forwarding of every observation to the system log
	// facility. Read from USE_SYSLOG with C atoi semantics: any value that
	// parses to a non-zero integer enables it, everything else disables it.
	UseSyslog bool

	// LogFile is the append-only observation log path. Read from LOG_FILE.
	LogFile string

	// WatchDirs is the fixed set of directories to monitor. Populated from
	// the WATCH_LIST YAML file when configured, DefaultWatchDirs otherwise.
	WatchDirs []string

	// EventDB is the path of the optional SQLite observation journal. Empty
	// disables the journal. Read from EVENT_DB.
	EventDB string

	// HealthAddr is the listen address of the optional healthz HTTP server
	// (e.g. "127.0.0.1:9200"). Empty disables the server. Read from
	// HEALTH_ADDR.
	HealthAddr string
}

// Default returns a Config carrying all default values.
func Default() *Config {
	return &Config{
		Interval:  DefaultInterval,
		UseSyslog: true,
		LogFile:   DefaultLogFile,
		WatchDirs: append([]string(nil), DefaultWatchDirs...),
	}
}

// Load reads the KEY=VALUE configuration file at path and returns the
// effective configuration. A missing file is not an error: the defaults
// apply. Comment lines (leading '#'), blank lines, and unknown keys are
// ignored; malformed values for known keys leave the default in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	var watchList string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		switch key {
		case "LOG_INTERVAL":
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 && secs <= maxInterval {
				cfg.Interval = time.Duration(secs) * time.Second
			}
		case "USE_SYSLOG":
			cfg.UseSyslog = atoi(value) != 0
		case "LOG_FILE":
			if value != "" {
				cfg.LogFile = value
			}
		case "WATCH_LIST":
			watchList = value
		case "EVENT_DB":
			cfg.EventDB = value
		case "HEALTH_ADDR":
			cfg.HealthAddr = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if watchList != "" {
		dirs, err := LoadWatchList(watchList)
		if err != nil {
			return nil, err
		}
		cfg.WatchDirs = dirs
	}

	return cfg, nil
}

// watchListFile is the YAML schema of the watch-list file.
type watchListFile struct {
	Directories []string `yaml:"directories"`
}

// LoadWatchList reads the YAML watch-list file at path and returns the
// directory set, e.g.:
//
//	directories:
//	  - /etc
//	  - /var/log
//
// An empty or missing directories list is an error: a daemon with nothing to
// watch is a misconfiguration worth failing loudly on.
func LoadWatchList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read watch list %q: %w", path, err)
	}

	var wl watchListFile
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("config: parse watch list %q: %w", path, err)
	}
	if len(wl.Directories) == 0 {
		return nil, fmt.Errorf("config: watch list %q names no directories", path)
	}
	return wl.Directories, nil
}

// atoi mimics C atoi: it parses the longest leading decimal integer and
// returns 0 when there is none. USE_SYSLOG relies on this so that values like
// "yes" disable syslog instead of being rejected.
func atoi(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return 0
	}
	return n
}

// Username resolves the invoking user the way the daemon reports it: $USER,
// then $USERNAME, then "unknown".
func Username() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "unknown"
}
