package internal

import (
	"strconv"
	"sync/atomic"
)

// Global output modes. Each mode has two sources: a build-time default baked
// in via ldflags, and the CLI's -q/-d/-v flags, which override the default
// after argument parsing. Atomics because logging may already be running
// when the flags land.
var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

// Seeds the modes from the raw ldflags values. A mode whose value is unset
// or unparseable stays off.
func init() {
	seedMode(&quietMode, rawQuiet)
	seedMode(&debugMode, rawDebug)
	seedMode(&verboseMode, rawVerbose)
}

func seedMode(mode *atomic.Bool, raw string) {
	if v, err := strconv.ParseBool(raw); err == nil {
		mode.Store(v)
	}
}

// Enables or disables quiet mode. Called by the CLI when -q is given.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if informational output is suppressed.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode. Called by the CLI when -d is given.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug logging is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose logging. Called by the CLI when -v is given.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}
