// FILE: cfgman/timing.go
package cfgman

import "time"

// Watcher timing defaults.
const (
	MinDebounce     = 10 * time.Millisecond  // Hard floor for event coalescence
	DefaultDebounce = 500 * time.Millisecond // File change coalescence period
)

// Watcher limits.
const (
	DefaultMaxWatchers = 100 // Prevent resource exhaustion
	subscriberBuffer   = 10  // Events buffered per subscriber before drops
)
