package utils

import (
	"log"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebug toggles Debugf output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs only when debug output is enabled. Callers keep the usual
// "[component] ..." prefix in format.
func Debugf(format string, args ...any) {
	if debugEnabled.Load() {
		log.Printf(format, args...)
	}
}
