// Package errors - pluggable error reporting hook
package errors

import (
	"sync"
	"sync/atomic"
)

// Reporter receives enhanced errors as they are built. The notification
// service registers itself here so errors become user-visible notices
// without this package depending on it.
type Reporter interface {
	ReportError(ee *EnhancedError)
}

var (
	hasActiveReporting atomic.Bool
	reporterMu         sync.RWMutex
	activeReporter     Reporter
)

// SetReporter installs the global error reporter. Passing nil disables
// reporting and restores the builder's fast path.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	activeReporter = r
	hasActiveReporting.Store(r != nil)
}

func report(ee *EnhancedError) {
	reporterMu.RLock()
	r := activeReporter
	reporterMu.RUnlock()
	if r == nil || ee.IsReported() {
		return
	}
	r.ReportError(ee)
	ee.MarkReported()
}
