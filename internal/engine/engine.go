// Package engine runs one command across an ordered set of apps through a
// single build backend.
//
// A build first generates code for every app on a bounded worker pool, then
// compiles the apps one at a time in selection order. Keep-going decides
// whether a failing app stops the batch; failures are merged, never dropped.
package engine

import (
	"runtime"
)

// EffectiveWorkers resolves the codegen pool size for n apps: the configured
// value or the CPU count, capped at n and never below 1.
func EffectiveWorkers(configured, n int) int {
	workers := configured
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n > 0 && workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
