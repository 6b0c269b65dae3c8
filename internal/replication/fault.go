package replication

import "sync/atomic"

// DefaultFaultThreshold lets four creates through and fails the fifth.
const DefaultFaultThreshold = 4

// FaultInjector deterministically fails one create after every threshold
// consecutive successful local creates.
//
// Thread-safety: FaultInjector is safe for concurrent use (atomic
// operations). A nil *FaultInjector never trips.
type FaultInjector struct {
	threshold int64
	count     atomic.Int64
}

// NewFaultInjector returns an injector that trips once the success count
// exceeds threshold. A threshold <= 0 returns nil, which disables injection.
func NewFaultInjector(threshold int64) *FaultInjector {
	if threshold <= 0 {
		return nil
	}
	return &FaultInjector{threshold: threshold}
}

// RegisterSuccess records one successful local create and returns the new
// count.
func (f *FaultInjector) RegisterSuccess() int64 {
	if f == nil {
		return 0
	}
	return f.count.Add(1)
}

// ShouldForceFailureAndReset returns true and resets the counter to zero iff
// the counter exceeds the threshold. The false path leaves state untouched.
func (f *FaultInjector) ShouldForceFailureAndReset() bool {
	if f == nil {
		return false
	}
	for {
		n := f.count.Load()
		if n <= f.threshold {
			return false
		}
		if f.count.CompareAndSwap(n, 0) {
			return true
		}
	}
}

// Count returns the current success count without changing it.
func (f *FaultInjector) Count() int64 {
	if f == nil {
		return 0
	}
	return f.count.Load()
}

// Threshold returns the configured threshold, 0 when disabled.
func (f *FaultInjector) Threshold() int64 {
	if f == nil {
		return 0
	}
	return f.threshold
}
