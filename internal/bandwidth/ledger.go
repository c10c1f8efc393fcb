// Package bandwidth tracks allocation of a configured download bandwidth
// budget across concurrently running items and throttles per-item transfer
// rate once allocated.
package bandwidth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Ledger tracks how much of a total bandwidth budget (bytes/sec) is
// currently allocated to in-flight downloads. A zero TotalBudget means
// unlimited: CanAllocate always succeeds.
type Ledger struct {
	mu          sync.Mutex
	totalBudget int64
	allocated   int64
}

// NewLedger builds a Ledger with the given total budget in bytes/sec.
// totalBudget<=0 means unlimited.
func NewLedger(totalBudget int64) *Ledger {
	return &Ledger{totalBudget: totalBudget}
}

// CanAllocate reports whether amount more bytes/sec could be allocated
// without exceeding the budget.
func (l *Ledger) CanAllocate(amount int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.totalBudget <= 0 {
		return true
	}
	return l.allocated+amount <= l.totalBudget
}

// Allocate reserves amount bytes/sec if doing so fits the budget, returning
// whether the reservation succeeded.
func (l *Ledger) Allocate(amount int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.totalBudget > 0 && l.allocated+amount > l.totalBudget {
		return false
	}
	l.allocated += amount
	return true
}

// Release returns a previously allocated amount to the budget.
func (l *Ledger) Release(amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allocated -= amount
	if l.allocated < 0 {
		l.allocated = 0
	}
}

// Usage returns the currently allocated bytes/sec and the total budget.
func (l *Ledger) Usage() (allocated, total int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allocated, l.totalBudget
}

// Throttle builds a token-bucket limiter capped at perItemLimit bytes/sec,
// or an unlimited limiter when perItemLimit<=0.
func Throttle(perItemLimit int64) *rate.Limiter {
	if perItemLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perItemLimit)
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perItemLimit), burst)
}
