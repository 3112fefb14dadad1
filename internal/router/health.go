package router

import (
	"sort"
	"sync"
	"time"
)

// HealthTracker holds one circuit breaker per provider ID. Breakers are
// created on first use, so unknown providers start healthy.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	failureThreshold int
	probeInterval    time.Duration
}

// NewHealthTracker returns a tracker whose breakers share one configuration.
func NewHealthTracker(failureThreshold int, probeInterval time.Duration) *HealthTracker {
	return &HealthTracker{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		probeInterval:    probeInterval,
	}
}

// Breaker returns the breaker for provider, creating it if needed.
func (ht *HealthTracker) Breaker(provider string) *CircuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[provider]
	ht.mu.RUnlock()
	if ok {
		return cb
	}

	ht.mu.Lock()
	defer ht.mu.Unlock()
	if cb, ok := ht.breakers[provider]; ok {
		return cb
	}
	cb = NewCircuitBreaker(ht.failureThreshold, ht.probeInterval)
	ht.breakers[provider] = cb
	return cb
}

// Allow reports whether provider may serve the next resolution.
func (ht *HealthTracker) Allow(provider string) bool {
	return ht.Breaker(provider).Allow()
}

// Report feeds the outcome of a call made against provider.
func (ht *HealthTracker) Report(provider string, success bool) {
	cb := ht.Breaker(provider)
	if success {
		cb.RecordSuccess()
		return
	}
	cb.RecordFailure()
}

// ProviderState is one row of a health snapshot.
type ProviderState struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// Snapshot lists every provider seen so far, sorted by name.
func (ht *HealthTracker) Snapshot() []ProviderState {
	ht.mu.RLock()
	out := make([]ProviderState, 0, len(ht.breakers))
	for name, cb := range ht.breakers {
		out = append(out, ProviderState{Provider: name, State: cb.State().String()})
	}
	ht.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
