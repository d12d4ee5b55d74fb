package tracing

import (
	"math/rand"
	"sync"
)

// Sampler makes a sticky per-trace sampling decision: the base rate is
// rolled once at trace root creation, and a span that finishes with ERROR
// is also exported when a separate roll against the error rate succeeds,
// regardless of that original decision (spec §4.5).
type Sampler struct {
	baseRate  float64
	errorRate float64

	mu       sync.Mutex
	decisions map[string]bool
}

// NewSampler builds a Sampler with the given base and error sampling rates,
// both in [0, 1].
func NewSampler(baseRate, errorRate float64) *Sampler {
	return &Sampler{
		baseRate:  baseRate,
		errorRate: errorRate,
		decisions: make(map[string]bool),
	}
}

// DecideRoot rolls and records the sticky sampling decision for a new
// trace. Subsequent calls for the same traceID return the same decision.
func (s *Sampler) DecideRoot(traceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if decided, ok := s.decisions[traceID]; ok {
		return decided
	}
	decided := rand.Float64() < s.baseRate
	s.decisions[traceID] = decided
	return decided
}

// ShouldExport reports whether a finished span should be exported: the
// trace's root decision, overridden to true if the span errored and a
// fresh roll against errorRate succeeds.
func (s *Sampler) ShouldExport(traceID string, status Status) bool {
	s.mu.Lock()
	rootSampled := s.decisions[traceID]
	s.mu.Unlock()

	if status == StatusError {
		return rand.Float64() < s.errorRate || rootSampled
	}
	return rootSampled
}

// Forget drops the sticky decision for traceID, used once a trace
// completes to bound memory growth.
func (s *Sampler) Forget(traceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decisions, traceID)
}
