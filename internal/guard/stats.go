package guard

import (
	"sync"
	"time"
)

// Stats is a Recorder that keeps running totals for the admin dashboard.
type Stats struct {
	mu         sync.Mutex
	outcomes   map[Outcome]int64
	operations map[string]*OperationStats
}

// OperationStats aggregates calls for a single named operation.
type OperationStats struct {
	Calls        int64         `json:"calls"`
	Fallbacks    int64         `json:"fallbacks"`
	TotalLatency time.Duration `json:"-"`
	AvgLatencyMS int64         `json:"avg_latency_ms"`
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Calls      int64                     `json:"calls"`
	Fallbacks  int64                     `json:"fallbacks"`
	Outcomes   map[Outcome]int64         `json:"outcomes"`
	Operations map[string]OperationStats `json:"operations"`
}

// NewStats constructs an empty Stats recorder.
func NewStats() *Stats {
	return &Stats{
		outcomes:   make(map[Outcome]int64),
		operations: make(map[string]*OperationStats),
	}
}

// Record implements Recorder.
func (s *Stats) Record(name string, outcome Outcome, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[outcome]++
	op, ok := s.operations[name]
	if !ok {
		op = &OperationStats{}
		s.operations[name] = op
	}
	op.Calls++
	if outcome.IsFallback() {
		op.Fallbacks++
	}
	op.TotalLatency += latency
}

// Snapshot copies the current totals.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Outcomes:   make(map[Outcome]int64, len(s.outcomes)),
		Operations: make(map[string]OperationStats, len(s.operations)),
	}
	for outcome, n := range s.outcomes {
		snap.Outcomes[outcome] = n
		snap.Calls += n
		if outcome.IsFallback() {
			snap.Fallbacks += n
		}
	}
	for name, op := range s.operations {
		cp := *op
		if cp.Calls > 0 {
			cp.AvgLatencyMS = (cp.TotalLatency / time.Duration(cp.Calls)).Milliseconds()
		}
		snap.Operations[name] = cp
	}
	return snap
}
