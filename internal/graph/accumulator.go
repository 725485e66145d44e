package graph

import "sync"

// Accumulator is the fan-in point for branch findings.
// Findings are appended in the order branches finish.
type Accumulator struct {
	mu       sync.Mutex
	findings []string
}

// NewAccumulator creates an Accumulator sized for n branches.
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{findings: make([]string, 0, n)}
}

// Merge appends one finding and returns the number merged so far.
func (a *Accumulator) Merge(finding string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.findings = append(a.findings, finding)
	return len(a.findings)
}

// Findings returns a copy of the merged findings.
func (a *Accumulator) Findings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.findings))
	copy(out, a.findings)
	return out
}
