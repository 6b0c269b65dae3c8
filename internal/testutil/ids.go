package testutil

import (
	"fmt"
	"sync"
)

// SequentialGenerator mints predictable UUID-shaped external ids:
// 00000000-0000-7000-8000-000000000001, ...-000000000002, and so on.
//
// It never runs out, and it can be reset
// for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialGenerator creates a generator whose first id ends in 1.
func NewSequentialGenerator() *SequentialGenerator {
	return &SequentialGenerator{}
}

// Generate returns the next id.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return SequentialID(g.seq)
}

// Reset restarts the sequence. The next id ends in 1 again.
func (g *SequentialGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// SequentialID returns the n-th id produced by a SequentialGenerator.
func SequentialID(n int64) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
}
