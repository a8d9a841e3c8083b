package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out readable identifiers ("id-1", "room-3") with one
// counter per prefix.
type IDGenerator struct {
	mu       sync.Mutex
	prefix   string
	counters map[string]uint64
}

// NewIDGenerator returns a generator whose Next uses prefix, defaulting to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix, counters: map[string]uint64{}}
}

// Next returns the next identifier under the default prefix.
func (g *IDGenerator) Next() string {
	return g.next(g.prefix)
}

// NextFunc exposes Next for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// For returns a generator for prefix sharing this generator's counters.
func (g *IDGenerator) For(prefix string) func() string {
	return func() string { return g.next(prefix) }
}

func (g *IDGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counters[prefix])
}
