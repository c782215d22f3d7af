package mock

import "sync"

// Gauge measures concurrency in tests. Wrap an injected function body in
// Enter/Exit and assert Max() afterwards to verify a worker-pool bound.
type Gauge struct {
	mu      sync.Mutex
	current int
	max     int
}

// Enter marks one operation in flight.
func (g *Gauge) Enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	if g.current > g.max {
		g.max = g.current
	}
}

// Exit marks one operation finished.
func (g *Gauge) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

// Max returns the highest number of operations that were ever in flight
// at the same time.
func (g *Gauge) Max() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}
