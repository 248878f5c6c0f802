package sim

import "sync/atomic"

// Tick is a point on the logical clock of the simulated machine. It only
// orders events; it carries no wall-clock meaning.
type Tick uint64

// A Clock reports the current logical time.
type Clock interface {
	Now() Tick
}

// TickCounter is a Clock that moves forward only when told to. The machine
// advances it once per simulated memory access.
type TickCounter struct {
	now atomic.Uint64
}

// NewTickCounter creates a TickCounter that starts at the given tick.
func NewTickCounter(start Tick) *TickCounter {
	c := new(TickCounter)
	c.now.Store(uint64(start))
	return c
}

// Now returns the current tick.
func (c *TickCounter) Now() Tick {
	return Tick(c.now.Load())
}

// Advance moves the clock forward by n ticks and returns the new time.
func (c *TickCounter) Advance(n uint64) Tick {
	return Tick(c.now.Add(n))
}
