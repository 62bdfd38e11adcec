package sim

import (
	"context"
	"time"
)

// Clock drives the fixed-rate simulation loop. It decouples the step
// function from wall-clock scheduling: tests call World.Step directly
// and never need a Clock.
type Clock struct {
	interval time.Duration
}

// NewClock creates a clock firing tickRate times per second.
func NewClock(tickRate int) *Clock {
	return &Clock{interval: time.Second / time.Duration(tickRate)}
}

// Interval returns the fixed step duration.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Run invokes step once per interval until the context is canceled.
// A step that overruns its slot delays the next one; steps never
// overlap.
func (c *Clock) Run(ctx context.Context, step func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step()
		}
	}
}
