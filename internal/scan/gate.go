package scan

import (
	"context"
	"sync"
)

// Gate is the pause point the scan worker waits on between segments.
// Pausing closes the gate; the worker blocks in Wait without consuming
// instrument time until the gate reopens or the context is cancelled. A
// pause takes effect only at the next checkpoint, never mid-sweep.
type Gate struct {
	mu     sync.Mutex
	resume chan struct{} // closed while the gate is open
}

// NewGate creates an open gate.
func NewGate() *Gate {
	ch := make(chan struct{})
	close(ch)
	return &Gate{resume: ch}
}

// Pause closes the gate. Safe to call repeatedly.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.resume:
		g.resume = make(chan struct{})
	default: // already paused
	}
}

// Resume reopens the gate, releasing any waiter. Safe to call repeatedly.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.resume:
	default:
		close(g.resume)
	}
}

// Paused reports whether the gate is closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.resume:
		return false
	default:
		return true
	}
}

// Wait blocks while the gate is paused. It returns nil once the gate is
// open, or the context error if the context is cancelled first.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.resume
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
