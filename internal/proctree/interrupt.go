package proctree

import (
	"sync"
	"time"
)

// Resolution is what an interrupt request resolved to.
type Resolution int

const (
	// ResolutionSoft delivers a cooperative interrupt byte through the
	// terminal stream.
	ResolutionSoft Resolution = iota
	// ResolutionTree terminates the shell's descendant processes.
	ResolutionTree
)

func (r Resolution) String() string {
	if r == ResolutionTree {
		return "tree_kill"
	}
	return "soft"
}

// InterruptPolicy debounces repeated interrupts for one session. A
// single interrupt is soft; a second one inside the window escalates
// to a descendant kill. State is per-session so interrupts in one tab
// never affect another.
type InterruptPolicy struct {
	window time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewInterruptPolicy creates a policy with the given debounce window.
func NewInterruptPolicy(window time.Duration) *InterruptPolicy {
	return &InterruptPolicy{window: window}
}

// Observe records an interrupt at the given instant and returns how it
// should be resolved. After an escalation the timer resets, so a third
// interrupt starts a fresh soft/escalate cycle.
func (p *InterruptPolicy) Observe(now time.Time) Resolution {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() && now.Sub(p.last) < p.window {
		p.last = time.Time{}
		return ResolutionTree
	}
	p.last = now
	return ResolutionSoft
}
