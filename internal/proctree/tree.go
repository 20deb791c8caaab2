package proctree

import (
	"errors"
	"fmt"

	"github.com/termstack/termd/internal/infrastructure/logging"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Process is one entry in a process-table snapshot.
type Process struct {
	Pid  int
	PPid int
}

// Controller terminates the descendants of a root process without ever
// touching the root itself. Snapshot and kill are injectable so the
// traversal can be exercised against synthetic trees.
type Controller struct {
	snapshot func() ([]Process, error)
	kill     func(pid int) error
	logger   *logging.Logger
}

// New creates a controller backed by the real OS process table.
func New(logger *logging.Logger) *Controller {
	return &Controller{
		snapshot: Snapshot,
		kill:     killProcess,
		logger:   logger,
	}
}

// NewWithTable creates a controller over an injected snapshot and kill
// function, for tests.
func NewWithTable(snapshot func() ([]Process, error), kill func(pid int) error) *Controller {
	return &Controller{
		snapshot: snapshot,
		kill:     kill,
		logger:   logging.NewNop(),
	}
}

// handle tracks one termination operation: the root pid plus every
// descendant observed so far. Constructed per call, discarded after.
type handle struct {
	root int
	seen map[int]bool
}

// TerminateDescendants enumerates the process table, walks the tree
// below root breadth-first, and kills every descendant. The root is
// excluded by construction: the traversal starts at its children and
// the root pid is pre-seeded into the visited set, so no tree shape
// can reach it. Returns the number of processes terminated.
//
// A descendant that exits between enumeration and kill is counted as
// handled, not an error.
func (c *Controller) TerminateDescendants(root int) (int, error) {
	if root <= 0 {
		return 0, fmt.Errorf("invalid root pid %d", root)
	}

	table, err := c.snapshot()
	if err != nil {
		return 0, fmt.Errorf("process table enumeration failed: %w", err)
	}

	children := make(map[int][]int, len(table))
	for _, p := range table {
		children[p.PPid] = append(children[p.PPid], p.Pid)
	}

	h := &handle{root: root, seen: map[int]bool{root: true}}

	queue := append([]int(nil), children[root]...)
	terminated := 0
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if h.seen[pid] {
			continue
		}
		h.seen[pid] = true

		queue = append(queue, children[pid]...)

		if err := c.kill(pid); err != nil {
			// Already gone: the race is success.
			if errors.Is(err, unix.ESRCH) {
				terminated++
				continue
			}
			c.logger.Warn("failed to kill descendant",
				zap.Int("pid", pid),
				zap.Int("root", root),
				zap.Error(err),
			)
			continue
		}
		terminated++
	}

	c.logger.Debug("descendants terminated",
		zap.Int("root", root),
		zap.Int("count", terminated),
	)
	return terminated, nil
}

func killProcess(pid int) error {
	// SIGKILL rather than SIGTERM: the caller already escalated past
	// the cooperative interrupt path. No timeout or polling; the OS
	// owns forced-termination semantics.
	return unix.Kill(pid, unix.SIGKILL)
}
