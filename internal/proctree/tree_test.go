package proctree

import (
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type killRecorder struct {
	mu     sync.Mutex
	killed []int
	fail   map[int]error
}

func (k *killRecorder) kill(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err, ok := k.fail[pid]; ok {
		return err
	}
	k.killed = append(k.killed, pid)
	return nil
}

func fixedTable(procs ...Process) func() ([]Process, error) {
	return func() ([]Process, error) { return procs, nil }
}

func TestTerminatesAllDescendantsNotRoot(t *testing.T) {
	// root 100 → 101, 102; 101 → 103; 103 → 104
	rec := &killRecorder{}
	c := NewWithTable(fixedTable(
		Process{Pid: 1, PPid: 0},
		Process{Pid: 100, PPid: 1},
		Process{Pid: 101, PPid: 100},
		Process{Pid: 102, PPid: 100},
		Process{Pid: 103, PPid: 101},
		Process{Pid: 104, PPid: 103},
		Process{Pid: 200, PPid: 1}, // unrelated
	), rec.kill)

	n, err := c.TerminateDescendants(100)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	sort.Ints(rec.killed)
	assert.Equal(t, []int{101, 102, 103, 104}, rec.killed)
	assert.NotContains(t, rec.killed, 100)
	assert.NotContains(t, rec.killed, 200)
}

func TestRootNeverKilledOnSyntheticTrees(t *testing.T) {
	// Property: for random tree shapes, the root is never in the kill
	// set and every reachable descendant is.
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		const root = 5000
		size := 2 + rng.Intn(40)

		table := []Process{{Pid: root, PPid: 1}}
		pids := []int{root}
		for i := 0; i < size; i++ {
			pid := 5001 + i
			parent := pids[rng.Intn(len(pids))]
			table = append(table, Process{Pid: pid, PPid: parent})
			pids = append(pids, pid)
		}
		// Noise outside the tree.
		table = append(table, Process{Pid: 9999, PPid: 1})

		rec := &killRecorder{}
		c := NewWithTable(fixedTable(table...), rec.kill)

		n, err := c.TerminateDescendants(root)
		require.NoError(t, err)
		assert.Equal(t, size, n, "trial %d", trial)
		assert.NotContains(t, rec.killed, root, "trial %d killed root", trial)
		assert.NotContains(t, rec.killed, 9999, "trial %d killed outsider", trial)
	}
}

func TestCycleInTableDoesNotLoop(t *testing.T) {
	// A pid-reuse race can make the snapshot look cyclic; the visited
	// set must keep the walk finite.
	rec := &killRecorder{}
	c := NewWithTable(fixedTable(
		Process{Pid: 10, PPid: 1},
		Process{Pid: 11, PPid: 10},
		Process{Pid: 12, PPid: 11},
		Process{Pid: 10, PPid: 12},
	), rec.kill)

	n, err := c.TerminateDescendants(10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVanishedDescendantIsSuccess(t *testing.T) {
	rec := &killRecorder{fail: map[int]error{11: unix.ESRCH}}
	c := NewWithTable(fixedTable(
		Process{Pid: 10, PPid: 1},
		Process{Pid: 11, PPid: 10},
		Process{Pid: 12, PPid: 10},
	), rec.kill)

	n, err := c.TerminateDescendants(10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInvalidRootRejected(t *testing.T) {
	c := NewWithTable(fixedTable(), (&killRecorder{}).kill)
	_, err := c.TerminateDescendants(0)
	assert.Error(t, err)
}

func TestParseStatPPid(t *testing.T) {
	cases := []struct {
		stat string
		ppid int
		ok   bool
	}{
		{"123 (bash) S 77 123 123 0", 77, true},
		{"45 (weird name) with parens) R 9 45", 9, true},
		{"garbage", 0, false},
	}
	for _, tc := range cases {
		ppid, err := parseStatPPid(tc.stat)
		if tc.ok {
			require.NoError(t, err)
			assert.Equal(t, tc.ppid, ppid)
		} else {
			assert.Error(t, err)
		}
	}
}

func TestInterruptPolicyEscalatesInsideWindow(t *testing.T) {
	p := NewInterruptPolicy(500 * time.Millisecond)
	base := time.Now()

	assert.Equal(t, ResolutionSoft, p.Observe(base))
	assert.Equal(t, ResolutionTree, p.Observe(base.Add(400*time.Millisecond)))
}

func TestInterruptPolicyStaysSoftOutsideWindow(t *testing.T) {
	p := NewInterruptPolicy(500 * time.Millisecond)
	base := time.Now()

	assert.Equal(t, ResolutionSoft, p.Observe(base))
	assert.Equal(t, ResolutionSoft, p.Observe(base.Add(600*time.Millisecond)))
}

func TestInterruptPolicyResetsAfterEscalation(t *testing.T) {
	p := NewInterruptPolicy(500 * time.Millisecond)
	base := time.Now()

	p.Observe(base)
	assert.Equal(t, ResolutionTree, p.Observe(base.Add(100*time.Millisecond)))
	// The escalation consumed the pending state: next press is soft
	// even though it is within the window of the previous one.
	assert.Equal(t, ResolutionSoft, p.Observe(base.Add(200*time.Millisecond)))
}
