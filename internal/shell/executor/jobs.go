package executor

import (
	"fmt"
	osexec "os/exec"
	"sort"
	"sync"

	"github.com/termstack/termd/internal/shared/id"
)

// JobStatus is the lifecycle state of a background pipeline.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// Job is one background pipeline: its processes, the command line for
// display, and a status maintained by an async reaper.
type Job struct {
	ID      id.JobID
	Num     int
	Pids    []int
	Command string
	Status  JobStatus
}

// JobTable tracks background jobs until they are reported done.
type JobTable struct {
	mu   sync.Mutex
	jobs map[int]*Job
	next int
}

// NewJobTable creates an empty job table.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[int]*Job), next: 1}
}

// Add registers the started commands as one background job and reaps
// them asynchronously.
func (t *JobTable) Add(cmdline string, cmds []*osexec.Cmd) *Job {
	t.mu.Lock()
	job := &Job{
		ID:      id.NewJobID(),
		Num:     t.next,
		Command: cmdline,
		Status:  JobRunning,
	}
	t.next++
	for _, c := range cmds {
		if c.Process != nil {
			job.Pids = append(job.Pids, c.Process.Pid)
		}
	}
	t.jobs[job.Num] = job
	t.mu.Unlock()

	go t.reap(job, cmds)
	return job
}

func (t *JobTable) reap(job *Job, cmds []*osexec.Cmd) {
	for _, c := range cmds {
		c.Wait()
	}
	t.mu.Lock()
	job.Status = JobDone
	t.mu.Unlock()
}

// JobLines renders the table for the jobs builtin, newest last. Jobs
// already reported as done are dropped after rendering.
func (t *JobTable) JobLines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	nums := make([]int, 0, len(t.jobs))
	for n := range t.jobs {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	lines := make([]string, 0, len(nums))
	for _, n := range nums {
		j := t.jobs[n]
		lines = append(lines, fmt.Sprintf("[%d] %-8s %s", j.Num, j.Status, j.Command))
		if j.Status == JobDone {
			delete(t.jobs, n)
		}
	}
	return lines
}

// Running reports the number of jobs still running.
func (t *JobTable) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, j := range t.jobs {
		if j.Status == JobRunning {
			count++
		}
	}
	return count
}
