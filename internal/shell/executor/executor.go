// Package executor walks a parsed syntax tree: it evaluates
// short-circuit connectives, runs single-stage builtins in-process,
// and wires multi-stage pipelines through OS pipes with one spawned
// process per stage.
package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/termstack/termd/internal/shell/builtins"
	"github.com/termstack/termd/internal/shell/env"
	"github.com/termstack/termd/internal/shell/parser"
)

// Executor runs syntax trees against one shell environment.
type Executor struct {
	env    *env.Environment
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	jobs   *JobTable

	// RequestExit is invoked by the exit builtin.
	RequestExit func(code int)
}

// New creates an executor bound to the shell's standard streams.
func New(e *env.Environment, stdin io.Reader, stdout, stderr io.Writer) *Executor {
	return &Executor{
		env:    e,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		jobs:   NewJobTable(),
	}
}

// Jobs returns the background job table.
func (x *Executor) Jobs() *JobTable { return x.jobs }

// Run executes a parsed line. The exit status of the last pipeline
// that actually ran becomes $? and is returned.
func (x *Executor) Run(list *parser.List) int {
	status := x.env.LastStatus()
	for i, p := range list.Pipelines {
		if i > 0 {
			switch list.Seps[i-1] {
			case parser.ConnAnd:
				if status != 0 {
					continue
				}
			case parser.ConnOr:
				if status == 0 {
					continue
				}
			}
		}
		status = x.runPipeline(p)
		x.env.SetLastStatus(status)
	}
	return status
}

func (x *Executor) runPipeline(p *parser.Pipeline) int {
	// A background marker sends even a builtin name down the external
	// path: like a forked subshell it registers a job and cannot block
	// the prompt or mutate this shell's state.
	if len(p.Commands) == 1 && !p.Background {
		if kind, ok := builtins.Lookup(p.Commands[0].Name); ok {
			return x.runBuiltin(kind, p.Commands[0])
		}
	}
	return x.runExternal(p)
}

// runBuiltin executes a single-stage builtin in-process, honoring its
// redirections without spawning anything.
func (x *Executor) runBuiltin(kind builtins.Kind, cmd *parser.Command) int {
	stdio := &stdio{in: x.stdin, out: x.stdout, errW: x.stderr}
	if err := x.applyRedirs(cmd, stdio); err != nil {
		stdio.closeAll()
		fmt.Fprintln(x.stderr, err)
		return 1
	}
	defer stdio.closeAll()

	ctx := &builtins.Context{
		Env:         x.env,
		Stdin:       stdio.in,
		Stdout:      stdio.out,
		Stderr:      stdio.errW,
		Jobs:        x.jobs,
		RequestExit: x.RequestExit,
	}
	return builtins.Run(kind, x.expandArgs(cmd), ctx)
}

// runExternal spawns one process per stage, stdout of each wired to
// stdin of the next through an OS pipe.
func (x *Executor) runExternal(p *parser.Pipeline) int {
	n := len(p.Commands)
	cmds := make([]*osexec.Cmd, n)
	var stdios []*stdio
	closeAll := func() {
		for _, s := range stdios {
			s.closeAll()
		}
	}

	var prevRead *os.File
	for i, c := range p.Commands {
		s := &stdio{out: x.stdout, errW: x.stderr}
		stdios = append(stdios, s)

		if i == 0 {
			s.in = x.stdin
		} else {
			s.in = prevRead
			s.closers = append(s.closers, prevRead)
		}

		if i < n-1 {
			r, w, err := os.Pipe()
			if err != nil {
				closeAll()
				fmt.Fprintf(x.stderr, "pipe failed: %v\n", err)
				return 1
			}
			s.out = w
			s.closers = append(s.closers, w)
			prevRead = r
		}

		// File redirections override pipe wiring for the stage.
		if err := x.applyRedirs(c, s); err != nil {
			closeAll()
			if prevRead != nil && i == n-1 {
				prevRead.Close()
			}
			fmt.Fprintln(x.stderr, err)
			return 1
		}

		cmd := newCommand(c.Name, x.expandArgs(c))
		cmd.Dir = x.env.Cwd()
		cmd.Env = x.env.Environ()
		cmd.Stdin = s.in
		cmd.Stdout = s.out
		cmd.Stderr = s.errW
		cmds[i] = cmd
	}

	started := make([]*osexec.Cmd, 0, n)
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(x.stderr, "%s: %v\n", p.Commands[i].Name, err)
			// Abandon unstarted stages; reap the started ones.
			closeAll()
			for _, c := range started {
				c.Wait()
			}
			return 127
		}
		started = append(started, cmd)
	}

	// Parent copies of the pipe ends must close or readers never see
	// EOF.
	closeAll()

	if p.Background {
		x.jobs.Add(p.String(), started)
		return 0
	}

	status := 0
	for i, cmd := range started {
		err := cmd.Wait()
		if i == len(started)-1 {
			status = exitStatus(err)
		}
	}
	return status
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		// Killed by signal.
		return 128
	}
	return 1
}

// expandArgs applies glob expansion to unquoted arguments. A pattern
// with no matches stays literal.
func (x *Executor) expandArgs(c *parser.Command) []string {
	out := make([]string, 0, len(c.Args))
	for i, a := range c.Args {
		if c.QuotedArgs[i+1] || !strings.ContainsAny(a, "*?[") {
			out = append(out, a)
			continue
		}
		out = append(out, x.glob(a)...)
	}
	return out
}

func (x *Executor) glob(pattern string) []string {
	if filepath.IsAbs(pattern) {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil || len(matches) == 0 {
			return []string{pattern}
		}
		sort.Strings(matches)
		return matches
	}
	matches, err := doublestar.Glob(os.DirFS(x.env.Cwd()), pattern)
	if err != nil || len(matches) == 0 {
		return []string{pattern}
	}
	sort.Strings(matches)
	return matches
}

// stdio carries the resolved standard streams of one pipeline stage
// plus the descriptors the parent must close after Start.
type stdio struct {
	in      io.Reader
	out     io.Writer
	errW    io.Writer
	closers []io.Closer
}

func (s *stdio) closeAll() {
	for _, c := range s.closers {
		c.Close()
	}
	s.closers = nil
}

// applyRedirs opens redirection targets and rebinds the stage's
// streams. A target that cannot be opened fails the whole pipeline;
// the shell itself continues.
func (x *Executor) applyRedirs(c *parser.Command, s *stdio) error {
	for _, r := range c.Redirs {
		path := r.Target
		if !filepath.IsAbs(path) {
			path = filepath.Join(x.env.Cwd(), path)
		}
		switch r.Op {
		case parser.RedirIn:
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("cannot open %s: %w", r.Target, err)
			}
			s.in = f
			s.closers = append(s.closers, f)
		case parser.RedirOut, parser.RedirAppend, parser.RedirErr, parser.RedirBoth:
			flags := os.O_WRONLY | os.O_CREATE
			if r.Op == parser.RedirAppend {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if err != nil {
				return fmt.Errorf("cannot open %s: %w", r.Target, err)
			}
			s.closers = append(s.closers, f)
			switch r.Op {
			case parser.RedirErr:
				s.errW = f
			case parser.RedirBoth:
				s.out = f
				s.errW = f
			default:
				s.out = f
			}
		}
	}
	return nil
}
