package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// State is the lifecycle state of a session.
type State int

const (
	StateSpawning State = iota
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// ErrSessionDead is returned by Write when the session is not running.
var ErrSessionDead = errors.New("session is not running")

// Config describes the process to run behind the pseudo-terminal.
type Config struct {
	Program string
	Args    []string
	Dir     string
	Env     []string
	Rows    int
	Cols    int
	// Scrollback bounds the bytes buffered before a consumer attaches.
	// Oldest chunks are evicted once the bound is exceeded.
	Scrollback int
}

// Session wraps one process attached to a pseudo-terminal.
//
// The session owns a single reader goroutine that drains the PTY
// master; output is queued until Subscribe attaches the one permitted
// consumer, then replayed in order ahead of live chunks. Writes and
// resizes serialize on one mutex so their relative order is preserved.
type Session struct {
	cmd  *exec.Cmd
	ptmx *os.File

	mu       sync.Mutex // guards state, writes, resizes
	state    State
	rows     int
	cols     int
	exitCode *int

	out    *outQueue
	exited chan struct{}
}

// Start spawns the configured process behind a new pseudo-terminal.
// The returned session is Running; its output is being drained and
// buffered immediately, before any consumer attaches.
func Start(cfg Config) (*Session, error) {
	if cfg.Program == "" {
		return nil, errors.New("pty: empty program")
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 24
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 80
	}
	if cfg.Scrollback <= 0 {
		cfg.Scrollback = 1 << 20
	}

	cmd := exec.Command(cfg.Program, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(cfg.Rows),
		Cols: uint16(cfg.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		ptmx:   ptmx,
		state:  StateRunning,
		rows:   cfg.Rows,
		cols:   cfg.Cols,
		out:    newOutQueue(cfg.Scrollback),
		exited: make(chan struct{}),
	}

	go s.readLoop()
	go s.waitLoop()

	return s, nil
}

// readLoop is the only reader of the PTY master.
func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.out.push(buf[:n])
		}
		if err != nil {
			// EOF or EIO: the slave side is gone. Not an error path
			// distinct from normal exit on any supported platform.
			if err != io.EOF {
				_ = err
			}
			break
		}
	}
	s.out.closeQueue()
}

// waitLoop reaps the process and transitions the session to Exited.
func (s *Session) waitLoop() {
	err := s.cmd.Wait()

	var code *int
	if s.cmd.ProcessState != nil {
		c := s.cmd.ProcessState.ExitCode()
		if c >= 0 {
			code = &c
		}
	} else if err == nil {
		zero := 0
		code = &zero
	}

	s.mu.Lock()
	s.state = StateExited
	s.exitCode = code
	s.mu.Unlock()

	// Unblocks the reader if it has not already hit EOF.
	s.ptmx.Close()

	close(s.exited)
}

// Subscribe attaches the single permitted output consumer. Chunks
// buffered since spawn are replayed first, in order, then live output
// follows. The channel closes after the process exits and the last
// chunk is delivered. Subscribe panics if called twice: the stream is
// not restartable.
func (s *Session) Subscribe() <-chan []byte {
	return s.out.subscribe()
}

// Write delivers input bytes to the process's terminal.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return 0, ErrSessionDead
	}
	return s.ptmx.Write(p)
}

// Resize changes the terminal dimensions. Resizing a session that is
// not running is a no-op, never an error.
func (s *Session) Resize(rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return nil
	}
	if rows == s.rows && cols == s.cols {
		return nil
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	}); err != nil {
		return fmt.Errorf("resize failed: %w", err)
	}
	s.rows = rows
	s.cols = cols
	return nil
}

// Kill terminates the root process. The state transition to Exited
// happens through the wait goroutine, so output drained before the
// kill is still delivered; nothing after it is awaited.
func (s *Session) Kill() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if s.cmd.Process != nil {
		return s.cmd.Process.Kill()
	}
	return nil
}

// Pid returns the root process id, or 0 if unavailable.
func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Size returns the current terminal dimensions.
func (s *Session) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// ExitCode returns the process exit code, nil while running or when
// the code is unavailable (e.g. killed by signal on some platforms).
func (s *Session) ExitCode() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Done returns a channel closed when the session reaches Exited.
func (s *Session) Done() <-chan struct{} {
	return s.exited
}
