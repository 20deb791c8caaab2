// Package session owns the table of live pseudo-terminal sessions and
// the external command surface over them: spawn, write, resize,
// interrupt, descendant kill, session kill, and shell discovery.
// Output and exit notifications are pushed to a single ordered event
// stream per manager.
package session

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/termstack/termd/internal/infrastructure/config"
	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/infrastructure/monitoring"
	"github.com/termstack/termd/internal/proctree"
	"github.com/termstack/termd/internal/pty"
	"github.com/termstack/termd/internal/shared/id"
)

// ErrNotFound is returned for operations against an unknown session id.
var ErrNotFound = errors.New("session not found")

// respawnWindow is how long after a descendant kill a shell exit still
// counts as collateral damage and triggers a respawn.
const respawnWindow = 5 * time.Second

// EventType classifies a session event.
type EventType int

const (
	// EventOutput carries one chunk of session output.
	EventOutput EventType = iota
	// EventExited marks a session leaving Running with no respawn.
	EventExited
	// EventRespawned marks a session running a fresh shell process
	// under the same id; any "exited" display state must be cleared.
	EventRespawned
	// EventRespawnFailed marks a session whose shell could not be
	// restarted after a descendant kill; it stays exited.
	EventRespawnFailed
)

// Event is one entry on the manager's push stream. Events for a given
// session are ordered; output is never reordered or dropped.
type Event struct {
	Type     EventType
	Session  id.SessionID
	Data     []byte
	ExitCode *int
	Err      error
}

// SpawnParams describes a spawn request.
type SpawnParams struct {
	Kind ShellKind
	// Dir is the initial working directory; empty means the daemon's.
	Dir  string
	Rows int
	Cols int
	// Command, when set, is written to the shell immediately after
	// spawn, newline-terminated.
	Command string
}

// Info is a point-in-time snapshot of one session for listings.
type Info struct {
	ID       id.SessionID `json:"id"`
	Kind     ShellKind    `json:"kind"`
	State    string       `json:"state"`
	Pid      int          `json:"pid"`
	Rows     int          `json:"rows"`
	Cols     int          `json:"cols"`
	Cwd      string       `json:"cwd"`
	ExitCode *int         `json:"exit_code,omitempty"`
}

// record is the manager-private state of one session. The embedded
// mutex guards the swap-able parts (live process, cwd, respawn arming)
// so one session's I/O never blocks another's.
type record struct {
	id   id.SessionID
	kind ShellKind

	mu   sync.Mutex
	sess *pty.Session
	cwd  string
	// respawnArmed is set by a descendant kill: if the shell itself
	// exits as a consequence, a fresh process is started under the
	// same session id. armedAt bounds "as a consequence": an exit
	// long after the kill is a deliberate exit, not collateral.
	respawnArmed bool
	armedAt      time.Time
	// closed marks an explicit kill; no respawn ever follows.
	closed bool

	policy *proctree.InterruptPolicy
}

// Manager owns all live sessions. Table mutations and iteration are
// mutually exclusive; per-session operations take only that session's
// lock.
type Manager struct {
	cfg     config.TerminalConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tree    *proctree.Controller
	ids     *id.Generator

	mu    sync.Mutex
	table map[id.SessionID]*record

	events chan Event

	now func() time.Time
}

// NewManager creates an empty session manager.
func NewManager(cfg config.TerminalConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger.Named("session"),
		metrics: metrics,
		tree:    proctree.New(logger),
		ids:     id.Default(),
		table:   make(map[id.SessionID]*record),
		events:  make(chan Event, 1024),
		now:     time.Now,
	}
}

// Events returns the manager's push stream. There is one consumer; it
// must keep draining or session readers eventually stall.
func (m *Manager) Events() <-chan Event { return m.events }

// Spawn creates a session and returns its id. The id is handed back
// before any output is consumed from the stream, and everything the
// process writes before the consumer attaches is buffered and
// replayed in order.
func (m *Manager) Spawn(p SpawnParams) (id.SessionID, error) {
	program, err := resolveShell(p.Kind)
	if err != nil {
		return "", fmt.Errorf("spawn failed: %w", err)
	}

	dir := p.Dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	rows, cols := p.Rows, p.Cols
	if rows <= 0 {
		rows = m.cfg.DefaultRows
	}
	if cols <= 0 {
		cols = m.cfg.DefaultCols
	}

	sess, err := pty.Start(pty.Config{
		Program:    program,
		Dir:        dir,
		Rows:       rows,
		Cols:       cols,
		Scrollback: m.cfg.ScrollbackSize,
	})
	if err != nil {
		return "", fmt.Errorf("spawn failed: %w", err)
	}

	r := &record{
		id:     id.SessionID(m.ids.GenerateWithPrefix(id.SessionPrefix)),
		kind:   p.Kind,
		sess:   sess,
		cwd:    dir,
		policy: proctree.NewInterruptPolicy(m.cfg.InterruptWindow),
	}

	m.mu.Lock()
	m.table[r.id] = r
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSpawn(string(p.Kind))
	}
	m.logger.Info("session spawned",
		zap.String("session_id", r.id.String()),
		zap.String("shell", string(p.Kind)),
		zap.Int("pid", sess.Pid()),
	)

	go m.dispatch(r, sess)

	if p.Command != "" {
		if _, err := sess.Write([]byte(p.Command + "\n")); err != nil {
			m.logger.Warn("initial command write failed",
				zap.String("session_id", r.id.String()), zap.Error(err))
		}
	}
	return r.id, nil
}

// dispatch is the per-session pump: the sole consumer of the PTY
// reader's stream. It forwards output to the event sink, tracks cwd
// reports, and on exit either respawns or announces the death.
func (m *Manager) dispatch(r *record, sess *pty.Session) {
	var scanner cwdScanner
	for chunk := range sess.Subscribe() {
		if m.metrics != nil {
			m.metrics.BytesRead.Add(float64(len(chunk)))
		}
		if dir, ok := scanner.Scan(chunk); ok {
			r.mu.Lock()
			r.cwd = dir
			r.mu.Unlock()
		}
		m.events <- Event{Type: EventOutput, Session: r.id, Data: chunk}
	}
	m.handleExit(r, sess)
}

func (m *Manager) handleExit(r *record, sess *pty.Session) {
	<-sess.Done()
	code := sess.ExitCode()

	r.mu.Lock()
	stale := r.sess != sess
	respawn := r.respawnArmed && !r.closed &&
		m.now().Sub(r.armedAt) <= respawnWindow
	r.respawnArmed = false
	cwd := r.cwd
	r.mu.Unlock()

	if stale {
		return
	}

	m.logger.Info("session process exited",
		zap.String("session_id", r.id.String()),
		zap.Bool("respawn", respawn),
	)

	if !respawn {
		if m.metrics != nil {
			m.metrics.RecordExit()
		}
		m.events <- Event{Type: EventExited, Session: r.id, ExitCode: code}
		return
	}

	if err := m.respawn(r, cwd); err != nil {
		m.logger.Error("respawn failed",
			zap.String("session_id", r.id.String()), zap.Error(err))
		if m.metrics != nil {
			m.metrics.RecordExit()
		}
		m.events <- Event{Type: EventRespawnFailed, Session: r.id, Err: err}
		m.events <- Event{Type: EventExited, Session: r.id, ExitCode: code}
	}
}

// respawn starts a fresh shell process under the same session id,
// keeping the last observed working directory.
func (m *Manager) respawn(r *record, cwd string) error {
	program, err := resolveShell(r.kind)
	if err != nil {
		return err
	}

	rows, cols := m.cfg.DefaultRows, m.cfg.DefaultCols
	r.mu.Lock()
	if r.sess != nil {
		rows, cols = r.sess.Size()
	}
	r.mu.Unlock()

	sess, err := pty.Start(pty.Config{
		Program:    program,
		Dir:        cwd,
		Rows:       rows,
		Cols:       cols,
		Scrollback: m.cfg.ScrollbackSize,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sess = sess
	r.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionsRespawns.Inc()
	}
	m.logger.Info("session respawned",
		zap.String("session_id", r.id.String()),
		zap.Int("pid", sess.Pid()),
	)

	m.events <- Event{Type: EventRespawned, Session: r.id}
	go m.dispatch(r, sess)
	return nil
}

func (m *Manager) lookup(sid id.SessionID) (*record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.table[sid]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Write delivers bytes to the session's input. Fails when the session
// is not Running.
func (m *Manager) Write(sid id.SessionID, data []byte) error {
	r, err := m.lookup(sid)
	if err != nil {
		return err
	}
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()

	if _, err := sess.Write(data); err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.BytesWritten.Add(float64(len(data)))
	}
	return nil
}

// Resize applies a new terminal size. A resize against a dead session
// is silently ignored.
func (m *Manager) Resize(sid id.SessionID, rows, cols int) error {
	r, err := m.lookup(sid)
	if err != nil {
		return err
	}
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()
	return sess.Resize(rows, cols)
}

// Interrupt applies the session's debounce policy: a lone interrupt
// writes the soft-interrupt byte into the PTY stream; a second one
// inside the window escalates to terminating the shell's descendants.
func (m *Manager) Interrupt(sid id.SessionID) error {
	r, err := m.lookup(sid)
	if err != nil {
		return err
	}

	r.mu.Lock()
	resolution := r.policy.Observe(m.now())
	sess := r.sess
	r.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordInterrupt(resolution.String())
	}

	switch resolution {
	case proctree.ResolutionSoft:
		_, err := sess.Write([]byte{0x03})
		return err
	default:
		return m.killDescendants(r, sess)
	}
}

// KillDescendants terminates everything below the session's root shell
// process, leaving the shell itself untouched. If the shell exits in
// response it is respawned under the same session id.
func (m *Manager) KillDescendants(sid id.SessionID) error {
	r, err := m.lookup(sid)
	if err != nil {
		return err
	}
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()
	return m.killDescendants(r, sess)
}

func (m *Manager) killDescendants(r *record, sess *pty.Session) error {
	r.mu.Lock()
	r.respawnArmed = true
	r.armedAt = m.now()
	r.mu.Unlock()

	killed, err := m.tree.TerminateDescendants(sess.Pid())
	if err != nil {
		return err
	}
	m.logger.Info("descendants terminated",
		zap.String("session_id", r.id.String()),
		zap.Int("count", killed),
	)
	return nil
}

// KillSession terminates the root process. The session transitions to
// Exited and is never respawned; the record stays in the table until
// Remove so late status reads still resolve.
func (m *Manager) KillSession(sid id.SessionID) error {
	r, err := m.lookup(sid)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.closed = true
	r.respawnArmed = false
	sess := r.sess
	r.mu.Unlock()
	return sess.Kill()
}

// Remove kills the session if needed and drops it from the table.
func (m *Manager) Remove(sid id.SessionID) error {
	r, err := m.lookup(sid)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.closed = true
	r.respawnArmed = false
	sess := r.sess
	r.mu.Unlock()
	sess.Kill()

	m.mu.Lock()
	delete(m.table, sid)
	m.mu.Unlock()
	return nil
}

// Get returns a snapshot of one session.
func (m *Manager) Get(sid id.SessionID) (Info, error) {
	r, err := m.lookup(sid)
	if err != nil {
		return Info{}, err
	}
	return m.snapshot(r), nil
}

// List snapshots every session in the table.
func (m *Manager) List() []Info {
	m.mu.Lock()
	records := make([]*record, 0, len(m.table))
	for _, r := range m.table {
		records = append(records, r)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(records))
	for _, r := range records {
		out = append(out, m.snapshot(r))
	}
	return out
}

func (m *Manager) snapshot(r *record) Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, cols := r.sess.Size()
	return Info{
		ID:       r.id,
		Kind:     r.kind,
		State:    r.sess.State().String(),
		Pid:      r.sess.Pid(),
		Rows:     rows,
		Cols:     cols,
		Cwd:      r.cwd,
		ExitCode: r.sess.ExitCode(),
	}
}

// CloseAll kills every session. Used on daemon shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	records := make([]*record, 0, len(m.table))
	for _, r := range m.table {
		records = append(records, r)
	}
	m.mu.Unlock()

	for _, r := range records {
		r.mu.Lock()
		r.closed = true
		r.respawnArmed = false
		sess := r.sess
		r.mu.Unlock()
		sess.Kill()
	}
}
