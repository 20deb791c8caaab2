package session

import (
	"bytes"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termstack/termd/internal/infrastructure/config"
	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/shared/id"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	m := NewManager(config.Default().Terminal, logging.NewNop(), nil)
	t.Cleanup(m.CloseAll)
	return m
}

// collectUntil drains the event stream until pred is satisfied or the
// deadline passes.
func collectUntil(t *testing.T, m *Manager, timeout time.Duration, pred func(Event) bool) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-m.Events():
			events = append(events, ev)
			if pred(ev) {
				return events
			}
		case <-deadline:
			t.Fatalf("condition not met after %v; saw %d events", timeout, len(events))
		}
	}
}

func outputOf(events []Event, sid id.SessionID) []byte {
	var buf bytes.Buffer
	for _, ev := range events {
		if ev.Type == EventOutput && ev.Session == sid {
			buf.Write(ev.Data)
		}
	}
	return buf.Bytes()
}

func TestSpawnStreamsOutput(t *testing.T) {
	m := newTestManager(t)

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)
	assert.True(t, len(sid) > 5 && sid[:5] == "sess_")

	require.NoError(t, m.Write(sid, []byte("echo spawned-ok\n")))

	events := collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventOutput && ev.Session == sid &&
			bytes.Contains(ev.Data, []byte("spawned-ok"))
	})
	assert.Contains(t, string(outputOf(events, sid)), "spawned-ok")
}

func TestSpawnWithInitialCommand(t *testing.T) {
	m := newTestManager(t)

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh, Command: "echo from-startup"})
	require.NoError(t, err)

	collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventOutput && ev.Session == sid &&
			bytes.Contains(ev.Data, []byte("from-startup"))
	})
}

func TestSpawnWithInitialDir(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh, Dir: dir, Command: "pwd"})
	require.NoError(t, err)

	collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventOutput && ev.Session == sid &&
			bytes.Contains(ev.Data, []byte(dir))
	})

	info, err := m.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, dir, info.Cwd)
}

func TestSpawnUnknownKindFails(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Spawn(SpawnParams{Kind: ShellKind("csh-nonexistent")})
	require.Error(t, err)
	assert.Empty(t, m.List())
}

func TestUnknownSessionRejected(t *testing.T) {
	m := newTestManager(t)

	assert.ErrorIs(t, m.Write("sess_nope", []byte("x")), ErrNotFound)
	assert.ErrorIs(t, m.Resize("sess_nope", 24, 80), ErrNotFound)
	assert.ErrorIs(t, m.Interrupt("sess_nope"), ErrNotFound)
	assert.ErrorIs(t, m.KillSession("sess_nope"), ErrNotFound)
	_, err := m.Get("sess_nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKillSessionEmitsExitedWithoutRespawn(t *testing.T) {
	m := newTestManager(t)

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)
	require.NoError(t, m.KillSession(sid))

	events := collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventExited && ev.Session == sid
	})
	for _, ev := range events {
		assert.NotEqual(t, EventRespawned, ev.Type)
	}

	info, err := m.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, "exited", info.State)
}

func TestWriteAfterKillFails(t *testing.T) {
	m := newTestManager(t)

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)
	require.NoError(t, m.KillSession(sid))

	collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventExited && ev.Session == sid
	})

	assert.Error(t, m.Write(sid, []byte("echo nope\n")))
	assert.NoError(t, m.Resize(sid, 30, 100), "resize against a dead session is a no-op")
}

func TestDescendantKillTriggersRespawn(t *testing.T) {
	m := newTestManager(t)

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)

	// Arm the respawn path, then make the shell exit as if the
	// descendant kill took it down too.
	require.NoError(t, m.KillDescendants(sid))
	require.NoError(t, m.Write(sid, []byte("exit\n")))

	collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventRespawned && ev.Session == sid
	})

	info, err := m.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, "running", info.State)

	// The fresh process accepts input under the same session id.
	require.NoError(t, m.Write(sid, []byte("echo back-alive\n")))
	collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventOutput && ev.Session == sid &&
			bytes.Contains(ev.Data, []byte("back-alive"))
	})
}

func TestLateExitAfterSurvivedKillDoesNotRespawn(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(2000, 0)
	m.now = func() time.Time { return now }

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)

	// The shell survives the descendant kill; a deliberate exit well
	// past the respawn window is an ordinary death.
	require.NoError(t, m.KillDescendants(sid))
	now = now.Add(time.Minute)

	require.NoError(t, m.Write(sid, []byte("exit 4\n")))
	events := collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventExited && ev.Session == sid
	})
	for _, ev := range events {
		assert.NotEqual(t, EventRespawned, ev.Type)
	}
	last := events[len(events)-1]
	require.NotNil(t, last.ExitCode)
	assert.Equal(t, 4, *last.ExitCode)

	info, err := m.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, "exited", info.State)
}

func TestPlainExitDoesNotRespawn(t *testing.T) {
	m := newTestManager(t)

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)
	require.NoError(t, m.Write(sid, []byte("exit 4\n")))

	events := collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventExited && ev.Session == sid
	})
	last := events[len(events)-1]
	require.NotNil(t, last.ExitCode)
	assert.Equal(t, 4, *last.ExitCode)
}

func TestInterruptDebounce(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	sid, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)

	// Lone interrupts outside the window stay soft: the shell keeps
	// running and never re-arms respawn.
	require.NoError(t, m.Interrupt(sid))
	now = now.Add(600 * time.Millisecond)
	require.NoError(t, m.Interrupt(sid))

	info, err := m.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, "running", info.State)

	// A second interrupt inside the window escalates to a descendant
	// kill, which arms respawn. The shell itself survives.
	now = now.Add(time.Second)
	require.NoError(t, m.Interrupt(sid))
	now = now.Add(100 * time.Millisecond)
	require.NoError(t, m.Interrupt(sid))

	info, err = m.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, "running", info.State, "escalation must never kill the root shell")

	require.NoError(t, m.Write(sid, []byte("exit\n")))
	collectUntil(t, m, 5*time.Second, func(ev Event) bool {
		return ev.Type == EventRespawned && ev.Session == sid
	})
}

func TestListAndRemove(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)
	b, err := m.Spawn(SpawnParams{Kind: ShellSh})
	require.NoError(t, err)

	infos := m.List()
	require.Len(t, infos, 2)

	require.NoError(t, m.Remove(a))
	infos = m.List()
	require.Len(t, infos, 1)
	assert.Equal(t, b, infos[0].ID)

	assert.ErrorIs(t, m.Remove(a), ErrNotFound)
}

func TestListShellsReportsAvailability(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	shells := ListShells()
	require.Len(t, shells, len(Kinds()))

	byKind := make(map[ShellKind]ShellInfo, len(shells))
	for _, s := range shells {
		byKind[s.Kind] = s
	}
	require.Contains(t, byKind, ShellSh)
	assert.True(t, byKind[ShellSh].Available)
	assert.NotEmpty(t, byKind[ShellSh].Path)
}
