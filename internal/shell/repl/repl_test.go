package repl

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termstack/termd/internal/shell/env"
)

type testShell struct {
	repl   *REPL
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestShell(t *testing.T, stdin *os.File) *testShell {
	t.Helper()
	if stdin == nil {
		f, err := os.Open(os.DevNull)
		require.NoError(t, err)
		t.Cleanup(func() { f.Close() })
		stdin = f
	}

	var stdout, stderr bytes.Buffer
	environment, err := env.New(t.TempDir(), 50)
	require.NoError(t, err)
	r := New(Options{
		Env:    environment,
		Stdin:  stdin,
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return &testShell{repl: r, stdout: &stdout, stderr: &stderr}
}

func TestRunCommandEcho(t *testing.T) {
	s := newTestShell(t, nil)
	status := s.repl.RunCommand("echo one-shot")
	assert.Equal(t, 0, status)
	assert.Contains(t, s.stdout.String(), "one-shot\n")
}

func TestRunCommandPropagatesStatus(t *testing.T) {
	s := newTestShell(t, nil)
	status := s.repl.RunCommand(`sh -c "exit 3"`)
	assert.Equal(t, 3, status)
}

func TestRunCommandExitBuiltin(t *testing.T) {
	s := newTestShell(t, nil)
	status := s.repl.RunCommand("exit 7")
	assert.Equal(t, 7, status)
}

func TestParseErrorReportedAndShellSurvives(t *testing.T) {
	s := newTestShell(t, nil)

	status := s.repl.RunCommand("echo a | | echo b")
	assert.Equal(t, 2, status)
	assert.Contains(t, s.stderr.String(), "termsh:")

	// The same shell still runs later commands.
	s.stderr.Reset()
	assert.Equal(t, 0, s.repl.RunCommand("echo recovered"))
	assert.Contains(t, s.stdout.String(), "recovered")
}

func TestChangingDirectoryReportsCwd(t *testing.T) {
	s := newTestShell(t, nil)
	target := t.TempDir()

	require.Equal(t, 0, s.repl.RunCommand("cd "+target))
	out := s.stdout.String()
	assert.Contains(t, out, "\x1b]7;file://")
	assert.Contains(t, out, target)
}

func TestUnchangedDirectoryStaysQuiet(t *testing.T) {
	s := newTestShell(t, nil)
	s.repl.RunCommand("echo stay")
	assert.NotContains(t, s.stdout.String(), "\x1b]7;")
}

func TestBufferedRunExecutesLines(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	s := newTestShell(t, r)

	_, err = w.WriteString("echo first\necho second\nexit 5\n")
	require.NoError(t, err)
	w.Close()

	status := s.repl.Run()
	assert.Equal(t, 5, status)
	assert.Contains(t, s.stdout.String(), "first")
	assert.Contains(t, s.stdout.String(), "second")
}

func TestBufferedRunStopsAtExit(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	s := newTestShell(t, r)

	_, err = w.WriteString("exit 0\necho never\n")
	require.NoError(t, err)
	w.Close()

	status := s.repl.Run()
	assert.Equal(t, 0, status)
	assert.NotContains(t, s.stdout.String(), "never")
}

func TestBufferedRunEOFReturnsLastStatus(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	s := newTestShell(t, r)

	_, err = w.WriteString(`sh -c "exit 9"` + "\n")
	require.NoError(t, err)
	w.Close()

	assert.Equal(t, 9, s.repl.Run())
}
