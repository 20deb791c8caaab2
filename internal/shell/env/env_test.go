package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *Environment {
	t.Helper()
	e, err := New(t.TempDir(), 100)
	require.NoError(t, err)
	return e
}

func TestChdir(t *testing.T) {
	e := newTestEnv(t)
	sub := filepath.Join(e.Cwd(), "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	require.NoError(t, e.Chdir("sub"))
	assert.Equal(t, sub, e.Cwd())

	pwd, _ := e.Var("PWD")
	assert.Equal(t, sub, pwd)
}

func TestChdirDash(t *testing.T) {
	e := newTestEnv(t)
	first := e.Cwd()
	sub := filepath.Join(first, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	require.NoError(t, e.Chdir("sub"))
	require.NoError(t, e.Chdir("-"))
	assert.Equal(t, first, e.Cwd())
}

func TestChdirMissingTarget(t *testing.T) {
	e := newTestEnv(t)
	assert.Error(t, e.Chdir("does-not-exist"))
}

func TestExportedVarsOnly(t *testing.T) {
	e := newTestEnv(t)
	e.Set("LOCAL", "1")
	e.Export("SHARED", "2", true)

	environ := e.Environ()
	assert.Contains(t, environ, "SHARED=2")
	assert.NotContains(t, environ, "LOCAL=1")
	assert.Contains(t, e.Vars(), "LOCAL=1")
}

func TestUnset(t *testing.T) {
	e := newTestEnv(t)
	e.Export("GONE", "x", true)
	e.Unset("GONE")

	_, ok := e.Var("GONE")
	assert.False(t, ok)
	assert.NotContains(t, e.Environ(), "GONE=x")
}

func TestAliases(t *testing.T) {
	e := newTestEnv(t)
	e.SetAlias("ll", "ls -l")

	v, ok := e.Alias("ll")
	require.True(t, ok)
	assert.Equal(t, "ls -l", v)

	assert.True(t, e.UnsetAlias("ll"))
	assert.False(t, e.UnsetAlias("ll"))
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for _, cmd := range []string{"a", "b", "c", "d", "e"} {
		h.Add(cmd)
	}
	assert.Equal(t, []string{"c", "d", "e"}, h.Entries())
}

func TestHistorySkipsBlankAndDuplicate(t *testing.T) {
	h := NewHistory(10)
	h.Add("ls")
	h.Add("  ")
	h.Add("ls")
	h.Add("pwd")
	assert.Equal(t, []string{"ls", "pwd"}, h.Entries())
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	h := NewHistory(10)
	h.Add("echo one")
	h.Add("echo two")
	require.NoError(t, h.Save(path))

	loaded := NewHistory(10)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, h.Entries(), loaded.Entries())
}

func TestHistoryLoadAppliesCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	big := NewHistory(100)
	for _, cmd := range []string{"1", "2", "3", "4", "5"} {
		big.Add(cmd)
	}
	require.NoError(t, big.Save(path))

	small := NewHistory(2)
	require.NoError(t, small.Load(path))
	assert.Equal(t, []string{"4", "5"}, small.Entries())
}

func TestHistoryLoadMissingFile(t *testing.T) {
	h := NewHistory(10)
	assert.NoError(t, h.Load(filepath.Join(t.TempDir(), "nope")))
	assert.Zero(t, h.Len())
}

func TestProfileApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termsh.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
history_limit = 50
two_line_prompt = true

[aliases]
ll = "ls -l"

[exports]
EDITOR = "vim"
`), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, p.HistoryLimit)
	assert.True(t, p.TwoLinePrompt)

	e := newTestEnv(t)
	p.Apply(e)

	v, ok := e.Alias("ll")
	require.True(t, ok)
	assert.Equal(t, "ls -l", v)
	assert.Contains(t, e.Environ(), "EDITOR=vim")
}

func TestProfileMissingFile(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, p.Aliases)
}

func TestProfileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid"), 0o644))

	_, err := LoadProfile(path)
	assert.Error(t, err)
}
