package readline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceHistory []string

func (s sliceHistory) Len() int        { return len(s) }
func (s sliceHistory) At(i int) string { return s[i] }

func typeString(e *Editor, s string) {
	for _, r := range s {
		e.Insert(r)
	}
}

func TestInsertAndCursorMotion(t *testing.T) {
	e := New(nil, nil)
	typeString(e, "hello")
	assert.Equal(t, "hello", e.Line())
	assert.Equal(t, 5, e.Cursor())

	e.MoveLeft()
	e.MoveLeft()
	e.Insert('X')
	assert.Equal(t, "helXlo", e.Line())

	e.MoveHome()
	e.Insert('>')
	assert.Equal(t, ">helXlo", e.Line())

	e.MoveEnd()
	e.Backspace()
	assert.Equal(t, ">helXl", e.Line())
}

func TestDeleteUnderCursor(t *testing.T) {
	e := New(nil, nil)
	typeString(e, "abc")
	e.MoveHome()
	e.Delete()
	assert.Equal(t, "bc", e.Line())
	assert.Equal(t, 0, e.Cursor())
}

func TestKillOperations(t *testing.T) {
	e := New(nil, nil)
	typeString(e, "keep-this-tail")
	e.MoveHome()
	for i := 0; i < 4; i++ {
		e.MoveRight()
	}
	e.KillToEnd()
	assert.Equal(t, "keep", e.Line())

	e.KillLine()
	assert.Equal(t, "", e.Line())
}

func TestHistoryRecall(t *testing.T) {
	e := New(sliceHistory{"first", "second", "third"}, nil)

	e.HistoryUp()
	assert.Equal(t, "third", e.Line())
	e.HistoryUp()
	assert.Equal(t, "second", e.Line())
	e.HistoryDown()
	assert.Equal(t, "third", e.Line())
}

func TestHistoryStashesInProgressLine(t *testing.T) {
	e := New(sliceHistory{"older", "newer"}, nil)
	typeString(e, "draft")

	e.HistoryUp()
	assert.Equal(t, "newer", e.Line())
	e.HistoryUp()
	assert.Equal(t, "older", e.Line())
	e.HistoryDown()
	e.HistoryDown()
	assert.Equal(t, "draft", e.Line())
}

func TestHistoryUpUpDownDownRestoresEmptyLine(t *testing.T) {
	e := New(sliceHistory{"one", "two"}, nil)

	e.HistoryUp()
	e.HistoryUp()
	e.HistoryDown()
	e.HistoryDown()
	assert.Equal(t, "", e.Line())
	assert.Equal(t, 0, e.Cursor())
}

func TestHistoryUpAtOldestStays(t *testing.T) {
	e := New(sliceHistory{"only"}, nil)
	e.HistoryUp()
	e.HistoryUp()
	e.HistoryUp()
	assert.Equal(t, "only", e.Line())
}

func newTestCompleter(t *testing.T) (*Completer, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notable.md"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nodes"), 0o755))

	return &Completer{
		Builtins: func() []string { return []string{"cd", "cat", "clear"} },
		Aliases:  func() []string { return []string{"cfg"} },
		Cwd:      func() string { return dir },
	}, dir
}

func TestCompleteLongestCommonPrefix(t *testing.T) {
	c, _ := newTestCompleter(t)
	e := New(nil, c)
	typeString(e, "not")

	// The common prefix of notes.txt and notable.md is already typed.
	res := e.Complete()
	assert.Empty(t, res.Inserted)
	assert.Nil(t, res.Candidates)

	// Second press with no progress lists candidates.
	res = e.Complete()
	assert.ElementsMatch(t, []string{"notes.txt", "notable.md"}, res.Candidates)
}

func TestCompleteSingleCandidateInsertsRemainder(t *testing.T) {
	c, _ := newTestCompleter(t)
	e := New(nil, c)
	typeString(e, "note")

	res := e.Complete()
	assert.Equal(t, "s.txt", res.Inserted)
	assert.Equal(t, "notes.txt", e.Line())
}

func TestCompleteCommandPositionIncludesBuiltinsAndAliases(t *testing.T) {
	c, _ := newTestCompleter(t)
	e := New(nil, c)
	typeString(e, "c")

	e.Complete()
	res := e.Complete()
	assert.Contains(t, res.Candidates, "cd")
	assert.Contains(t, res.Candidates, "cat")
	assert.Contains(t, res.Candidates, "cfg")
}

func TestCompleteArgumentPositionIsFilesOnly(t *testing.T) {
	c, _ := newTestCompleter(t)
	e := New(nil, c)
	typeString(e, "cat c")

	e.Complete()
	res := e.Complete()
	assert.NotContains(t, res.Candidates, "cd")
}

func TestCompleteDirectoryGainsSlash(t *testing.T) {
	c, _ := newTestCompleter(t)
	e := New(nil, c)
	typeString(e, "cat node")

	res := e.Complete()
	assert.Equal(t, "s/", res.Inserted)
	assert.Equal(t, "cat nodes/", e.Line())
}

func TestCandidatesLazyAndRestartable(t *testing.T) {
	calls := 0
	seq := &Candidates{sources: []func() []string{
		func() []string { calls++; return []string{"b", "a"} },
	}}
	assert.Equal(t, 0, calls, "sources must not run before the first Next")

	first, ok := seq.Next()
	require.True(t, ok)
	assert.Equal(t, "a", first)
	assert.Equal(t, 1, calls)

	seq.Reset()
	again, ok := seq.Next()
	require.True(t, ok)
	assert.Equal(t, "a", again)
	assert.Equal(t, 1, calls, "reset must not recompute")
}

func TestRedrawRepaintsOnlyLastPromptLine(t *testing.T) {
	e := New(nil, nil)
	typeString(e, "ls -l")

	p := &Prompt{Lines: []string{"user@host", "~/work $ "}}
	var buf bytes.Buffer
	e.Redraw(&buf, p)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r\x1b[K"), "redraw must erase the current line first")
	assert.Contains(t, out, "~/work $ ls -l")
	assert.NotContains(t, out, "user@host", "repainting the full prompt block duplicates it")
}

func TestRedrawParksCursor(t *testing.T) {
	e := New(nil, nil)
	typeString(e, "hello")
	e.MoveLeft()
	e.MoveLeft()

	var buf bytes.Buffer
	e.Redraw(&buf, SingleLine("$ "))
	assert.True(t, strings.HasSuffix(buf.String(), "\x1b[2D"))
}

func TestPromptPrintEmitsAllLinesOnce(t *testing.T) {
	p := &Prompt{Lines: []string{"top", "bottom $ "}}
	var buf bytes.Buffer
	p.Print(&buf)
	assert.Equal(t, "top\r\nbottom $ ", buf.String())
	assert.Equal(t, "bottom $ ", p.LastLine())
}
