// Package readline implements the embedded shell's interactive line
// editor: an editable buffer with cursor motion, bounded-history
// recall, tab completion, and prompt redraw that is safe for prompts
// spanning multiple physical lines.
package readline

import (
	"io"
	"strings"
)

// HistoryView is the read side of the shell history the editor
// navigates over.
type HistoryView interface {
	Len() int
	At(i int) string
}

// Editor maintains one editable line, a cursor offset, and a pointer
// into the history list.
type Editor struct {
	buf    []rune
	cursor int

	hist HistoryView
	// histIdx == hist.Len() means the live, in-progress line.
	histIdx int
	// stash holds the in-progress line while navigating history, so
	// moving back down past the newest entry restores it exactly,
	// including the empty line.
	stash     []rune
	stashed   bool
	completer *Completer

	// tab state: consecutive presses with no prefix progress show the
	// candidate list.
	lastTabLine   string
	lastTabCursor int
}

// New creates an editor over the given history. A nil completer
// disables tab completion.
func New(hist HistoryView, completer *Completer) *Editor {
	e := &Editor{hist: hist, completer: completer}
	e.histIdx = e.histLen()
	return e
}

func (e *Editor) histLen() int {
	if e.hist == nil {
		return 0
	}
	return e.hist.Len()
}

// Line returns the current buffer contents.
func (e *Editor) Line() string { return string(e.buf) }

// Cursor returns the rune offset of the cursor.
func (e *Editor) Cursor() int { return e.cursor }

// Reset clears the buffer and rewinds history navigation, ready for a
// fresh prompt.
func (e *Editor) Reset() {
	e.buf = e.buf[:0]
	e.cursor = 0
	e.histIdx = e.histLen()
	e.stash = nil
	e.stashed = false
	e.clearTabState()
}

// Insert places a rune at the cursor.
func (e *Editor) Insert(r rune) {
	e.buf = append(e.buf, 0)
	copy(e.buf[e.cursor+1:], e.buf[e.cursor:])
	e.buf[e.cursor] = r
	e.cursor++
	e.clearTabState()
}

// InsertString places a string at the cursor.
func (e *Editor) InsertString(s string) {
	for _, r := range s {
		e.Insert(r)
	}
}

// Backspace removes the rune before the cursor.
func (e *Editor) Backspace() {
	if e.cursor == 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
	e.clearTabState()
}

// Delete removes the rune under the cursor.
func (e *Editor) Delete() {
	if e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
	e.clearTabState()
}

// KillToEnd removes everything from the cursor to the end of line.
func (e *Editor) KillToEnd() {
	e.buf = e.buf[:e.cursor]
	e.clearTabState()
}

// KillLine clears the whole line.
func (e *Editor) KillLine() {
	e.buf = e.buf[:0]
	e.cursor = 0
	e.clearTabState()
}

// MoveLeft moves the cursor one rune left.
func (e *Editor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

// MoveRight moves the cursor one rune right.
func (e *Editor) MoveRight() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

// MoveHome moves the cursor to the start of the line.
func (e *Editor) MoveHome() { e.cursor = 0 }

// MoveEnd moves the cursor past the last rune.
func (e *Editor) MoveEnd() { e.cursor = len(e.buf) }

// HistoryUp recalls the previous history entry. The first upward move
// stashes the in-progress line.
func (e *Editor) HistoryUp() {
	if e.histIdx == 0 || e.histLen() == 0 {
		return
	}
	if e.histIdx == e.histLen() {
		e.stash = append([]rune(nil), e.buf...)
		e.stashed = true
	}
	e.histIdx--
	e.setLine(e.hist.At(e.histIdx))
}

// HistoryDown moves toward the newest entry; past it, the stashed
// in-progress line comes back.
func (e *Editor) HistoryDown() {
	if e.histIdx >= e.histLen() {
		return
	}
	e.histIdx++
	if e.histIdx == e.histLen() {
		if e.stashed {
			e.buf = append(e.buf[:0], e.stash...)
			e.cursor = len(e.buf)
			e.stash = nil
			e.stashed = false
		} else {
			e.KillLine()
		}
		return
	}
	e.setLine(e.hist.At(e.histIdx))
}

func (e *Editor) setLine(s string) {
	e.buf = append(e.buf[:0], []rune(s)...)
	e.cursor = len(e.buf)
	e.clearTabState()
}

func (e *Editor) clearTabState() {
	e.lastTabLine = ""
	e.lastTabCursor = -1
}

// CompleteResult is the outcome of one tab press.
type CompleteResult struct {
	// Inserted is the text appended to the buffer, if any.
	Inserted string
	// Candidates is non-nil when the full list should be shown.
	Candidates []string
}

// Complete handles a tab press against the token under the cursor.
// The first press inserts the longest common prefix of the candidate
// set; a repeat press with no further progress yields the list.
func (e *Editor) Complete() CompleteResult {
	if e.completer == nil {
		return CompleteResult{}
	}

	repeat := e.lastTabLine == e.Line() && e.lastTabCursor == e.cursor
	e.lastTabLine = e.Line()
	e.lastTabCursor = e.cursor

	token, isFirstWord := e.currentToken()
	seq := e.completer.Candidates(token, isFirstWord)

	var candidates []string
	for {
		c, ok := seq.Next()
		if !ok {
			break
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return CompleteResult{}
	}

	if len(candidates) == 1 {
		ext := strings.TrimPrefix(candidates[0], token)
		if ext != "" {
			e.InsertString(ext)
			e.lastTabLine = e.Line()
			e.lastTabCursor = e.cursor
			return CompleteResult{Inserted: ext}
		}
		return CompleteResult{}
	}

	lcp := longestCommonPrefix(candidates)
	if ext := strings.TrimPrefix(lcp, token); ext != "" {
		e.InsertString(ext)
		e.lastTabLine = e.Line()
		e.lastTabCursor = e.cursor
		return CompleteResult{Inserted: ext}
	}
	if repeat {
		return CompleteResult{Candidates: candidates}
	}
	return CompleteResult{}
}

// currentToken extracts the whitespace-delimited token ending at the
// cursor and whether it is the first token on the line.
func (e *Editor) currentToken() (string, bool) {
	start := e.cursor
	for start > 0 && e.buf[start-1] != ' ' && e.buf[start-1] != '\t' {
		start--
	}
	token := string(e.buf[start:e.cursor])
	head := strings.TrimSpace(string(e.buf[:start]))
	return token, head == ""
}

func longestCommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// Redraw repaints the editable region: carriage return, erase the
// physical line, re-render the last prompt line and the buffer, then
// park the cursor. Only the last physical line of a multi-line prompt
// is repainted; re-emitting the whole prompt block duplicates it on
// screen.
func (e *Editor) Redraw(w io.Writer, p *Prompt) {
	var sb strings.Builder
	sb.WriteString("\r\x1b[K")
	sb.WriteString(p.LastLine())
	sb.WriteString(string(e.buf))
	if back := len(e.buf) - e.cursor; back > 0 {
		sb.WriteString("\x1b[")
		sb.WriteString(itoa(back))
		sb.WriteString("D")
	}
	io.WriteString(w, sb.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
