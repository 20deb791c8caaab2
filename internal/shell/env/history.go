package env

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// History is the ordered, bounded command history of one shell.
// Oldest entries are evicted once the cap is reached.
type History struct {
	entries []string
	limit   int
}

// NewHistory creates an empty history with the given cap.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 500
	}
	return &History{limit: limit}
}

// Add appends an entry, evicting the oldest past the cap. Empty lines
// and immediate duplicates are skipped.
func (h *History) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns the history oldest-first. The slice is shared; the
// caller must not mutate it.
func (h *History) Entries() []string { return h.entries }

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// At returns the entry at index i, oldest-first.
func (h *History) At(i int) string { return h.entries[i] }

// DefaultPath returns the history file location, ~/.termsh_history.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".termsh_history")
}

// Load replaces the history with the contents of the file at path,
// keeping only the newest entries up to the cap. A missing file is an
// empty history, not an error.
func (h *History) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("history load: %w", err)
	}
	defer f.Close()

	h.entries = h.entries[:0]
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("history load: %w", err)
	}
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	return nil
}

// Save writes the history to the file at path, one entry per line.
func (h *History) Save(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("history save: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range h.entries {
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}
