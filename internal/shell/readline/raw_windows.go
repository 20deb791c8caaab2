//go:build windows

package readline

import "errors"

// TermState is a placeholder on Windows, where the embedded shell
// relies on the console host's own line discipline.
type TermState struct{}

// MakeRaw is unsupported on Windows; the REPL falls back to buffered
// line input.
func MakeRaw(fd int) (*TermState, error) {
	return nil, errors.New("raw mode not supported on this platform")
}

// Restore is a no-op on Windows.
func Restore(fd int, state *TermState) error { return nil }
