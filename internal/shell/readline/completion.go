package readline

import (
	"os"
	"sort"
	"strings"
)

// Candidates is a lazy, finite, restartable sequence of completion
// candidates. Sources are evaluated on demand, in order, the first
// time the sequence is walked; Reset rewinds without recomputing.
type Candidates struct {
	sources []func() []string
	items   []string
	loaded  bool
	idx     int
}

// Next yields the next candidate.
func (c *Candidates) Next() (string, bool) {
	if !c.loaded {
		c.load()
	}
	if c.idx >= len(c.items) {
		return "", false
	}
	item := c.items[c.idx]
	c.idx++
	return item, true
}

// Reset rewinds the sequence to its first candidate.
func (c *Candidates) Reset() { c.idx = 0 }

func (c *Candidates) load() {
	seen := make(map[string]bool)
	for _, src := range c.sources {
		for _, item := range src() {
			if !seen[item] {
				seen[item] = true
				c.items = append(c.items, item)
			}
		}
	}
	sort.Strings(c.items)
	c.loaded = true
}

// Completer produces completion candidates from builtin names,
// aliases, and filesystem entries relative to the current working
// directory.
type Completer struct {
	// Builtins returns the builtin command names.
	Builtins func() []string
	// Aliases returns the currently defined alias names.
	Aliases func() []string
	// Cwd returns the directory filesystem candidates resolve against.
	Cwd func() string
}

// Candidates builds the candidate sequence for one token. Command
// position (first word) completes builtins and aliases as well as
// files; argument positions complete files only.
func (c *Completer) Candidates(token string, commandPos bool) *Candidates {
	var sources []func() []string
	if commandPos {
		if c.Builtins != nil {
			sources = append(sources, filterSource(c.Builtins, token))
		}
		if c.Aliases != nil {
			sources = append(sources, filterSource(c.Aliases, token))
		}
	}
	sources = append(sources, func() []string { return c.fileCandidates(token) })
	return &Candidates{sources: sources}
}

func filterSource(src func() []string, prefix string) func() []string {
	return func() []string {
		var out []string
		for _, s := range src() {
			if strings.HasPrefix(s, prefix) {
				out = append(out, s)
			}
		}
		return out
	}
}

// fileCandidates completes the token against directory entries. A
// token with a path separator completes inside that directory;
// directories gain a trailing slash so completion can continue into
// them.
func (c *Completer) fileCandidates(token string) []string {
	dir := "."
	prefix := token
	if i := strings.LastIndexByte(token, '/'); i >= 0 {
		dir = token[:i+1]
		prefix = token[i+1:]
	}

	base := dir
	if !strings.HasPrefix(base, "/") {
		cwd := "."
		if c.Cwd != nil {
			cwd = c.Cwd()
		}
		if base == "." {
			base = cwd
		} else {
			base = cwd + "/" + base
		}
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if prefix == "" && strings.HasPrefix(name, ".") {
			continue
		}
		full := name
		if dir != "." {
			full = dir + name
		}
		if e.IsDir() {
			full += "/"
		}
		out = append(out, full)
	}
	return out
}
