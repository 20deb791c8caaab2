// Package env holds the mutable state of one embedded shell instance:
// working directory, variables, aliases, bounded command history, and
// the last exit status. One Environment belongs to one shell process
// and dies with it; only the history file outlives a respawn.
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Environment is the state of one shell instance. Not safe for
// concurrent use: the shell is single-threaded by design.
type Environment struct {
	cwd      string
	vars     map[string]string
	exported map[string]bool
	aliases  map[string]string
	history  *History
	status   int
}

// New creates an environment seeded from the OS process environment,
// rooted at dir (or the process cwd when dir is empty).
func New(dir string, historyLimit int) (*Environment, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	e := &Environment{
		cwd:      abs,
		vars:     make(map[string]string),
		exported: make(map[string]bool),
		aliases:  make(map[string]string),
		history:  NewHistory(historyLimit),
	}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			e.vars[kv[:i]] = kv[i+1:]
			e.exported[kv[:i]] = true
		}
	}
	e.vars["PWD"] = abs
	e.exported["PWD"] = true
	return e, nil
}

// Cwd returns the current working directory.
func (e *Environment) Cwd() string { return e.cwd }

// Chdir changes the working directory, verifying the target exists.
func (e *Environment) Chdir(dir string) error {
	if dir == "" {
		dir = e.vars["HOME"]
		if dir == "" {
			return fmt.Errorf("cd: HOME not set")
		}
	}
	if dir == "-" {
		prev, ok := e.vars["OLDPWD"]
		if !ok {
			return fmt.Errorf("cd: OLDPWD not set")
		}
		dir = prev
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.cwd, dir)
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cd: %s: no such file or directory", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("cd: %s: not a directory", dir)
	}

	e.vars["OLDPWD"] = e.cwd
	e.cwd = dir
	e.vars["PWD"] = dir
	return nil
}

// Var returns a variable's value. Part of parser.Expander.
func (e *Environment) Var(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set assigns a variable without exporting it.
func (e *Environment) Set(name, value string) {
	e.vars[name] = value
}

// Unset removes a variable.
func (e *Environment) Unset(name string) {
	delete(e.vars, name)
	delete(e.exported, name)
}

// Export marks a variable for inclusion in child environments,
// optionally assigning it first.
func (e *Environment) Export(name, value string, assign bool) {
	if assign {
		e.vars[name] = value
	}
	e.exported[name] = true
}

// Environ renders the exported variables as KEY=VALUE pairs for child
// processes.
func (e *Environment) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		if e.exported[k] {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

// Vars returns all variables (exported or not) as sorted KEY=VALUE
// pairs, for the set builtin.
func (e *Environment) Vars() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Alias returns the replacement text for an alias. Part of
// parser.AliasResolver.
func (e *Environment) Alias(name string) (string, bool) {
	v, ok := e.aliases[name]
	return v, ok
}

// SetAlias defines or replaces an alias.
func (e *Environment) SetAlias(name, value string) {
	e.aliases[name] = value
}

// UnsetAlias removes an alias; reports whether it existed.
func (e *Environment) UnsetAlias(name string) bool {
	_, ok := e.aliases[name]
	delete(e.aliases, name)
	return ok
}

// Aliases returns all alias definitions, sorted by name.
func (e *Environment) Aliases() []string {
	out := make([]string, 0, len(e.aliases))
	for k, v := range e.aliases {
		out = append(out, fmt.Sprintf("alias %s='%s'", k, v))
	}
	sort.Strings(out)
	return out
}

// AliasNames returns alias names for completion.
func (e *Environment) AliasNames() []string {
	out := make([]string, 0, len(e.aliases))
	for k := range e.aliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// History returns the bounded command history.
func (e *Environment) History() *History { return e.history }

// LastStatus returns $?. Part of parser.Expander.
func (e *Environment) LastStatus() int { return e.status }

// SetLastStatus records the exit status of the last pipeline.
func (e *Environment) SetLastStatus(code int) { e.status = code }

// Pid returns $$. Part of parser.Expander.
func (e *Environment) Pid() int { return os.Getpid() }
