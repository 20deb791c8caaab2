// Package builtins implements the commands the embedded shell runs
// in-process. The set is a closed enum dispatched by an exhaustive
// switch, so adding or removing a builtin is a compile-time-checked
// change rather than a string-table edit.
package builtins

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/termstack/termd/internal/shell/env"
)

// Kind identifies one builtin.
type Kind int

const (
	KindCd Kind = iota
	KindPwd
	KindLs
	KindCat
	KindEcho
	KindClear
	KindExit
	KindEnv
	KindSet
	KindUnset
	KindExport
	KindAlias
	KindUnalias
	KindHistory
	KindWhich
	KindHelp
	KindJobs
)

var names = map[string]Kind{
	"cd":      KindCd,
	"pwd":     KindPwd,
	"ls":      KindLs,
	"cat":     KindCat,
	"echo":    KindEcho,
	"clear":   KindClear,
	"exit":    KindExit,
	"env":     KindEnv,
	"set":     KindSet,
	"unset":   KindUnset,
	"export":  KindExport,
	"alias":   KindAlias,
	"unalias": KindUnalias,
	"history": KindHistory,
	"which":   KindWhich,
	"help":    KindHelp,
	"jobs":    KindJobs,
}

// Lookup resolves a command name to a builtin kind.
func Lookup(name string) (Kind, bool) {
	k, ok := names[name]
	return k, ok
}

// Names returns all builtin names, sorted, for completion and help.
func Names() []string {
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// JobReporter exposes the executor's background job table to the jobs
// builtin.
type JobReporter interface {
	JobLines() []string
}

// Context carries everything a builtin may touch.
type Context struct {
	Env    *env.Environment
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Jobs   JobReporter
	// RequestExit asks the REPL to terminate with the given code.
	RequestExit func(code int)
}

// Run executes one builtin and returns its exit status.
func Run(k Kind, args []string, ctx *Context) int {
	switch k {
	case KindCd:
		return runCd(args, ctx)
	case KindPwd:
		fmt.Fprintln(ctx.Stdout, ctx.Env.Cwd())
		return 0
	case KindLs:
		return runLs(args, ctx)
	case KindCat:
		return runCat(args, ctx)
	case KindEcho:
		return runEcho(args, ctx)
	case KindClear:
		fmt.Fprint(ctx.Stdout, "\x1b[2J\x1b[H")
		return 0
	case KindExit:
		return runExit(args, ctx)
	case KindEnv:
		for _, kv := range ctx.Env.Environ() {
			fmt.Fprintln(ctx.Stdout, kv)
		}
		return 0
	case KindSet:
		return runSet(args, ctx)
	case KindUnset:
		return runUnset(args, ctx)
	case KindExport:
		return runExport(args, ctx)
	case KindAlias:
		return runAlias(args, ctx)
	case KindUnalias:
		return runUnalias(args, ctx)
	case KindHistory:
		return runHistory(args, ctx)
	case KindWhich:
		return runWhich(args, ctx)
	case KindHelp:
		return runHelp(ctx)
	case KindJobs:
		return runJobs(ctx)
	default:
		fmt.Fprintf(ctx.Stderr, "unknown builtin kind %d\n", k)
		return 1
	}
}

func runCd(args []string, ctx *Context) int {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	if err := ctx.Env.Chdir(target); err != nil {
		fmt.Fprintln(ctx.Stderr, err)
		return 1
	}
	return 0
}

func runLs(args []string, ctx *Context) int {
	showHidden := false
	var paths []string
	for _, a := range args {
		if a == "-a" {
			showHidden = true
			continue
		}
		paths = append(paths, a)
	}
	if len(paths) == 0 {
		paths = []string{ctx.Env.Cwd()}
	}

	status := 0
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(ctx.Env.Cwd(), p)
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "ls: %v\n", err)
			status = 1
			continue
		}
		if len(paths) > 1 {
			if i > 0 {
				fmt.Fprintln(ctx.Stdout)
			}
			fmt.Fprintf(ctx.Stdout, "%s:\n", paths[i])
		}
		for _, e := range entries {
			name := e.Name()
			if !showHidden && strings.HasPrefix(name, ".") {
				continue
			}
			if e.IsDir() {
				name += "/"
			}
			fmt.Fprintln(ctx.Stdout, name)
		}
	}
	return status
}

func runCat(args []string, ctx *Context) int {
	if len(args) == 0 {
		if ctx.Stdin != nil {
			io.Copy(ctx.Stdout, ctx.Stdin)
		}
		return 0
	}
	status := 0
	for _, a := range args {
		p := a
		if !filepath.IsAbs(p) {
			p = filepath.Join(ctx.Env.Cwd(), p)
		}
		f, err := os.Open(p)
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "cat: %v\n", err)
			status = 1
			continue
		}
		io.Copy(ctx.Stdout, f)
		f.Close()
	}
	return status
}

func runEcho(args []string, ctx *Context) int {
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	fmt.Fprint(ctx.Stdout, strings.Join(args, " "))
	if newline {
		fmt.Fprintln(ctx.Stdout)
	}
	return 0
}

func runExit(args []string, ctx *Context) int {
	code := ctx.Env.LastStatus()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "exit: %s: numeric argument required\n", args[0])
			code = 2
		} else {
			code = n
		}
	}
	if ctx.RequestExit != nil {
		ctx.RequestExit(code)
	}
	return code
}

func runSet(args []string, ctx *Context) int {
	if len(args) == 0 {
		for _, kv := range ctx.Env.Vars() {
			fmt.Fprintln(ctx.Stdout, kv)
		}
		return 0
	}
	status := 0
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			fmt.Fprintf(ctx.Stderr, "set: expected NAME=VALUE, got %q\n", a)
			status = 1
			continue
		}
		ctx.Env.Set(name, value)
	}
	return status
}

func runUnset(args []string, ctx *Context) int {
	if len(args) == 0 {
		fmt.Fprintln(ctx.Stderr, "unset: name required")
		return 1
	}
	for _, a := range args {
		ctx.Env.Unset(a)
	}
	return 0
}

func runExport(args []string, ctx *Context) int {
	if len(args) == 0 {
		for _, kv := range ctx.Env.Environ() {
			fmt.Fprintf(ctx.Stdout, "export %s\n", kv)
		}
		return 0
	}
	for _, a := range args {
		name, value, assigned := strings.Cut(a, "=")
		if name == "" {
			fmt.Fprintf(ctx.Stderr, "export: invalid name %q\n", a)
			return 1
		}
		ctx.Env.Export(name, value, assigned)
	}
	return 0
}

func runAlias(args []string, ctx *Context) int {
	if len(args) == 0 {
		for _, line := range ctx.Env.Aliases() {
			fmt.Fprintln(ctx.Stdout, line)
		}
		return 0
	}
	status := 0
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			if v, found := ctx.Env.Alias(a); found {
				fmt.Fprintf(ctx.Stdout, "alias %s='%s'\n", a, v)
			} else {
				fmt.Fprintf(ctx.Stderr, "alias: %s: not found\n", a)
				status = 1
			}
			continue
		}
		ctx.Env.SetAlias(name, value)
	}
	return status
}

func runUnalias(args []string, ctx *Context) int {
	if len(args) == 0 {
		fmt.Fprintln(ctx.Stderr, "unalias: name required")
		return 1
	}
	status := 0
	for _, a := range args {
		if !ctx.Env.UnsetAlias(a) {
			fmt.Fprintf(ctx.Stderr, "unalias: %s: not found\n", a)
			status = 1
		}
	}
	return status
}

func runHistory(args []string, ctx *Context) int {
	h := ctx.Env.History()
	limit := h.Len()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			fmt.Fprintf(ctx.Stderr, "history: %s: invalid count\n", args[0])
			return 1
		}
		if n < limit {
			limit = n
		}
	}
	start := h.Len() - limit
	for i := start; i < h.Len(); i++ {
		fmt.Fprintf(ctx.Stdout, "%5d  %s\n", i+1, h.At(i))
	}
	return 0
}

func runWhich(args []string, ctx *Context) int {
	if len(args) == 0 {
		fmt.Fprintln(ctx.Stderr, "which: name required")
		return 1
	}
	status := 0
	for _, a := range args {
		if _, ok := Lookup(a); ok {
			fmt.Fprintf(ctx.Stdout, "%s: shell builtin\n", a)
			continue
		}
		if v, ok := ctx.Env.Alias(a); ok {
			fmt.Fprintf(ctx.Stdout, "%s: aliased to %s\n", a, v)
			continue
		}
		if path, err := exec.LookPath(a); err == nil {
			fmt.Fprintln(ctx.Stdout, path)
			continue
		}
		fmt.Fprintf(ctx.Stderr, "which: %s: not found\n", a)
		status = 1
	}
	return status
}

func runHelp(ctx *Context) int {
	fmt.Fprintln(ctx.Stdout, "termsh builtins:")
	for _, n := range Names() {
		fmt.Fprintf(ctx.Stdout, "  %s\n", n)
	}
	return 0
}

func runJobs(ctx *Context) int {
	if ctx.Jobs == nil {
		return 0
	}
	for _, line := range ctx.Jobs.JobLines() {
		fmt.Fprintln(ctx.Stdout, line)
	}
	return 0
}
