// Package repl drives the embedded shell's interactive loop: it owns
// terminal raw mode, feeds key events into the line editor, hands
// completed lines to the parser and executor, and reports the working
// directory to any attached terminal via OSC 7.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/termstack/termd/internal/shell/builtins"
	"github.com/termstack/termd/internal/shell/env"
	"github.com/termstack/termd/internal/shell/executor"
	"github.com/termstack/termd/internal/shell/parser"
	"github.com/termstack/termd/internal/shell/readline"
)

// Options configures one shell instance.
type Options struct {
	Env    *env.Environment
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer

	// TwoLinePrompt selects the user@host / path prompt layout.
	TwoLinePrompt bool
	// HistoryPath is where history persists across sessions. Empty
	// disables persistence.
	HistoryPath string
}

// REPL is the interactive read-eval-print loop.
type REPL struct {
	opts Options
	exec *executor.Executor

	editor  *readline.Editor
	decoder *readline.Decoder

	exitCode  int
	exitAsked bool
}

// New builds a REPL over the given environment and streams.
func New(opts Options) *REPL {
	r := &REPL{opts: opts}
	r.exec = executor.New(opts.Env, opts.Stdin, opts.Stdout, opts.Stderr)
	r.exec.RequestExit = func(code int) {
		r.exitCode = code
		r.exitAsked = true
	}

	completer := &readline.Completer{
		Builtins: builtins.Names,
		Aliases:  opts.Env.AliasNames,
		Cwd:      opts.Env.Cwd,
	}
	r.editor = readline.New(opts.Env.History(), completer)
	r.decoder = readline.NewDecoder(opts.Stdin)
	return r
}

// RunCommand executes a single line non-interactively and returns its
// exit status. Used by the -c flag.
func (r *REPL) RunCommand(line string) int {
	r.evalLine(line)
	if r.exitAsked {
		return r.exitCode
	}
	return r.opts.Env.LastStatus()
}

// Run enters the interactive loop and returns the shell's exit code.
// When stdin is not a terminal the loop degrades to reading buffered
// lines, which keeps scripted input working.
func (r *REPL) Run() int {
	// The shell must survive Ctrl-C aimed at its foreground children.
	// In raw mode the key arrives as a byte anyway; in cooked mode the
	// terminal would otherwise deliver SIGINT to the whole group.
	signal.Ignore(os.Interrupt)
	defer signal.Reset(os.Interrupt)

	probe, err := readline.MakeRaw(int(r.opts.Stdin.Fd()))
	if err != nil {
		return r.runBuffered()
	}
	// Probe succeeded; hand the terminal back until a prompt is up.
	readline.Restore(int(r.opts.Stdin.Fd()), probe)

	defer r.saveHistory()

	for !r.exitAsked {
		line, ok := r.readLine()
		if !ok {
			break
		}
		r.opts.Env.History().Add(line)
		r.evalLine(line)
	}
	return r.exitCode
}

// readLine runs one raw-mode editing cycle. The second return is false
// on end of input.
func (r *REPL) readLine() (string, bool) {
	prompt := r.prompt()
	prompt.Print(r.opts.Stdout)
	r.editor.Reset()

	state, err := readline.MakeRaw(int(r.opts.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(r.opts.Stderr, "termsh: raw mode: %v\n", err)
		return "", false
	}
	defer readline.Restore(int(r.opts.Stdin.Fd()), state)

	for {
		key, err := r.decoder.ReadKey()
		if err != nil {
			io.WriteString(r.opts.Stdout, "\r\n")
			return "", false
		}

		switch key.Kind {
		case readline.KeyEnter:
			io.WriteString(r.opts.Stdout, "\r\n")
			return r.editor.Line(), true
		case readline.KeyCtrlC:
			// Abandon the line, keep the shell.
			io.WriteString(r.opts.Stdout, "^C\r\n")
			r.editor.Reset()
			prompt = r.prompt()
			prompt.Print(r.opts.Stdout)
			continue
		case readline.KeyCtrlD:
			if r.editor.Line() == "" {
				io.WriteString(r.opts.Stdout, "\r\n")
				return "", false
			}
			r.editor.Delete()
		case readline.KeyRune:
			r.editor.Insert(key.Rune)
		case readline.KeyBackspace:
			r.editor.Backspace()
		case readline.KeyDelete:
			r.editor.Delete()
		case readline.KeyLeft:
			r.editor.MoveLeft()
		case readline.KeyRight:
			r.editor.MoveRight()
		case readline.KeyUp:
			r.editor.HistoryUp()
		case readline.KeyDown:
			r.editor.HistoryDown()
		case readline.KeyHome, readline.KeyCtrlA:
			r.editor.MoveHome()
		case readline.KeyEnd, readline.KeyCtrlE:
			r.editor.MoveEnd()
		case readline.KeyCtrlK:
			r.editor.KillToEnd()
		case readline.KeyCtrlU:
			r.editor.KillLine()
		case readline.KeyCtrlL:
			io.WriteString(r.opts.Stdout, "\x1b[2J\x1b[H")
			prompt.Print(r.opts.Stdout)
		case readline.KeyTab:
			res := r.editor.Complete()
			if len(res.Candidates) > 0 {
				io.WriteString(r.opts.Stdout, "\r\n"+strings.Join(res.Candidates, "  ")+"\r\n")
				prompt.Print(r.opts.Stdout)
			}
		}
		r.editor.Redraw(r.opts.Stdout, prompt)
	}
}

// runBuffered is the fallback when stdin is not a terminal: plain
// line-at-a-time execution, no editing, no prompt.
func (r *REPL) runBuffered() int {
	scanner := bufio.NewScanner(r.opts.Stdin)
	for scanner.Scan() && !r.exitAsked {
		r.evalLine(scanner.Text())
	}
	if r.exitAsked {
		return r.exitCode
	}
	return r.opts.Env.LastStatus()
}

// evalLine parses and executes one line. Parse errors are reported and
// the loop continues; the line's status becomes $?.
func (r *REPL) evalLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	before := r.opts.Env.Cwd()

	list, err := parser.Parse(line, r.opts.Env)
	if err != nil {
		fmt.Fprintf(r.opts.Stderr, "termsh: %v\n", err)
		r.opts.Env.SetLastStatus(2)
		return
	}
	if list == nil {
		return
	}
	r.exec.Run(list)

	if after := r.opts.Env.Cwd(); after != before {
		r.reportCwd(after)
	}
}

// reportCwd emits OSC 7 so a hosting terminal can track the shell's
// working directory without parsing its output.
func (r *REPL) reportCwd(dir string) {
	host, err := os.Hostname()
	if err != nil {
		host = ""
	}
	fmt.Fprintf(r.opts.Stdout, "\x1b]7;file://%s%s\x07", host, dir)
}

func (r *REPL) prompt() *readline.Prompt {
	if r.opts.TwoLinePrompt {
		return readline.TwoLine(r.opts.Env.Cwd())
	}
	return readline.SingleLine(promptPath(r.opts.Env.Cwd()) + " $ ")
}

func promptPath(cwd string) string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		if cwd == home {
			return "~"
		}
		if strings.HasPrefix(cwd, home+"/") {
			return "~" + cwd[len(home):]
		}
	}
	return cwd
}

func (r *REPL) saveHistory() {
	if r.opts.HistoryPath == "" {
		return
	}
	if err := r.opts.Env.History().Save(r.opts.HistoryPath); err != nil {
		fmt.Fprintf(r.opts.Stderr, "termsh: %v\n", err)
	}
}
