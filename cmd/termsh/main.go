// Command termsh is the embedded interactive shell: line editing with
// history and completion, pipelines, redirections, and a closed set of
// builtins, designed to run inside a managed terminal session.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/termstack/termd/internal/shell/env"
	"github.com/termstack/termd/internal/shell/repl"
)

func main() {
	command := flag.String("c", "", "run a single command and exit")
	noProfile := flag.Bool("no-profile", false, "skip ~/.termsh.toml")
	flag.Parse()

	profile := &env.Profile{}
	if !*noProfile {
		p, err := env.LoadProfile(env.DefaultProfilePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "termsh: %v\n", err)
		} else {
			profile = p
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = os.Getenv("HOME")
	}
	environment, err := env.New(cwd, profile.HistoryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "termsh: %v\n", err)
		os.Exit(1)
	}
	profile.Apply(environment)

	histPath := env.DefaultPath()
	if err := environment.History().Load(histPath); err != nil {
		fmt.Fprintf(os.Stderr, "termsh: %v\n", err)
	}

	r := repl.New(repl.Options{
		Env:           environment,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		TwoLinePrompt: profile.TwoLinePrompt,
		HistoryPath:   histPath,
	})

	if *command != "" {
		os.Exit(r.RunCommand(*command))
	}
	os.Exit(r.Run())
}
