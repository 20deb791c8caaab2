package readline

import (
	"io"
	"os"
	"os/user"
	"strings"
)

// Prompt is the text printed before the editable buffer. It may span
// multiple physical lines; only the last line shares a row with the
// buffer and participates in redraw.
type Prompt struct {
	Lines []string
}

// SingleLine builds a one-line prompt.
func SingleLine(text string) *Prompt {
	return &Prompt{Lines: []string{text}}
}

// TwoLine builds the user@host / path layout: identity on the first
// physical line, the working directory and marker on the second.
func TwoLine(cwd string) *Prompt {
	username := "user"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Prompt{Lines: []string{
		username + "@" + host,
		collapseHome(cwd) + " $ ",
	}}
}

func collapseHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}

// LastLine returns the single physical line that is repainted on
// redraw.
func (p *Prompt) LastLine() string {
	if len(p.Lines) == 0 {
		return ""
	}
	return p.Lines[len(p.Lines)-1]
}

// Print writes the full prompt block once, at the start of a fresh
// input cycle. Later redraws must go through Editor.Redraw, which
// touches only the last line.
func (p *Prompt) Print(w io.Writer) {
	for i, line := range p.Lines {
		if i < len(p.Lines)-1 {
			io.WriteString(w, line+"\r\n")
		} else {
			io.WriteString(w, line)
		}
	}
}
