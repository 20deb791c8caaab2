package parser

import "strings"

// Connective joins two pipelines in a list.
type Connective int

const (
	ConnSeq Connective = iota // ;
	ConnAnd                   // &&
	ConnOr                    // ||
)

func (c Connective) String() string {
	switch c {
	case ConnAnd:
		return "&&"
	case ConnOr:
		return "||"
	default:
		return ";"
	}
}

// List is a parsed command line: pipelines joined by connectives with
// short-circuit semantics. Seps[i] joins Pipelines[i] and
// Pipelines[i+1]. Lists are immutable after parse.
type List struct {
	Pipelines []*Pipeline
	Seps      []Connective
}

// Pipeline is a sequence of commands connected stdout-to-stdin,
// left to right.
type Pipeline struct {
	Commands   []*Command
	Background bool
}

// RedirOp is the direction and target stream of a redirection.
type RedirOp int

const (
	RedirOut    RedirOp = iota // > : stdout, truncate
	RedirAppend                // >>: stdout, append
	RedirIn                    // < : stdin
	RedirErr                   // 2>: stderr, truncate
	RedirBoth                  // &>: stdout+stderr, truncate
)

func (op RedirOp) String() string {
	switch op {
	case RedirAppend:
		return ">>"
	case RedirIn:
		return "<"
	case RedirErr:
		return "2>"
	case RedirBoth:
		return "&>"
	default:
		return ">"
	}
}

// Redirect is one redirection spec attached to a command.
type Redirect struct {
	Op     RedirOp
	Target string
}

// Command is one pipeline stage: a program name, its arguments, and
// any redirections. QuotedArgs marks argument indexes (0 = name) that
// carried quotes and are therefore exempt from glob expansion.
type Command struct {
	Name       string
	Args       []string
	Redirs     []Redirect
	QuotedArgs map[int]bool
}

// String renders the list back to a command line. The rendering
// reproduces the original token sequence modulo whitespace, which is
// what history display relies on.
func (l *List) String() string {
	var sb strings.Builder
	for i, p := range l.Pipelines {
		if i > 0 {
			sb.WriteString(" " + l.Seps[i-1].String() + " ")
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

func (p *Pipeline) String() string {
	var sb strings.Builder
	for i, c := range p.Commands {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(c.String())
	}
	if p.Background {
		sb.WriteString(" &")
	}
	return sb.String()
}

func (c *Command) String() string {
	parts := make([]string, 0, 1+len(c.Args)+len(c.Redirs))
	parts = append(parts, quoteWord(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteWord(a))
	}
	for _, r := range c.Redirs {
		parts = append(parts, r.Op.String(), quoteWord(r.Target))
	}
	return strings.Join(parts, " ")
}

// quoteWord re-quotes a word whose text would otherwise re-lex as
// multiple tokens or an operator.
func quoteWord(w string) string {
	if w == "" {
		return "''"
	}
	if strings.ContainsAny(w, " \t|;&><'\"\\$") {
		return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
	}
	return w
}
