package parser

import (
	"strconv"
	"strings"
)

// Expander supplies variable values for $-expansion during lexing.
// Expansion runs before syntax-tree construction, never inside single
// quotes.
type Expander interface {
	// Var returns the value of a shell or environment variable.
	Var(name string) (string, bool)
	// LastStatus is the value of $?.
	LastStatus() int
	// Pid is the value of $$.
	Pid() int
}

type nopExpander struct{}

func (nopExpander) Var(string) (string, bool) { return "", false }
func (nopExpander) LastStatus() int           { return 0 }
func (nopExpander) Pid() int                  { return 0 }

type lexer struct {
	input string
	pos   int
	env   Expander
}

// Lex splits a line into tokens, stripping quotes and applying
// $-expansion. Returns a ParseError for an unmatched quote.
func Lex(input string, env Expander) ([]Token, error) {
	if env == nil {
		env = nopExpander{}
	}
	l := &lexer{input: input, env: env}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	switch c := l.input[l.pos]; c {
	case '|':
		if l.peekAt(l.pos+1) == '|' {
			l.pos += 2
			return Token{Type: TokenOr, Text: "||", Pos: start}, nil
		}
		l.pos++
		return Token{Type: TokenPipe, Text: "|", Pos: start}, nil
	case ';':
		l.pos++
		return Token{Type: TokenSemi, Text: ";", Pos: start}, nil
	case '&':
		switch l.peekAt(l.pos + 1) {
		case '&':
			l.pos += 2
			return Token{Type: TokenAnd, Text: "&&", Pos: start}, nil
		case '>':
			l.pos += 2
			return Token{Type: TokenRedirBoth, Text: "&>", Pos: start}, nil
		}
		l.pos++
		return Token{Type: TokenBackground, Text: "&", Pos: start}, nil
	case '>':
		if l.peekAt(l.pos+1) == '>' {
			l.pos += 2
			return Token{Type: TokenRedirAppend, Text: ">>", Pos: start}, nil
		}
		l.pos++
		return Token{Type: TokenRedirOut, Text: ">", Pos: start}, nil
	case '<':
		l.pos++
		return Token{Type: TokenRedirIn, Text: "<", Pos: start}, nil
	case '2':
		if l.peekAt(l.pos+1) == '>' && l.isWordBoundary(l.pos) {
			l.pos += 2
			return Token{Type: TokenRedirErr, Text: "2>", Pos: start}, nil
		}
	}

	return l.word(start)
}

func (l *lexer) peekAt(i int) byte {
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// isWordBoundary reports whether position i starts a fresh token, so
// "2>" is a redirect but "file2>" lexes as a word then ">".
func (l *lexer) isWordBoundary(i int) bool {
	if i == 0 {
		return true
	}
	prev := l.input[i-1]
	return prev == ' ' || prev == '\t'
}

func isMeta(c byte) bool {
	switch c {
	case ' ', '\t', '|', ';', '&', '>', '<':
		return true
	}
	return false
}

func (l *lexer) word(start int) (Token, error) {
	var sb strings.Builder
	quoted := false

	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\'':
			quoted = true
			l.pos++
			end := strings.IndexByte(l.input[l.pos:], '\'')
			if end < 0 {
				return Token{}, &ParseError{Pos: l.pos - 1, Token: "'", Msg: "unmatched single quote"}
			}
			sb.WriteString(l.input[l.pos : l.pos+end])
			l.pos += end + 1
		case c == '"':
			quoted = true
			l.pos++
			if err := l.doubleQuoted(&sb); err != nil {
				return Token{}, err
			}
		case c == '\\' && l.pos+1 < len(l.input):
			sb.WriteByte(l.input[l.pos+1])
			l.pos += 2
		case c == '$':
			sb.WriteString(l.expansion())
		case isMeta(c):
			return Token{Type: TokenWord, Text: sb.String(), Pos: start, Quoted: quoted}, nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return Token{Type: TokenWord, Text: sb.String(), Pos: start, Quoted: quoted}, nil
}

// doubleQuoted consumes up to the closing quote. $-expansion stays
// active; backslash escapes the next byte.
func (l *lexer) doubleQuoted(sb *strings.Builder) error {
	open := l.pos - 1
	for l.pos < len(l.input) {
		switch c := l.input[l.pos]; c {
		case '"':
			l.pos++
			return nil
		case '\\':
			if l.pos+1 < len(l.input) {
				sb.WriteByte(l.input[l.pos+1])
				l.pos += 2
				continue
			}
			sb.WriteByte(c)
			l.pos++
		case '$':
			sb.WriteString(l.expansion())
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return &ParseError{Pos: open, Token: `"`, Msg: "unmatched double quote"}
}

// expansion consumes $VAR, ${VAR}, $?, or $$ at the current position
// and returns the substituted text. A lone $ is literal.
func (l *lexer) expansion() string {
	l.pos++ // consume '$'
	if l.pos >= len(l.input) {
		return "$"
	}

	switch c := l.input[l.pos]; {
	case c == '?':
		l.pos++
		return strconv.Itoa(l.env.LastStatus())
	case c == '$':
		l.pos++
		return strconv.Itoa(l.env.Pid())
	case c == '{':
		end := strings.IndexByte(l.input[l.pos:], '}')
		if end < 0 {
			return "${"
		}
		name := l.input[l.pos+1 : l.pos+end]
		l.pos += end + 1
		v, _ := l.env.Var(name)
		return v
	case isNameByte(c):
		start := l.pos
		for l.pos < len(l.input) && isNameByte(l.input[l.pos]) {
			l.pos++
		}
		v, _ := l.env.Var(l.input[start:l.pos])
		return v
	default:
		return "$"
	}
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
