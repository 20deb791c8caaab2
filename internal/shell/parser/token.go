package parser

import "fmt"

// TokenType classifies a lexed token.
type TokenType int

const (
	TokenWord TokenType = iota
	TokenPipe
	TokenSemi
	TokenAnd
	TokenOr
	TokenBackground
	TokenRedirOut    // >
	TokenRedirAppend // >>
	TokenRedirIn     // <
	TokenRedirErr    // 2>
	TokenRedirBoth   // &>
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "word"
	case TokenPipe:
		return "|"
	case TokenSemi:
		return ";"
	case TokenAnd:
		return "&&"
	case TokenOr:
		return "||"
	case TokenBackground:
		return "&"
	case TokenRedirOut:
		return ">"
	case TokenRedirAppend:
		return ">>"
	case TokenRedirIn:
		return "<"
	case TokenRedirErr:
		return "2>"
	case TokenRedirBoth:
		return "&>"
	case TokenEOF:
		return "EOF"
	default:
		return "?"
	}
}

// Token is one lexed unit of a command line.
type Token struct {
	Type TokenType
	Text string
	Pos  int // byte offset in the input line
	// Quoted marks words that had any quoted part; such words are
	// exempt from glob expansion downstream.
	Quoted bool
}

// ParseError reports a malformed input line. Pos is the byte offset of
// the offending token.
type ParseError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("parse error at %d near %q: %s", e.Pos, e.Token, e.Msg)
}
