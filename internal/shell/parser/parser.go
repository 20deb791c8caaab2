// Package parser turns a line of shell input into an executable
// syntax tree: pipelines joined by short-circuit connectives, each
// stage carrying its arguments and redirections.
//
// Variable expansion ($VAR, ${VAR}, $?, $$) and quote stripping happen
// during lexing, before the tree is built; single quotes suppress
// expansion. A malformed line (unmatched quote, dangling operator,
// empty pipe stage) yields a ParseError with the offending position;
// the executor never sees a partially valid tree.
package parser

// AliasResolver supplies alias replacement text. When the Expander
// passed to Parse also implements AliasResolver, the first word of
// each command is alias-expanded before the tree is built.
type AliasResolver interface {
	Alias(name string) (string, bool)
}

// Parse lexes and parses one input line. A nil env disables expansion.
func Parse(line string, env Expander) (*List, error) {
	tokens, err := Lex(line, env)
	if err != nil {
		return nil, err
	}

	p := &treeParser{tokens: tokens, env: env}
	if r, ok := env.(AliasResolver); ok {
		p.aliases = r
	}
	return p.parseList()
}

type treeParser struct {
	tokens  []Token
	pos     int
	env     Expander
	aliases AliasResolver
}

func (p *treeParser) peek() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			end = p.tokens[n-1].Pos + len(p.tokens[n-1].Text)
		}
		return Token{Type: TokenEOF, Pos: end}
	}
	return p.tokens[p.pos]
}

func (p *treeParser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *treeParser) parseList() (*List, error) {
	list := &List{}

	for {
		pipeline, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		list.Pipelines = append(list.Pipelines, pipeline)

		switch tok := p.peek(); tok.Type {
		case TokenEOF:
			return list, nil
		case TokenSemi:
			p.advance()
			if p.peek().Type == TokenEOF {
				// Trailing semicolon is fine.
				return list, nil
			}
			list.Seps = append(list.Seps, ConnSeq)
		case TokenAnd:
			p.advance()
			if p.peek().Type == TokenEOF {
				return nil, &ParseError{Pos: tok.Pos, Token: "&&", Msg: "missing command after operator"}
			}
			list.Seps = append(list.Seps, ConnAnd)
		case TokenOr:
			p.advance()
			if p.peek().Type == TokenEOF {
				return nil, &ParseError{Pos: tok.Pos, Token: "||", Msg: "missing command after operator"}
			}
			list.Seps = append(list.Seps, ConnOr)
		default:
			return nil, &ParseError{Pos: tok.Pos, Token: tok.Text, Msg: "unexpected token"}
		}
	}
}

func (p *treeParser) parsePipeline() (*Pipeline, error) {
	pipeline := &Pipeline{}

	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipeline.Commands = append(pipeline.Commands, cmd)

		tok := p.peek()
		if tok.Type != TokenPipe {
			break
		}
		p.advance()
		if next := p.peek(); next.Type != TokenWord {
			return nil, &ParseError{Pos: tok.Pos, Token: "|", Msg: "empty command in pipeline"}
		}
	}

	if p.peek().Type == TokenBackground {
		amp := p.advance()
		if p.peek().Type != TokenEOF {
			return nil, &ParseError{Pos: amp.Pos, Token: "&", Msg: "background marker must end the line"}
		}
		pipeline.Background = true
	}
	return pipeline, nil
}

func (p *treeParser) parseCommand() (*Command, error) {
	first := p.peek()
	if first.Type != TokenWord {
		return nil, &ParseError{Pos: first.Pos, Token: first.Text, Msg: "expected command"}
	}
	if first.Text == "" && !first.Quoted {
		p.advance()
		return nil, &ParseError{Pos: first.Pos, Msg: "empty command"}
	}

	// Alias expansion on the command word, before the tree is built.
	// The seen set keeps self-referential aliases finite.
	if p.aliases != nil && !first.Quoted {
		if err := p.expandAlias(map[string]bool{}); err != nil {
			return nil, err
		}
	}

	cmd := &Command{QuotedArgs: map[int]bool{}}
	argIdx := 0
	for {
		switch tok := p.peek(); tok.Type {
		case TokenWord:
			p.advance()
			if cmd.Name == "" && argIdx == 0 {
				cmd.Name = tok.Text
				if tok.Quoted {
					cmd.QuotedArgs[0] = true
				}
				argIdx = 1
				continue
			}
			cmd.Args = append(cmd.Args, tok.Text)
			if tok.Quoted {
				cmd.QuotedArgs[argIdx] = true
			}
			argIdx++
		case TokenRedirOut, TokenRedirAppend, TokenRedirIn, TokenRedirErr, TokenRedirBoth:
			p.advance()
			target := p.peek()
			if target.Type != TokenWord {
				return nil, &ParseError{Pos: tok.Pos, Token: tok.Text, Msg: "missing redirection target"}
			}
			p.advance()
			cmd.Redirs = append(cmd.Redirs, Redirect{Op: redirOpFor(tok.Type), Target: target.Text})
		default:
			if cmd.Name == "" {
				return nil, &ParseError{Pos: tok.Pos, Token: tok.Text, Msg: "expected command"}
			}
			return cmd, nil
		}
	}
}

// expandAlias replaces the command-name token at the cursor with the
// lexed alias text, repeatedly, until no alias applies or a name
// repeats.
func (p *treeParser) expandAlias(seen map[string]bool) error {
	for {
		tok := p.peek()
		if tok.Type != TokenWord || seen[tok.Text] {
			return nil
		}
		replacement, ok := p.aliases.Alias(tok.Text)
		if !ok {
			return nil
		}
		seen[tok.Text] = true

		subTokens, err := Lex(replacement, p.env)
		if err != nil {
			return &ParseError{Pos: tok.Pos, Token: tok.Text, Msg: "invalid alias expansion"}
		}

		spliced := make([]Token, 0, len(p.tokens)+len(subTokens)-1)
		spliced = append(spliced, p.tokens[:p.pos]...)
		for _, st := range subTokens {
			st.Pos = tok.Pos
			spliced = append(spliced, st)
		}
		spliced = append(spliced, p.tokens[p.pos+1:]...)
		p.tokens = spliced
	}
}

func redirOpFor(t TokenType) RedirOp {
	switch t {
	case TokenRedirAppend:
		return RedirAppend
	case TokenRedirIn:
		return RedirIn
	case TokenRedirErr:
		return RedirErr
	case TokenRedirBoth:
		return RedirBoth
	default:
		return RedirOut
	}
}
