package parser

import (
	"fmt"
	"io"

	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	mldriver "github.com/nihei9/maleeni/driver"
)

type VToken interface {
	// TerminalID returns a terminal ID taken by the parser.
	TerminalID() int

	// Lexeme returns a lexeme.
	Lexeme() []byte

	// EOF returns true when a token represents EOF.
	EOF() bool

	// Invalid returns true when a token is invalid.
	Invalid() bool

	// Position returns (row, column) pair.
	Position() (int, int)
}

type TokenStream interface {
	Next() (VToken, error)
}

type vToken struct {
	terminalID int
	tok        *mldriver.Token
}

func (t *vToken) TerminalID() int {
	return t.terminalID
}

func (t *vToken) Lexeme() []byte {
	return t.tok.Lexeme
}

func (t *vToken) EOF() bool {
	return t.tok.EOF
}

func (t *vToken) Invalid() bool {
	return t.tok.Invalid
}

func (t *vToken) Position() (int, int) {
	return t.tok.Row, t.tok.Col
}

type tokenStream struct {
	lex            *mldriver.Lexer
	kindToTerminal []int
	skip           []int
}

// NewTokenStream returns a stream of the tokens in `src` recognized by the lexical part of `g`.
// Tokens of skipped kinds never appear in the stream.
func NewTokenStream(g *spec.CompiledGrammar, src io.Reader) (TokenStream, error) {
	if g.Lexical == nil {
		return nil, fmt.Errorf("grammar %v has no lexical specification", g.Name)
	}

	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(g.Lexical.Maleeni), src)
	if err != nil {
		return nil, err
	}

	return &tokenStream{
		lex:            lex,
		kindToTerminal: g.Lexical.KindToTerminal,
		skip:           g.Lexical.Skip,
	}, nil
}

func (l *tokenStream) Next() (VToken, error) {
	for {
		tok, err := l.lex.Next()
		if err != nil {
			return nil, err
		}
		if !tok.EOF && !tok.Invalid && l.skip[tok.KindID] > 0 {
			continue
		}

		term := spec.SymbolNone
		switch {
		case tok.EOF:
			term = spec.SymbolEOF
		case !tok.Invalid:
			term = l.kindToTerminal[tok.KindID]
		}
		return &vToken{
			terminalID: term,
			tok:        tok,
		}, nil
	}
}

// Parse feeds every token of `ts` to `p`, the end of the input included, and stops early when the
// parse finishes. Tokens the lexer can't recognize are reported as syntax errors through the
// action table and are otherwise dropped. The semantic value of each token is the VToken itself.
func Parse(p *Parser, ts TokenStream) error {
	for {
		tok, err := ts.Next()
		if err != nil {
			return err
		}
		if tok.Invalid() || tok.TerminalID() == spec.SymbolNone {
			if p.closed {
				return ErrParserClosed
			}
			if p.finished() {
				return nil
			}
			p.reportSyntaxError(spec.SymbolNone, tok)
			continue
		}

		err = p.Feed(tok.TerminalID(), tok)
		if err != nil {
			return err
		}
		if tok.EOF() || p.finished() {
			return nil
		}
	}
}
