package test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/FlashSQL/sqlite-more-lite/driver/parser"
	"github.com/FlashSQL/sqlite-more-lite/grammar"
	gspec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	"gopkg.in/yaml.v3"
)

type TreeDiff struct {
	ExpectedPath string
	ActualPath   string
	Message      string
}

func newTreeDiff(expected, actual *Tree, message string) *TreeDiff {
	return &TreeDiff{
		ExpectedPath: expected.path(),
		ActualPath:   actual.path(),
		Message:      message,
	}
}

// Tree is a syntax tree written in the tree notation:
//
//	(expr
//	    (expr (id "a"))
//	    (add "+")
//	    (expr (id "b")))
//
// A node with a quoted lexeme is a terminal. `(error)` stands for the error symbol, and the kind `_`
// matches any kind.
type Tree struct {
	Parent   *Tree
	Offset   int
	Kind     string
	Children []*Tree
	Lexeme   string
}

func NewNonTerminalTree(kind string, children ...*Tree) *Tree {
	return &Tree{
		Kind:     kind,
		Children: children,
	}
}

func NewTerminalNode(kind string, lexeme string) *Tree {
	return &Tree{
		Kind:   kind,
		Lexeme: lexeme,
	}
}

func (t *Tree) Fill() *Tree {
	for i, c := range t.Children {
		c.Parent = t
		c.Offset = i
		c.Fill()
	}
	return t
}

func (t *Tree) path() string {
	if t.Parent == nil {
		return t.Kind
	}
	return fmt.Sprintf("%v.[%v]%v", t.Parent.path(), t.Offset, t.Kind)
}

// Format writes a tree in the tree notation, one node per line.
func (t *Tree) Format() []byte {
	var b bytes.Buffer
	t.format(&b, 0)
	return b.Bytes()
}

func (t *Tree) format(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("    ")
	}
	buf.WriteString("(")
	buf.WriteString(t.Kind)
	if t.Lexeme != "" {
		fmt.Fprintf(buf, " \"%v\"", t.Lexeme)
	}
	if len(t.Children) > 0 {
		buf.WriteString("\n")
		for i, c := range t.Children {
			c.format(buf, depth+1)
			if i < len(t.Children)-1 {
				buf.WriteString("\n")
			}
		}
	}
	buf.WriteString(")")
}

// DiffTree compares `actual` with `expected` and returns where they differ. Both trees must be
// filled.
func DiffTree(expected, actual *Tree) []*TreeDiff {
	if expected == nil && actual == nil {
		return nil
	}
	if expected.Kind != "_" && actual.Kind != expected.Kind {
		msg := fmt.Sprintf("unexpected kind: expected '%v' but got '%v'", expected.Kind, actual.Kind)
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if expected.Lexeme != actual.Lexeme {
		msg := fmt.Sprintf("unexpected lexeme: expected '%v' but got '%v'", expected.Lexeme, actual.Lexeme)
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if len(actual.Children) != len(expected.Children) {
		msg := fmt.Sprintf("unexpected node count: expected %v but got %v", len(expected.Children), len(actual.Children))
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	var diffs []*TreeDiff
	for i, exp := range expected.Children {
		if ds := DiffTree(exp, actual.Children[i]); len(ds) > 0 {
			diffs = append(diffs, ds...)
		}
	}
	return diffs
}

// TestCase is a source text and what parsing it must produce.
type TestCase struct {
	Description string

	Source string

	// Accept is whether the parse must end accepted.
	Accept bool

	// SyntaxErrors is the number of syntax errors the parse must report.
	SyntaxErrors int

	// Output is the expected syntax tree. It is nil when a case doesn't check the tree.
	Output *Tree
}

type testCaseDocument struct {
	Description  string `yaml:"description"`
	Source       string `yaml:"source"`
	Accept       *bool  `yaml:"accept"`
	SyntaxErrors int    `yaml:"syntax_errors"`
	Tree         string `yaml:"tree"`
}

// ParseTestCases reads test cases from a YAML stream. Each document of the stream is a case:
//
//	description: an addition
//	source: a + b
//	tree: |
//	    (expr (expr (id "a")) (add "+") (expr (id "b")))
//	---
//	description: a missing operand
//	source: a +
//	accept: false
//	syntax_errors: 1
//
// accept defaults to true.
func ParseTestCases(r io.Reader) ([]*TestCase, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cases []*TestCase
	for i := 0; ; i++ {
		var doc testCaseDocument
		err := dec.Decode(&doc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("case #%v: %w", i, err)
		}

		c := &TestCase{
			Description:  doc.Description,
			Source:       doc.Source,
			Accept:       true,
			SyntaxErrors: doc.SyntaxErrors,
		}
		if doc.Accept != nil {
			c.Accept = *doc.Accept
		}
		if strings.TrimSpace(doc.Tree) != "" {
			c.Output, err = ParseTree(strings.NewReader(doc.Tree))
			if err != nil {
				return nil, fmt.Errorf("case #%v: %w", i, err)
			}
		}
		cases = append(cases, c)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases found")
	}
	return cases, nil
}

const treeGrammarSrc = `
name: tree
terminals:
  - name: ws
    pattern: "[\\u{0009}\\u{000A}\\u{000D}\\u{0020}]+"
    skip: true
  - name: l_paren
    literal: "("
  - name: r_paren
    literal: ")"
  - name: identifier
    pattern: "[A-Za-z_][0-9A-Za-z_]*"
  - name: string
    pattern: '"[^"]*"'
rules:
  - lhs: root
    rhs: tree
  - lhs: tree
    rhs: l_paren identifier r_paren
  - lhs: tree
    rhs: l_paren identifier string r_paren
  - lhs: tree
    rhs: l_paren identifier trees r_paren
  - lhs: trees
    rhs: trees tree
  - lhs: trees
    rhs: tree
`

var (
	treeGrammar     *gspec.CompiledGrammar
	treeGrammarErr  error
	treeGrammarOnce sync.Once
)

func loadTreeGrammar() (*gspec.CompiledGrammar, error) {
	treeGrammarOnce.Do(func() {
		def, err := gspec.ParseDefinition(strings.NewReader(treeGrammarSrc))
		if err != nil {
			treeGrammarErr = err
			return
		}
		b := grammar.GrammarBuilder{
			Def: def,
		}
		gram, err := b.Build()
		if err != nil {
			treeGrammarErr = err
			return
		}
		treeGrammar, _, treeGrammarErr = grammar.Compile(gram)
	})
	return treeGrammar, treeGrammarErr
}

var treeActions = &parser.ActionTable{
	Rules: []parser.RuleFunc{
		// root ::= tree
		func(ctx *parser.Context, rhs []parser.Value) parser.Value {
			return rhs[0]
		},
		// tree ::= l_paren identifier r_paren
		func(ctx *parser.Context, rhs []parser.Value) parser.Value {
			return NewNonTerminalTree(lexeme(rhs[1]))
		},
		// tree ::= l_paren identifier string r_paren
		func(ctx *parser.Context, rhs []parser.Value) parser.Value {
			str := lexeme(rhs[2])
			return NewTerminalNode(lexeme(rhs[1]), str[1:len(str)-1])
		},
		// tree ::= l_paren identifier trees r_paren
		func(ctx *parser.Context, rhs []parser.Value) parser.Value {
			kind := lexeme(rhs[1])
			if kind == "error" {
				ctx.Errorf("an error node cannot take children")
			}
			return NewNonTerminalTree(kind, rhs[2].([]*Tree)...)
		},
		// trees ::= trees tree
		func(ctx *parser.Context, rhs []parser.Value) parser.Value {
			return append(rhs[0].([]*Tree), rhs[1].(*Tree))
		},
		// trees ::= tree
		func(ctx *parser.Context, rhs []parser.Value) parser.Value {
			return []*Tree{rhs[0].(*Tree)}
		},
	},
}

func lexeme(v parser.Value) string {
	return string(v.(parser.VToken).Lexeme())
}

// ParseTree reads a tree written in the tree notation.
func ParseTree(src io.Reader) (*Tree, error) {
	g, err := loadTreeGrammar()
	if err != nil {
		return nil, fmt.Errorf("cannot load the tree grammar: %w", err)
	}
	toks, err := parser.NewTokenStream(g, src)
	if err != nil {
		return nil, err
	}
	p, err := parser.NewParser(g.Syntactic, treeActions, parser.ErrorRecovery(parser.RecoveryNone))
	if err != nil {
		return nil, err
	}
	err = parser.Parse(p, toks)
	if err != nil {
		return nil, err
	}
	if synErrs := p.SyntaxErrors(); len(synErrs) > 0 {
		var b strings.Builder
		for i, synErr := range synErrs {
			if i > 0 {
				b.WriteRune('\n')
			}
			b.WriteString(formatSyntaxError(synErr))
		}
		return nil, errors.New(b.String())
	}
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	t, ok := p.Result().(*Tree)
	if !ok || p.State() != parser.StateAccepted {
		return nil, fmt.Errorf("a tree is incomplete")
	}
	return t.Fill(), nil
}

func formatSyntaxError(synErr *parser.SyntaxError) string {
	var b strings.Builder
	tok, ok := synErr.Value.(parser.VToken)
	if ok {
		row, col := tok.Position()
		fmt.Fprintf(&b, "%v:%v: ", row+1, col+1)
	}
	switch {
	case ok && tok.EOF():
		b.WriteString("unexpected end of input")
	case ok:
		fmt.Fprintf(&b, "unexpected token '%v' (%v)", string(tok.Lexeme()), synErr.Name)
	default:
		fmt.Fprintf(&b, "unexpected token (%v)", synErr.Name)
	}
	if len(synErr.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, ": expected: %v", strings.Join(synErr.ExpectedTerminals, ", "))
	}
	return b.String()
}
