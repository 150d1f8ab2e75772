package test

import (
	"fmt"
	"strings"
	"testing"
)

func TestDiffTree(t *testing.T) {
	tests := []struct {
		t1        *Tree
		t2        *Tree
		different bool
	}{
		{
			t1: NewNonTerminalTree("a"),
			t2: NewNonTerminalTree("a"),
		},
		{
			t1: NewNonTerminalTree("a",
				NewNonTerminalTree("b"),
				NewTerminalNode("c", "c1"),
				NewNonTerminalTree("d"),
			),
			t2: NewNonTerminalTree("a",
				NewNonTerminalTree("b"),
				NewTerminalNode("c", "c1"),
				NewNonTerminalTree("d"),
			),
		},
		{
			t1: NewNonTerminalTree("a",
				NewNonTerminalTree("b",
					NewNonTerminalTree("c"),
				),
			),
			t2: NewNonTerminalTree("a",
				NewNonTerminalTree("_",
					NewNonTerminalTree("c"),
				),
			),
		},
		{
			t1:        NewNonTerminalTree("a"),
			t2:        NewNonTerminalTree("b"),
			different: true,
		},
		{
			t1:        NewTerminalNode("a", "x"),
			t2:        NewTerminalNode("a", "y"),
			different: true,
		},
		{
			t1: NewNonTerminalTree("a",
				NewNonTerminalTree("b"),
			),
			t2:        NewNonTerminalTree("a"),
			different: true,
		},
		{
			t1: NewNonTerminalTree("a"),
			t2: NewNonTerminalTree("a",
				NewNonTerminalTree("b"),
			),
			different: true,
		},
		{
			t1: NewNonTerminalTree("a",
				NewNonTerminalTree("b"),
				NewNonTerminalTree("c"),
			),
			t2: NewNonTerminalTree("a",
				NewNonTerminalTree("b"),
				NewNonTerminalTree("c"),
				NewNonTerminalTree("d"),
			),
			different: true,
		},
		{
			t1: NewNonTerminalTree("a",
				NewNonTerminalTree("b",
					NewNonTerminalTree("c"),
				),
			),
			t2: NewNonTerminalTree("a",
				NewNonTerminalTree("b",
					NewNonTerminalTree("d"),
				),
			),
			different: true,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v", i), func(t *testing.T) {
			// The expected tree is the second one because only an expected tree may contain `_`.
			diffs := DiffTree(tt.t2.Fill(), tt.t1.Fill())
			if tt.different && len(diffs) == 0 {
				t.Fatalf("unexpected result")
			} else if !tt.different && len(diffs) > 0 {
				t.Fatalf("unexpected result: %v", diffs[0].Message)
			}
		})
	}
}

func TestDiffTree_Path(t *testing.T) {
	expected := NewNonTerminalTree("a",
		NewNonTerminalTree("b"),
		NewTerminalNode("c", "x"),
	).Fill()
	actual := NewNonTerminalTree("a",
		NewNonTerminalTree("b"),
		NewTerminalNode("c", "y"),
	).Fill()
	diffs := DiffTree(expected, actual)
	if len(diffs) != 1 {
		t.Fatalf("unexpected diffs: %v", len(diffs))
	}
	if diffs[0].ExpectedPath != "a.[1]c" || diffs[0].ActualPath != "a.[1]c" {
		t.Fatalf("unexpected path; expected: %v, actual: %v", diffs[0].ExpectedPath, diffs[0].ActualPath)
	}
}

func TestParseTree(t *testing.T) {
	tests := []struct {
		caption  string
		src      string
		tree     *Tree
		parseErr bool
	}{
		{
			caption: "a node without children",
			src:     `(foo)`,
			tree:    NewNonTerminalTree("foo"),
		},
		{
			caption: "a terminal node",
			src:     `(id "a")`,
			tree:    NewTerminalNode("id", "a"),
		},
		{
			caption: "nested nodes spanning lines",
			src: `
(expr
    (expr (id "a"))
    (add "+")
    (error))
`,
			tree: NewNonTerminalTree("expr",
				NewNonTerminalTree("expr",
					NewTerminalNode("id", "a"),
				),
				NewTerminalNode("add", "+"),
				NewNonTerminalTree("error"),
			),
		},
		{
			caption: "a lexeme may contain any character but a double quote",
			src:     `(str "( ) 'x'")`,
			tree:    NewTerminalNode("str", "( ) 'x'"),
		},
		{
			caption:  "an empty input",
			src:      ``,
			parseErr: true,
		},
		{
			caption:  "an unclosed node",
			src:      `(foo (bar)`,
			parseErr: true,
		},
		{
			caption:  "a node without a kind",
			src:      `("a")`,
			parseErr: true,
		},
		{
			caption:  "an invalid character",
			src:      `(foo ?)`,
			parseErr: true,
		},
		{
			caption:  "an error node cannot take children",
			src:      `(error (foo))`,
			parseErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			tree, err := ParseTree(strings.NewReader(tt.src))
			if tt.parseErr {
				if err == nil {
					t.Fatalf("an expected error didn't occur")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diffs := DiffTree(tt.tree.Fill(), tree); len(diffs) > 0 {
				t.Fatalf("unexpected tree: %v\n%v", diffs[0].Message, string(tree.Format()))
			}
		})
	}
}

func TestParseTestCases(t *testing.T) {
	src := `
description: an addition
source: a + b
tree: |
  (expr
      (expr (id "a"))
      (add "+")
      (expr (id "b")))
---
description: a missing operand
source: a +
accept: false
syntax_errors: 1
`
	cases, err := ParseTestCases(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 2 {
		t.Fatalf("unexpected case count: %v", len(cases))
	}

	c := cases[0]
	if c.Description != "an addition" || c.Source != "a + b" || !c.Accept || c.SyntaxErrors != 0 {
		t.Fatalf("unexpected case: %+v", c)
	}
	want := NewNonTerminalTree("expr",
		NewNonTerminalTree("expr", NewTerminalNode("id", "a")),
		NewTerminalNode("add", "+"),
		NewNonTerminalTree("expr", NewTerminalNode("id", "b")),
	).Fill()
	if c.Output == nil {
		t.Fatal("a tree must be parsed")
	}
	if diffs := DiffTree(want, c.Output); len(diffs) > 0 {
		t.Fatalf("unexpected tree: %v", diffs[0].Message)
	}

	c = cases[1]
	if c.Source != "a +" || c.Accept || c.SyntaxErrors != 1 || c.Output != nil {
		t.Fatalf("unexpected case: %+v", c)
	}
}

func TestParseTestCases_Error(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{
			caption: "an empty stream",
			src:     ``,
		},
		{
			caption: "an unknown field",
			src: `
source: a
output: (a)
`,
		},
		{
			caption: "a broken tree",
			src: `
source: a
tree: (a
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := ParseTestCases(strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("an expected error didn't occur")
			}
		})
	}
}
