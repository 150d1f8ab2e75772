package parser

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSyntaxTreeActions(t *testing.T) {
	tests := []struct {
		caption string
		grammar string
		src     string
		tree    string
	}{
		{
			caption: "operators follow their precedence",
			grammar: exprGrammar,
			src:     "1 + 2 * 3",
			tree: `root
└─ expr
   ├─ expr
   │  └─ int "1"
   ├─ add "+"
   └─ expr
      ├─ expr
      │  └─ int "2"
      ├─ mul "*"
      └─ expr
         └─ int "3"
`,
		},
		{
			caption: "the error symbol becomes an error node",
			grammar: listGrammar,
			src:     "xzx",
			tree: `s
└─ list
   ├─ list
   │  ├─ list
   │  │  └─ item
   │  │     └─ x "x"
   │  └─ item
   │     └─ !error
   └─ item
      └─ x "x"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileGrammar(t, tt.grammar)
			p, err := NewParser(cg.Syntactic, NewSyntaxTreeActions(cg.Syntactic))
			if err != nil {
				t.Fatal(err)
			}
			ts, err := NewTokenStream(cg, strings.NewReader(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			err = Parse(p, ts)
			if err != nil {
				t.Fatal(err)
			}
			if p.State() != StateAccepted {
				t.Fatalf("unexpected state: %v", p.State())
			}
			root, ok := p.Result().(*Node)
			if !ok {
				t.Fatalf("the result must be a *Node: %T", p.Result())
			}

			var b strings.Builder
			PrintTree(&b, root)
			if b.String() != tt.tree {
				t.Fatalf("unexpected tree; want:\n%v\ngot:\n%v", tt.tree, b.String())
			}
		})
	}
}

func TestParse_InvalidTokens(t *testing.T) {
	cg := compileGrammar(t, exprGrammar)
	p, err := NewParser(cg.Syntactic, nil)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := NewTokenStream(cg, strings.NewReader("1 + ? 2"))
	if err != nil {
		t.Fatal(err)
	}
	err = Parse(p, ts)
	if err != nil {
		t.Fatal(err)
	}
	if p.State() != StateAccepted {
		t.Fatalf("unexpected state: %v", p.State())
	}
	synErrs := p.SyntaxErrors()
	if len(synErrs) != 1 {
		t.Fatalf("unexpected syntax errors: %v", synErrs)
	}
	if synErrs[0].Name != "<invalid>" {
		t.Fatalf("unexpected name: %v", synErrs[0].Name)
	}
	tok, ok := synErrs[0].Value.(VToken)
	if !ok {
		t.Fatalf("the value of a syntax error must be the token: %T", synErrs[0].Value)
	}
	if string(tok.Lexeme()) != "?" {
		t.Fatalf("unexpected lexeme: %v", string(tok.Lexeme()))
	}
}

func TestNode_MarshalJSON(t *testing.T) {
	root := &Node{
		Type:     NodeTypeNonTerminal,
		KindName: "item",
		Children: []*Node{
			{
				Type:     NodeTypeTerminal,
				KindName: "x",
				Text:     "x",
				Row:      0,
				Col:      2,
			},
			{
				Type:     NodeTypeError,
				KindName: "error",
			},
		},
	}
	b, err := json.Marshal(root)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":2,"kind_name":"item","children":[{"type":1,"kind_name":"x","text":"x","row":0,"col":2},{"type":0,"kind_name":"error"}]}`
	if string(b) != want {
		t.Fatalf("unexpected JSON; want: %v, got: %v", want, string(b))
	}
}

func TestNode_MarshalJSONByType(t *testing.T) {
	tests := []struct {
		caption string
		node    *Node
		json    string
	}{
		{
			caption: "a terminal at the beginning keeps its zero position",
			node: &Node{
				Type:     NodeTypeTerminal,
				KindName: "x",
				Text:     "x",
			},
			json: `{"type":1,"kind_name":"x","text":"x","row":0,"col":0}`,
		},
		{
			caption: "a non-terminal of an empty rule has an empty child list",
			node: &Node{
				Type:     NodeTypeNonTerminal,
				KindName: "s",
			},
			json: `{"type":2,"kind_name":"s","children":[]}`,
		},
		{
			caption: "an error node has no text or position",
			node: &Node{
				Type:     NodeTypeError,
				KindName: "error",
				Text:     "ignored",
				Row:      3,
			},
			json: `{"type":0,"kind_name":"error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			b, err := json.Marshal(tt.node)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.json {
				t.Fatalf("unexpected JSON; want: %v, got: %v", tt.json, string(b))
			}
		})
	}

	_, err := json.Marshal(&Node{Type: NodeType(9)})
	if err == nil {
		t.Fatal("an unknown node type must be rejected")
	}
}

func TestNodeType_String(t *testing.T) {
	for ty, want := range map[NodeType]string{
		NodeTypeError:       "error",
		NodeTypeTerminal:    "terminal",
		NodeTypeNonTerminal: "non-terminal",
	} {
		if ty.String() != want {
			t.Errorf("unexpected name; want: %v, got: %v", want, ty.String())
		}
	}
}
