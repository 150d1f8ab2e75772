package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

type NodeType int

const (
	NodeTypeError NodeType = iota
	NodeTypeTerminal
	NodeTypeNonTerminal
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeError:
		return "error"
	case NodeTypeTerminal:
		return "terminal"
	case NodeTypeNonTerminal:
		return "non-terminal"
	}
	return fmt.Sprintf("<node type %d>", int(t))
}

// Node is a node of a concrete syntax tree. Text and the position are set on terminals only, and
// Children on non-terminals only.
type Node struct {
	Type     NodeType
	KindName string
	Text     string
	Row      int
	Col      int
	Children []*Node
}

// nodeJSON is the JSON form of a node. Nil fields are left out, so each node type carries only
// the fields it owns.
type nodeJSON struct {
	Type     NodeType `json:"type"`
	KindName string   `json:"kind_name"`
	Text     *string  `json:"text,omitempty"`
	Row      *int     `json:"row,omitempty"`
	Col      *int     `json:"col,omitempty"`
	Children *[]*Node `json:"children,omitempty"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	v := nodeJSON{
		Type:     n.Type,
		KindName: n.KindName,
	}
	switch n.Type {
	case NodeTypeError:
	case NodeTypeTerminal:
		v.Text = &n.Text
		v.Row = &n.Row
		v.Col = &n.Col
	case NodeTypeNonTerminal:
		children := n.Children
		if children == nil {
			children = []*Node{}
		}
		v.Children = &children
	default:
		return nil, fmt.Errorf("invalid node type: %v", n.Type)
	}
	return json.Marshal(v)
}

// PrintTree writes a tree one node per line, drawing the branches with box-drawing characters.
func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

// printTree writes `node` after `head` and its children indented by `indent`.
func printTree(w io.Writer, node *Node, head string, indent string) {
	if node == nil {
		return
	}

	switch node.Type {
	case NodeTypeError:
		fmt.Fprintf(w, "%v!%v\n", head, node.KindName)
		return
	case NodeTypeTerminal:
		fmt.Fprintf(w, "%v%v %v\n", head, node.KindName, strconv.Quote(node.Text))
		return
	}

	fmt.Fprintf(w, "%v%v\n", head, node.KindName)
	last := len(node.Children) - 1
	for i, child := range node.Children {
		if i == last {
			printTree(w, child, indent+"└─ ", indent+"   ")
		} else {
			printTree(w, child, indent+"├─ ", indent+"│  ")
		}
	}
}

// NewSyntaxTreeActions returns an action table building a concrete syntax tree. Every rule yields a
// *Node, and the parser's result is the root once the input is accepted.
//
// Token values are turned into leaves. A VToken becomes a leaf named after its terminal, a *Node is
// used as it is, and a nil value, which is what the error symbol carries, becomes an error node.
func NewSyntaxTreeActions(tabs *spec.ParsingTables) *ActionTable {
	rules := make([]RuleFunc, tabs.RuleCount())
	for rule := range rules {
		lhs := tabs.SymbolName(tabs.LHSSymbols[rule])
		rules[rule] = func(ctx *Context, rhs []Value) Value {
			children := make([]*Node, len(rhs))
			for i, v := range rhs {
				children[i] = toNode(tabs, v)
			}
			return &Node{
				Type:     NodeTypeNonTerminal,
				KindName: lhs,
				Children: children,
			}
		}
	}
	return &ActionTable{
		Rules: rules,
	}
}

func toNode(tabs *spec.ParsingTables, v Value) *Node {
	switch v := v.(type) {
	case *Node:
		return v
	case VToken:
		row, col := v.Position()
		return &Node{
			Type:     NodeTypeTerminal,
			KindName: tabs.SymbolName(v.TerminalID()),
			Text:     string(v.Lexeme()),
			Row:      row,
			Col:      col,
		}
	case nil:
		return &Node{
			Type:     NodeTypeError,
			KindName: tabs.SymbolName(tabs.ErrorSymbol),
		}
	}
	return &Node{
		Type: NodeTypeTerminal,
		Text: fmt.Sprint(v),
	}
}
