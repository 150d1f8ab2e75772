package parser

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const fallbackGrammar = `
name: fallback
terminals:
  - name: kw_key
    literal: key
  - name: id
    pattern: "[a-z]+"
fallback:
  - to: id
    from: [kw_key]
rules:
  - lhs: s
    rhs: id
  - lhs: s
    rhs: kw_key id
`

const wildcardGrammar = `
name: wildcard
wildcard: any
terminals:
  - name: begin
    literal: begin
  - name: end
    literal: end
  - name: x
    literal: x
  - name: any
rules:
  - lhs: s
    rhs: begin any end
  - lhs: s
    rhs: x
`

func TestParser_Fallback(t *testing.T) {
	cg := compileGrammar(t, fallbackGrammar)
	tabs := cg.Syntactic

	tests := []struct {
		input     []string
		events    []string
		state     ParserState
		synErrors int
	}{
		{
			input: []string{"id", "$"},
			state: StateAccepted,
		},
		{
			input: []string{"kw_key", "id", "$"},
			state: StateAccepted,
		},
		{
			input:  []string{"kw_key", "kw_key", "$"},
			events: []string{"kw_key => id"},
			state:  StateAccepted,
		},
		{
			input:     []string{"kw_key", "$"},
			state:     StateFailed,
			synErrors: 1,
		},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.input), func(t *testing.T) {
			var events []string
			p, err := NewParser(tabs, nil, Observer(func(ev Event) {
				if ev.Kind == EventFallback {
					events = append(events, fmt.Sprintf("%v => %v", tabs.SymbolName(ev.Symbol), tabs.SymbolName(ev.Substitute)))
				}
			}))
			if err != nil {
				t.Fatal(err)
			}
			feedAll(t, p, terminals(t, tabs, tt.input...))

			if diff := cmp.Diff(tt.events, events); diff != "" {
				t.Errorf("unexpected fallback (-want +got):\n%v", diff)
			}
			if p.State() != tt.state {
				t.Errorf("unexpected state; want: %v, got: %v", tt.state, p.State())
			}
			if len(p.SyntaxErrors()) != tt.synErrors {
				t.Errorf("unexpected syntax error count; want: %v, got: %v", tt.synErrors, len(p.SyntaxErrors()))
			}
		})
	}
}

func TestParser_Wildcard(t *testing.T) {
	cg := compileGrammar(t, wildcardGrammar)
	tabs := cg.Syntactic

	tests := []struct {
		input    []string
		events   []string
		state    ParserState
		expected [][]string
	}{
		{
			input: []string{"x", "$"},
			state: StateAccepted,
		},
		{
			input: []string{"begin", "any", "end", "$"},
			state: StateAccepted,
		},
		{
			input:  []string{"begin", "x", "end", "$"},
			events: []string{"x => any"},
			state:  StateAccepted,
		},
		{
			input:  []string{"begin", "begin", "end", "$"},
			events: []string{"begin => any"},
			state:  StateAccepted,
		},
		{
			input: []string{"begin", "$"},
			state: StateFailed,
			expected: [][]string{
				{"any"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.input), func(t *testing.T) {
			var events []string
			p, err := NewParser(tabs, nil, Observer(func(ev Event) {
				if ev.Kind == EventWildcard {
					events = append(events, fmt.Sprintf("%v => %v", tabs.SymbolName(ev.Symbol), tabs.SymbolName(ev.Substitute)))
				}
			}))
			if err != nil {
				t.Fatal(err)
			}
			feedAll(t, p, terminals(t, tabs, tt.input...))

			if diff := cmp.Diff(tt.events, events); diff != "" {
				t.Errorf("unexpected wildcard matches (-want +got):\n%v", diff)
			}
			if p.State() != tt.state {
				t.Errorf("unexpected state; want: %v, got: %v", tt.state, p.State())
			}
			var expected [][]string
			for _, e := range p.SyntaxErrors() {
				expected = append(expected, e.ExpectedTerminals)
			}
			if diff := cmp.Diff(tt.expected, expected); diff != "" {
				t.Errorf("unexpected expected terminals (-want +got):\n%v", diff)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cg := compileGrammar(t, abGrammar)
	b := cg.Syntactic.Bounds

	tests := []struct {
		act     int
		kind    ActionKind
		operand int
	}{
		{act: 0, kind: ActionShift, operand: 0},
		{act: b.MinShiftReduce, kind: ActionShiftReduce, operand: 0},
		{act: b.ShiftReduce(1), kind: ActionShiftReduce, operand: 1},
		{act: b.MinReduce, kind: ActionReduce, operand: 0},
		{act: b.Reduce(2), kind: ActionReduce, operand: 2},
		{act: b.ErrorAction, kind: ActionError},
		{act: b.AcceptAction, kind: ActionAccept},
		{act: b.NoAction, kind: ActionNone},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.act), func(t *testing.T) {
			kind, operand := classify(b, tt.act)
			if kind != tt.kind {
				t.Fatalf("unexpected kind; want: %v, got: %v", tt.kind, kind)
			}
			if (kind == ActionShift || kind == ActionShiftReduce || kind == ActionReduce) && operand != tt.operand {
				t.Fatalf("unexpected operand; want: %v, got: %v", tt.operand, operand)
			}
		})
	}
}
