package grammar

import (
	"fmt"
	"strings"
	"testing"

	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

func compileForTest(t *testing.T, src string, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report) {
	t.Helper()

	gram := buildGrammar(t, src)
	cg, report, err := Compile(gram, append(opts, EnableReporting())...)
	if err != nil {
		t.Fatal(err)
	}
	if report == nil {
		t.Fatal("a report must be generated")
	}
	return cg, report
}

// describeSRConflicts describes each shift/reduce conflict as `<rule>/<lookahead>: <adopted action> by <method>`.
func describeSRConflicts(tabs *spec.ParsingTables, report *spec.Report) map[string]string {
	descs := map[string]string{}
	for _, state := range report.AllStates() {
		for _, c := range state.SRConflict {
			var adopted string
			switch {
			case c.AdoptedState != nil || c.AdoptedShiftReduce != nil:
				adopted = "shift"
			case c.AdoptedProduction != nil:
				adopted = "reduce"
			default:
				adopted = "error"
			}
			descs[fmt.Sprintf("%v/%v", tabs.RuleText(c.Production), tabs.SymbolName(c.Symbol))] = fmt.Sprintf("%v by %v", adopted, c.ResolvedBy)
		}
	}
	return descs
}

func TestCompile_ShiftReduceConflicts(t *testing.T) {
	tests := []struct {
		caption   string
		src       string
		conflicts map[string]string
	}{
		{
			caption: "a tighter operator and left associativity decide",
			src: `
name: test
terminals:
  - name: add
    literal: "+"
  - name: mul
    literal: "*"
  - name: id
    pattern: "[a-z]+"
precedence:
  - left: [mul]
  - left: [add]
rules:
  - lhs: root
    rhs: expr
  - lhs: expr
    rhs: expr add expr
  - lhs: expr
    rhs: expr mul expr
  - lhs: expr
    rhs: id
`,
			conflicts: map[string]string{
				"expr ::= expr add expr/add": fmt.Sprintf("reduce by %v", ResolvedByAssoc),
				"expr ::= expr add expr/mul": fmt.Sprintf("shift by %v", ResolvedByPrec),
				"expr ::= expr mul expr/add": fmt.Sprintf("reduce by %v", ResolvedByPrec),
				"expr ::= expr mul expr/mul": fmt.Sprintf("reduce by %v", ResolvedByAssoc),
			},
		},
		{
			caption: "right associativity shifts",
			src: `
name: test
terminals:
  - name: pow
    literal: "^"
  - name: id
    pattern: "[a-z]+"
precedence:
  - right: [pow]
rules:
  - lhs: root
    rhs: expr
  - lhs: expr
    rhs: expr pow expr
  - lhs: expr
    rhs: id
`,
			conflicts: map[string]string{
				"expr ::= expr pow expr/pow": fmt.Sprintf("shift by %v", ResolvedByAssoc),
			},
		},
		{
			caption: "non-associativity makes an explicit error",
			src: `
name: test
terminals:
  - name: eq
    literal: "="
  - name: id
    pattern: "[a-z]+"
precedence:
  - nonassoc: [eq]
rules:
  - lhs: root
    rhs: expr
  - lhs: expr
    rhs: expr eq expr
  - lhs: expr
    rhs: id
`,
			conflicts: map[string]string{
				"expr ::= expr eq expr/eq": fmt.Sprintf("error by %v", ResolvedByAssoc),
			},
		},
		{
			caption: "a shift wins without precedence",
			src: `
name: test
terminals:
  - name: if
    literal: if
  - name: else
    literal: else
  - name: cond
    literal: cond
  - name: other
    literal: other
rules:
  - lhs: root
    rhs: stmt
  - lhs: stmt
    rhs: if cond stmt
  - lhs: stmt
    rhs: if cond stmt else stmt
  - lhs: stmt
    rhs: other
`,
			conflicts: map[string]string{
				"stmt ::= if cond stmt/else": fmt.Sprintf("shift by %v", ResolvedByShift),
			},
		},
		{
			caption: "a prec field gives the precedence of another terminal",
			src: `
name: test
terminals:
  - name: sub
    literal: "-"
  - name: mul
    literal: "*"
  - name: id
    pattern: "[a-z]+"
  - name: neg
precedence:
  - nonassoc: [neg]
  - left: [mul]
  - left: [sub]
rules:
  - lhs: root
    rhs: expr
  - lhs: expr
    rhs: expr sub expr
  - lhs: expr
    rhs: expr mul expr
  - lhs: expr
    rhs: sub expr
    prec: neg
  - lhs: expr
    rhs: id
`,
			conflicts: map[string]string{
				"expr ::= expr sub expr/sub": fmt.Sprintf("reduce by %v", ResolvedByAssoc),
				"expr ::= expr sub expr/mul": fmt.Sprintf("shift by %v", ResolvedByPrec),
				"expr ::= expr mul expr/sub": fmt.Sprintf("reduce by %v", ResolvedByPrec),
				"expr ::= expr mul expr/mul": fmt.Sprintf("reduce by %v", ResolvedByAssoc),
				"expr ::= sub expr/sub":       fmt.Sprintf("reduce by %v", ResolvedByPrec),
				"expr ::= sub expr/mul":       fmt.Sprintf("reduce by %v", ResolvedByPrec),
			},
		},
	}
	for _, tt := range tests {
		for _, fusion := range []bool{true, false} {
			t.Run(fmt.Sprintf("%v (shift-reduce fusion: %v)", tt.caption, fusion), func(t *testing.T) {
				var opts []CompileOption
				if !fusion {
					opts = append(opts, DisableShiftReduce())
				}
				cg, report := compileForTest(t, tt.src, opts...)
				conflicts := describeSRConflicts(cg.Syntactic, report)
				if len(conflicts) != len(tt.conflicts) {
					t.Fatalf("unexpected conflicts; want: %v, got: %v", tt.conflicts, conflicts)
				}
				for k, want := range tt.conflicts {
					if conflicts[k] != want {
						t.Errorf("unexpected resolution of %v; want: %v, got: %v", k, want, conflicts[k])
					}
				}
				for _, state := range report.AllStates() {
					for _, c := range state.SRConflict {
						if c.State < 0 && c.ShiftReduce == nil {
							t.Errorf("a conflict shifting into a fused state must carry its rule: %+v", c)
						}
						if c.State >= cg.Syntactic.StateCount {
							t.Errorf("a conflict refers to a state that isn't emitted: %+v", c)
						}
					}
				}
			})
		}
	}
}

func TestCompile_ReduceReduceConflict(t *testing.T) {
	src := `
name: test
terminals:
  - name: x
    literal: x
rules:
  - lhs: s
    rhs: a
  - lhs: s
    rhs: b
  - lhs: a
    rhs: x
  - lhs: b
    rhs: x
`
	for _, fusion := range []bool{true, false} {
		t.Run(fmt.Sprintf("shift-reduce fusion: %v", fusion), func(t *testing.T) {
			var opts []CompileOption
			if !fusion {
				opts = append(opts, DisableShiftReduce())
			}
			cg, report := compileForTest(t, src, opts...)
			tabs := cg.Syntactic

			var rr []*spec.RRConflict
			for _, state := range report.AllStates() {
				rr = append(rr, state.RRConflict...)
			}
			if len(rr) != 1 {
				t.Fatalf("unexpected reduce/reduce conflicts: %v", len(rr))
			}
			c := rr[0]
			if tabs.SymbolName(c.Symbol) != "$" {
				t.Errorf("unexpected symbol: %v", tabs.SymbolName(c.Symbol))
			}
			if tabs.RuleText(c.AdoptedProduction) != "a ::= x" {
				t.Errorf("the rule defined first must be adopted; got: %v", tabs.RuleText(c.AdoptedProduction))
			}
			if c.ResolvedBy != ResolvedByProdOrder.Int() {
				t.Errorf("unexpected resolution: %v", c.ResolvedBy)
			}
		})
	}
}

const abSrc = `
name: ab
terminals:
  - name: a
    literal: a
  - name: b
    literal: b
rules:
  - lhs: S
    rhs: A B
  - lhs: A
    rhs: a
  - lhs: B
    rhs: b
`

func TestCompile_DefaultReductions(t *testing.T) {
	t.Run("shifts into auto-reduce states are fused", func(t *testing.T) {
		cg, report := compileForTest(t, abSrc)
		tabs := cg.Syntactic

		// The initial state, `S → A・B`, and `S → A B・` remain.
		if tabs.StateCount != 3 || len(report.States) != 3 {
			t.Fatalf("unexpected state count; tables: %v, report: %v", tabs.StateCount, len(report.States))
		}

		initial := report.States[tabs.InitialState]
		var shiftA *spec.Transition
		for _, tr := range initial.Shift {
			if tabs.SymbolName(tr.Symbol) == "a" {
				shiftA = tr
			}
		}
		if shiftA == nil || shiftA.ShiftReduce == nil {
			t.Fatalf("the shift on a must be fused with a reduction: %+v", shiftA)
		}
		if tabs.RuleText(*shiftA.ShiftReduce) != "A ::= a" {
			t.Fatalf("unexpected rule: %v", tabs.RuleText(*shiftA.ShiftReduce))
		}

		var accepts int
		for _, tr := range initial.GoTo {
			if tr.Accept {
				accepts++
				if tabs.SymbolName(tr.Symbol) != "S" {
					t.Errorf("only the start symbol accepts: %v", tabs.SymbolName(tr.Symbol))
				}
			}
		}
		if accepts != 1 {
			t.Fatalf("the initial state must have one accepting goto; got: %v", accepts)
		}

		for _, state := range report.States {
			if state.AutoReduce {
				t.Errorf("an auto-reduce state must not be emitted: %v", state.Number)
			}
		}

		var fused []string
		for _, state := range report.FusedStates {
			if !state.Fused || !state.AutoReduce || state.DefaultReduction == nil {
				t.Fatalf("unexpected fused state: %+v", state)
			}
			fused = append(fused, tabs.RuleText(*state.DefaultReduction))
		}
		if strings.Join(fused, ", ") != "A ::= a, B ::= b" {
			t.Fatalf("unexpected fused states: %v", fused)
		}
	})

	t.Run("start rules are never default reductions", func(t *testing.T) {
		cg, report := compileForTest(t, abSrc)
		tabs := cg.Syntactic

		for _, state := range report.States {
			for _, r := range state.Reduce {
				if tabs.RuleText(r.Production) != "S ::= A B" {
					continue
				}
				if state.DefaultReduction != nil {
					t.Fatalf("a state reducing the start rule must not have a default reduction; got: %v", tabs.RuleText(*state.DefaultReduction))
				}
				if len(r.LookAhead) != 1 || r.LookAhead[0] != spec.SymbolEOF {
					t.Fatalf("the start rule must be reduced explicitly on the end of the input: %v", r.LookAhead)
				}
				if tabs.Default[state.Number] != tabs.Bounds.ErrorAction {
					t.Fatalf("unexpected default action: %v", tabs.Default[state.Number])
				}
				return
			}
		}
		t.Fatal("no state reduces the start rule")
	})

	t.Run("auto-reduce states remain without fusion", func(t *testing.T) {
		cg, report := compileForTest(t, abSrc, DisableShiftReduce())
		tabs := cg.Syntactic

		if tabs.StateCount != 5 {
			t.Fatalf("unexpected state count: %v", tabs.StateCount)
		}
		if len(report.FusedStates) != 0 {
			t.Fatalf("no state is fused: %v", len(report.FusedStates))
		}
		var autoReduce []string
		for _, state := range report.States {
			if !state.AutoReduce {
				continue
			}
			if state.DefaultReduction == nil {
				t.Fatalf("an auto-reduce state needs a default reduction: %v", state.Number)
			}
			if tabs.ShiftOffset[state.Number] != spec.OffsetUseDefault {
				t.Errorf("an auto-reduce state has no shift entries: %v", state.Number)
			}
			autoReduce = append(autoReduce, tabs.RuleText(*state.DefaultReduction))
		}
		if strings.Join(autoReduce, ", ") != "A ::= a, B ::= b" {
			t.Fatalf("unexpected auto-reduce states: %v", autoReduce)
		}
	})
}

func TestCompile_Tables(t *testing.T) {
	src := `
name: test
error: error
wildcard: any
terminals:
  - name: kw_select
    literal: select
  - name: id
    pattern: "[a-z]+"
  - name: semicolon
    literal: ";"
  - name: any
  - name: ws
    pattern: "[\\u{0009}\\u{0020}]+"
    skip: true
fallback:
  - to: id
    from: [kw_select]
rules:
  - lhs: stmts
    rhs: stmts_body
  - lhs: stmts_body
    rhs: stmts_body stmt
  - lhs: stmts_body
    rhs: stmt
  - lhs: stmt
    rhs: kw_select id semicolon
  - lhs: stmt
    rhs: id any semicolon
  - lhs: stmt
    rhs: error semicolon
`
	cg, _ := compileForTest(t, src)
	tabs := cg.Syntactic

	if err := tabs.Validate(); err != nil {
		t.Fatal(err)
	}
	if tabs.TerminalCount != 6 {
		t.Fatalf("unexpected terminal count: %v", tabs.TerminalCount)
	}
	if tabs.ErrorSymbol != tabs.TerminalCount || tabs.SymbolName(tabs.ErrorSymbol) != "error" {
		t.Fatalf("the error symbol must follow the terminals: %v", tabs.ErrorSymbol)
	}
	if tabs.SymbolName(tabs.Wildcard) != "any" {
		t.Fatalf("unexpected wildcard: %v", tabs.SymbolName(tabs.Wildcard))
	}
	wantSymbols := []string{"$", "kw_select", "id", "semicolon", "any", "ws", "error", "stmts", "stmts_body", "stmt"}
	if strings.Join(tabs.Symbols, " ") != strings.Join(wantSymbols, " ") {
		t.Fatalf("unexpected symbols; want: %v, got: %v", wantSymbols, tabs.Symbols)
	}
	if tabs.RuleCount() != 6 {
		t.Fatalf("unexpected rule count: %v", tabs.RuleCount())
	}
	wantArity := []int{1, 2, 1, 3, 3, 2}
	for rule, n := range wantArity {
		if tabs.RHSLengths[rule] != n {
			t.Errorf("unexpected arity of %v: %v", tabs.RuleText(rule), tabs.RHSLengths[rule])
		}
	}
	if tabs.SymbolName(tabs.LHSSymbols[5]) != "stmt" {
		t.Errorf("unexpected LHS: %v", tabs.SymbolName(tabs.LHSSymbols[5]))
	}
	if tabs.SymbolName(tabs.Fallback[1]) != "id" {
		t.Errorf("kw_select must fall back to id: %v", tabs.Fallback)
	}
	for term, fb := range tabs.Fallback {
		if term != 1 && fb != 0 {
			t.Errorf("unexpected fallback: %v => %v", tabs.SymbolName(term), tabs.SymbolName(fb))
		}
	}

	lex := cg.Lexical
	if lex == nil {
		t.Fatal("a lexical specification must be generated")
	}
	for kind, term := range lex.KindToTerminal {
		if term == spec.SymbolNone {
			continue
		}
		if lex.TerminalToKind[term] != kind {
			t.Errorf("kinds and terminals must correspond one-to-one; kind: %v, terminal: %v", kind, term)
		}
		if tabs.SymbolName(term) == "ws" && lex.Skip[kind] == 0 {
			t.Errorf("ws must be skipped")
		}
	}
}
