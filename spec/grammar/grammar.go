package grammar

import (
	"fmt"
	"math"

	mlspec "github.com/nihei9/maleeni/spec"
)

type CompiledGrammar struct {
	Name      string         `json:"name"`
	Lexical   *LexicalSpec   `json:"lexical,omitempty"`
	Syntactic *ParsingTables `json:"syntactic"`
}

type LexicalSpec struct {
	Maleeni        *mlspec.CompiledLexSpec `json:"maleeni"`
	KindToTerminal []int                   `json:"kind_to_terminal"`
	TerminalToKind []int                   `json:"terminal_to_kind"`
	Skip           []int                   `json:"skip"`
}

// SymbolEOF is the code of the end-of-input terminal. It is the same in every table set.
const SymbolEOF = 0

// SymbolNone represents an absent optional symbol such as the error symbol or the wildcard.
const SymbolNone = -1

// OffsetUseDefault marks a state that has no entries in the shared action table for a kind of
// lookahead. A lookup through such a state always yields the state's default action.
const OffsetUseDefault = math.MinInt32

// ActionBounds partitions the action codes into contiguous ranges:
//
//	[0, MaxShift]                      shift; the code is the next state
//	[MinShiftReduce, MaxShiftReduce]   shift, then reduce by rule (code - MinShiftReduce)
//	[MinReduce, MaxReduce]             reduce by rule (code - MinReduce)
//	ErrorAction                        syntax error
//	AcceptAction                       accept
//	NoAction                           unused slot
type ActionBounds struct {
	MaxShift       int `json:"max_shift"`
	MinShiftReduce int `json:"min_shift_reduce"`
	MaxShiftReduce int `json:"max_shift_reduce"`
	MinReduce      int `json:"min_reduce"`
	MaxReduce      int `json:"max_reduce"`
	ErrorAction    int `json:"error_action"`
	AcceptAction   int `json:"accept_action"`
	NoAction       int `json:"no_action"`
}

// NewActionBounds returns the bounds for a table set having `stateCount` states and `ruleCount` rules.
func NewActionBounds(stateCount, ruleCount int) *ActionBounds {
	return &ActionBounds{
		MaxShift:       stateCount - 1,
		MinShiftReduce: stateCount,
		MaxShiftReduce: stateCount + ruleCount - 1,
		MinReduce:      stateCount + ruleCount,
		MaxReduce:      stateCount + ruleCount*2 - 1,
		ErrorAction:    stateCount + ruleCount*2,
		AcceptAction:   stateCount + ruleCount*2 + 1,
		NoAction:       stateCount + ruleCount*2 + 2,
	}
}

func (b *ActionBounds) ShiftReduce(rule int) int {
	return b.MinShiftReduce + rule
}

func (b *ActionBounds) Reduce(rule int) int {
	return b.MinReduce + rule
}

// ParsingTables is the static, immutable table set consumed by the parser engine.
//
// The symbol code space is shared by all symbols: 0 is the end-of-input terminal, terminals are
// numbered 1 to TerminalCount-1, the error symbol (when present) follows the terminals, and the
// non-terminals come last. Transitions on the error symbol are stored in the reduce rows, just like
// transitions on non-terminals.
type ParsingTables struct {
	Action       []int         `json:"action"`
	Lookahead    []int         `json:"lookahead"`
	ShiftOffset  []int         `json:"shift_offset"`
	ReduceOffset []int         `json:"reduce_offset"`
	Default      []int         `json:"default"`
	Bounds       *ActionBounds `json:"bounds"`
	StateCount   int           `json:"state_count"`
	InitialState int           `json:"initial_state"`

	LHSSymbols []int    `json:"lhs_symbols"`
	RHSLengths []int    `json:"rhs_lengths"`
	RuleTexts  []string `json:"rule_texts"`

	Symbols       []string `json:"symbols"`
	TerminalCount int      `json:"terminal_count"`
	StartSymbol   int      `json:"start_symbol"`
	ErrorSymbol   int      `json:"error_symbol"`
	Wildcard      int      `json:"wildcard"`

	// Fallback maps a terminal to the terminal substituted for it when the former has no entry.
	// 0 means no fallback. A fallback target never has a fallback of its own.
	Fallback []int `json:"fallback"`
}

func (t *ParsingTables) RuleCount() int {
	return len(t.LHSSymbols)
}

func (t *ParsingTables) IsTerminal(sym int) bool {
	return sym >= 0 && sym < t.TerminalCount
}

func (t *ParsingTables) SymbolName(sym int) string {
	if sym < 0 || sym >= len(t.Symbols) {
		return fmt.Sprintf("<%v>", sym)
	}
	return t.Symbols[sym]
}

func (t *ParsingTables) RuleText(rule int) string {
	if rule < 0 || rule >= len(t.RuleTexts) {
		return fmt.Sprintf("rule %v", rule)
	}
	return t.RuleTexts[rule]
}

// Validate checks the structural invariants the engine relies on. Tables that fail the check must
// not be given to the engine.
func (t *ParsingTables) Validate() error {
	if t.Bounds == nil {
		return fmt.Errorf("action bounds are missing")
	}
	if t.StateCount <= 0 {
		return fmt.Errorf("a table set needs at least one state; state count: %v", t.StateCount)
	}
	if t.InitialState < 0 || t.InitialState >= t.StateCount {
		return fmt.Errorf("initial state is out of range: %v", t.InitialState)
	}
	if len(t.LHSSymbols) == 0 {
		return fmt.Errorf("a table set needs at least one rule")
	}
	if len(t.LHSSymbols) != len(t.RHSLengths) {
		return fmt.Errorf("rule table lengths mismatch; lhs: %v, rhs: %v", len(t.LHSSymbols), len(t.RHSLengths))
	}
	want := NewActionBounds(t.StateCount, len(t.LHSSymbols))
	if *t.Bounds != *want {
		return fmt.Errorf("action bounds don't match the state count and the rule count; want: %+v, got: %+v", *want, *t.Bounds)
	}
	if len(t.Action) != len(t.Lookahead) {
		return fmt.Errorf("action table and lookahead table lengths mismatch; action: %v, lookahead: %v", len(t.Action), len(t.Lookahead))
	}
	for _, tab := range []struct {
		name string
		len  int
	}{
		{name: "shift offset", len: len(t.ShiftOffset)},
		{name: "reduce offset", len: len(t.ReduceOffset)},
		{name: "default", len: len(t.Default)},
	} {
		if tab.len != t.StateCount {
			return fmt.Errorf("%v table must have an entry per state; want: %v, got: %v", tab.name, t.StateCount, tab.len)
		}
	}
	if t.TerminalCount < 1 || t.TerminalCount > len(t.Symbols) {
		return fmt.Errorf("terminal count is out of range: %v", t.TerminalCount)
	}
	for i, act := range t.Action {
		if act < 0 || act > t.Bounds.NoAction {
			return fmt.Errorf("invalid action code; index: %v, code: %v", i, act)
		}
	}
	for i, la := range t.Lookahead {
		if la < -1 || la >= len(t.Symbols) {
			return fmt.Errorf("invalid lookahead code; index: %v, code: %v", i, la)
		}
	}
	for state, act := range t.Default {
		if act < 0 || act > t.Bounds.NoAction {
			return fmt.Errorf("invalid default action; state: %v, code: %v", state, act)
		}
	}
	for rule, lhs := range t.LHSSymbols {
		if lhs < t.TerminalCount || lhs >= len(t.Symbols) || lhs == t.ErrorSymbol {
			return fmt.Errorf("LHS of a rule must be a non-terminal; rule: %v, symbol: %v", rule, lhs)
		}
		if t.RHSLengths[rule] < 0 {
			return fmt.Errorf("RHS length must be >= 0; rule: %v, length: %v", rule, t.RHSLengths[rule])
		}
	}
	if t.StartSymbol < t.TerminalCount || t.StartSymbol >= len(t.Symbols) {
		return fmt.Errorf("start symbol must be a non-terminal: %v", t.StartSymbol)
	}
	if t.ErrorSymbol != SymbolNone && (t.ErrorSymbol < t.TerminalCount || t.ErrorSymbol >= len(t.Symbols)) {
		return fmt.Errorf("error symbol must follow the terminals: %v", t.ErrorSymbol)
	}
	if t.Wildcard != SymbolNone && (t.Wildcard <= SymbolEOF || t.Wildcard >= t.TerminalCount) {
		return fmt.Errorf("wildcard must be a terminal other than the end-of-input: %v", t.Wildcard)
	}
	return t.validateFallback()
}

// validateFallback enforces that each fallback chain ends after one substitution. The engine
// substitutes at most once per lookup, so a longer chain or a cycle can't be honoured.
func (t *ParsingTables) validateFallback() error {
	if len(t.Fallback) > t.TerminalCount {
		return fmt.Errorf("fallback table is longer than the terminal count; length: %v", len(t.Fallback))
	}
	for term, fb := range t.Fallback {
		if fb == 0 {
			continue
		}
		if term == SymbolEOF {
			return fmt.Errorf("the end-of-input symbol cannot fall back")
		}
		if fb < 0 || fb >= t.TerminalCount {
			return fmt.Errorf("fallback of %v must be a terminal: %v", t.SymbolName(term), fb)
		}
		if fb == term {
			return fmt.Errorf("%v falls back to itself", t.SymbolName(term))
		}
		if fb < len(t.Fallback) && t.Fallback[fb] != 0 {
			return fmt.Errorf("fallback chain must end after one hop: %v => %v => %v", t.SymbolName(term), t.SymbolName(fb), t.SymbolName(t.Fallback[fb]))
		}
	}
	return nil
}
