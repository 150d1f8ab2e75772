package grammar

import (
	"fmt"
	"strings"

	"github.com/FlashSQL/sqlite-more-lite/compressor"
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

// tablePacker turns the uncompressed table into the compressed table set consumed by the parser
// engine. The accept state is never emitted. When shift-reduce fusion is enabled, auto-reduce
// states aren't emitted either because every transition into them becomes a shift-reduce action.
type tablePacker struct {
	automaton   *lr0Automaton
	tab         *ParsingTable
	prods       *productionSet
	symTab      *symbolTable
	startSym    symbol
	errSym      symbol
	wildcard    symbol
	fallback    map[symbol]symbol
	shiftReduce bool

	bounds *spec.ActionBounds

	// newNum maps an LR state to the emitted state, or -1 when the state is not emitted.
	newNum []int
	oldNum []stateNum
}

func (p *tablePacker) emitted(state stateNum) bool {
	if state == p.tab.acceptState {
		return false
	}
	return !p.shiftReduce || !p.tab.autoReduce[state]
}

func (p *tablePacker) pack() (*spec.ParsingTables, error) {
	p.newNum = make([]int, p.tab.stateCount)
	for s := 0; s < p.tab.stateCount; s++ {
		if !p.emitted(stateNum(s)) {
			p.newNum[s] = -1
			continue
		}
		p.newNum[s] = len(p.oldNum)
		p.oldNum = append(p.oldNum, stateNum(s))
	}
	if p.newNum[p.tab.InitialState] != 0 {
		return nil, fmt.Errorf("the initial state must be emitted first")
	}

	ruleCount := p.prods.ruleCount()
	p.bounds = spec.NewActionBounds(len(p.oldNum), ruleCount)

	rdt := compressor.NewRowDisplacementTable(p.bounds.NoAction)
	shiftOffset := make([]int, len(p.oldNum))
	reduceOffset := make([]int, len(p.oldNum))
	defaults := make([]int, len(p.oldNum))
	for i, s := range p.oldNum {
		defaults[i] = p.bounds.ErrorAction
		dflt := p.tab.defaultReductions[s]
		if dflt != productionNumNil {
			defaults[i] = p.bounds.Reduce(dflt.rule())
		}

		shiftRow := p.shiftRow(s, dflt)
		if len(shiftRow) == 0 {
			shiftOffset[i] = spec.OffsetUseDefault
		} else {
			d, err := rdt.Insert(shiftRow)
			if err != nil {
				return nil, fmt.Errorf("failed to pack the shift row of state %v: %w", i, err)
			}
			shiftOffset[i] = d
		}

		reduceRow := p.reduceRow(s)
		if len(reduceRow) == 0 {
			reduceOffset[i] = spec.OffsetUseDefault
		} else {
			d, err := rdt.Insert(reduceRow)
			if err != nil {
				return nil, fmt.Errorf("failed to pack the reduce row of state %v: %w", i, err)
			}
			reduceOffset[i] = d
		}
	}

	lhsSyms := make([]int, ruleCount)
	rhsLens := make([]int, ruleCount)
	ruleTexts := make([]string, ruleCount)
	for _, prod := range p.prods.getAllProductions() {
		if prod.num == productionNumStart {
			continue
		}
		rule := prod.num.rule()
		lhsSyms[rule] = p.symTab.code(prod.lhs)
		rhsLens[rule] = prod.rhsLen
		ruleTexts[rule] = p.ruleText(prod)
	}

	fallback := make([]int, p.symTab.terminalCount())
	for from, to := range p.fallback {
		fallback[p.symTab.code(from)] = p.symTab.code(to)
	}

	errSym := spec.SymbolNone
	if !p.errSym.isNil() {
		errSym = p.symTab.code(p.errSym)
	}
	wildcard := spec.SymbolNone
	if !p.wildcard.isNil() {
		wildcard = p.symTab.code(p.wildcard)
	}

	return &spec.ParsingTables{
		Action:        rdt.Entries,
		Lookahead:     rdt.Check,
		ShiftOffset:   shiftOffset,
		ReduceOffset:  reduceOffset,
		Default:       defaults,
		Bounds:        p.bounds,
		StateCount:    len(p.oldNum),
		InitialState:  p.newNum[p.tab.InitialState],
		LHSSymbols:    lhsSyms,
		RHSLengths:    rhsLens,
		RuleTexts:     ruleTexts,
		Symbols:       p.symTab.symbolNames(),
		TerminalCount: p.symTab.terminalCount(),
		StartSymbol:   p.symTab.code(p.startSym),
		ErrorSymbol:   errSym,
		Wildcard:      wildcard,
		Fallback:      fallback,
	}, nil
}

// transition encodes the action that moves into `target`.
func (p *tablePacker) transition(target stateNum) int {
	if target == p.tab.acceptState {
		return p.bounds.AcceptAction
	}
	if p.newNum[target] < 0 {
		return p.bounds.ShiftReduce(p.tab.defaultReductions[target].rule())
	}
	return p.newNum[target]
}

// shiftRow collects the terminal entries of a state. Reductions by the default production are
// left to the default table.
func (p *tablePacker) shiftRow(state stateNum, dflt productionNum) []compressor.Cell {
	var row []compressor.Cell
	for _, term := range p.symTab.terminalSymbols() {
		act := p.tab.readAction(state.Int(), term.num().Int())
		if act.isEmpty() {
			continue
		}

		var v int
		if act == actionEntryError {
			v = p.bounds.ErrorAction
		} else {
			ty, next, prod := act.describe()
			switch ty {
			case ActionTypeShift:
				v = p.transition(next)
			case ActionTypeReduce:
				if prod == dflt {
					continue
				}
				v = p.bounds.Reduce(prod.rule())
			}
		}
		row = append(row, compressor.Cell{
			Col:   p.symTab.code(term),
			Value: v,
		})
	}
	return row
}

// reduceRow collects the transitions of a state on non-terminals, including the error symbol.
func (p *tablePacker) reduceRow(state stateNum) []compressor.Cell {
	var row []compressor.Cell
	for _, nonTerm := range p.symTab.nonTerminalSymbols() {
		ty, next := p.tab.getGoTo(state, nonTerm.num())
		if ty != GoToTypeRegistered {
			continue
		}
		row = append(row, compressor.Cell{
			Col:   p.symTab.code(nonTerm),
			Value: p.transition(next),
		})
	}
	return row
}

func (p *tablePacker) ruleText(prod *production) string {
	var b strings.Builder
	lhs, _ := p.symTab.toText(prod.lhs)
	fmt.Fprintf(&b, "%v ::=", lhs)
	for _, sym := range prod.rhs {
		text, _ := p.symTab.toText(sym)
		fmt.Fprintf(&b, " %v", text)
	}
	return b.String()
}
