package grammar

import (
	"fmt"
	"sort"
)

type ActionType string

const (
	ActionTypeShift  = ActionType("shift")
	ActionTypeReduce = ActionType("reduce")
	ActionTypeError  = ActionType("error")
)

type actionEntry int

const actionEntryEmpty = actionEntry(0)

// actionEntryError is an explicit error written when a non-associative operator meets itself.
// It reuses the number of the augmented production, which is never reduced.
const actionEntryError = actionEntry(productionNumStart)

func newShiftActionEntry(state stateNum) actionEntry {
	return actionEntry(state * -1)
}

func newReduceActionEntry(prod productionNum) actionEntry {
	return actionEntry(prod)
}

func (e actionEntry) isEmpty() bool {
	return e == actionEntryEmpty
}

func (e actionEntry) describe() (ActionType, stateNum, productionNum) {
	if e == actionEntryEmpty || e == actionEntryError {
		return ActionTypeError, stateNumInitial, productionNumNil
	}
	if e < 0 {
		return ActionTypeShift, stateNum(e * -1), productionNumNil
	}
	return ActionTypeReduce, stateNumInitial, productionNum(e)
}

type GoToType string

const (
	GoToTypeRegistered = GoToType("registered")
	GoToTypeError      = GoToType("error")
)

type goToEntry uint

const goToEntryEmpty = goToEntry(0)

func newGoToEntry(state stateNum) goToEntry {
	return goToEntry(state)
}

func (e goToEntry) describe() (GoToType, stateNum) {
	if e == goToEntryEmpty {
		return GoToTypeError, stateNumInitial
	}
	return GoToTypeRegistered, stateNum(e)
}

type conflictResolutionMethod int

func (m conflictResolutionMethod) Int() int {
	return int(m)
}

const (
	ResolvedByPrec      conflictResolutionMethod = 1
	ResolvedByAssoc     conflictResolutionMethod = 2
	ResolvedByShift     conflictResolutionMethod = 3
	ResolvedByProdOrder conflictResolutionMethod = 4
)

type conflict interface {
	conflict()
}

type shiftReduceConflict struct {
	state      stateNum
	sym        symbol
	nextState  stateNum
	prodNum    productionNum
	resolvedBy conflictResolutionMethod
}

func (c *shiftReduceConflict) conflict() {
}

type reduceReduceConflict struct {
	state      stateNum
	sym        symbol
	prodNum1   productionNum
	prodNum2   productionNum
	resolvedBy conflictResolutionMethod
}

func (c *reduceReduceConflict) conflict() {
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

// ParsingTable is the uncompressed LALR(1) table. Rows are states, and columns are symbol numbers.
type ParsingTable struct {
	actionTable      []actionEntry
	goToTable        []goToEntry
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	// defaultReductions[state] is the production reduced on any terminal lacking an explicit entry,
	// or productionNumNil when such terminals are errors.
	defaultReductions []productionNum

	// autoReduce[state] is true when the default reduction is the only thing the state does. A
	// shift into such a state can be fused with the reduction.
	autoReduce []bool

	InitialState stateNum

	// acceptState is the state reached from the initial state on the start symbol. It holds only
	// S' → S・, and a goto into it means acceptance.
	acceptState stateNum
}

func (t *ParsingTable) getAction(state stateNum, sym symbolNum) (ActionType, stateNum, productionNum) {
	return t.readAction(state.Int(), sym.Int()).describe()
}

func (t *ParsingTable) getGoTo(state stateNum, sym symbolNum) (GoToType, stateNum) {
	pos := state.Int()*t.nonTerminalCount + sym.Int()
	return t.goToTable[pos].describe()
}

func (t *ParsingTable) readAction(row int, col int) actionEntry {
	return t.actionTable[row*t.terminalCount+col]
}

func (t *ParsingTable) writeAction(row int, col int, act actionEntry) {
	t.actionTable[row*t.terminalCount+col] = act
}

func (t *ParsingTable) writeGoTo(state stateNum, sym symbol, nextState stateNum) {
	pos := state.Int()*t.nonTerminalCount + sym.num().Int()
	t.goToTable[pos] = newGoToEntry(nextState)
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	symTab       *symbolTable
	precAndAssoc *precAndAssoc
	startSym     symbol
	wildcard     symbol

	conflicts []conflict
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	states := b.automaton.statesByNum()

	var ptab *ParsingTable
	{
		termCount := b.symTab.termNum.Int()
		nonTermCount := b.symTab.nonTermNum.Int()
		initialState := b.automaton.states[b.automaton.initialState]
		acceptKID, ok := initialState.next[b.startSym]
		if !ok {
			return nil, fmt.Errorf("the initial state has no transition on the start symbol")
		}
		ptab = &ParsingTable{
			actionTable:       make([]actionEntry, len(states)*termCount),
			goToTable:         make([]goToEntry, len(states)*nonTermCount),
			stateCount:        len(states),
			terminalCount:     termCount,
			nonTerminalCount:  nonTermCount,
			defaultReductions: make([]productionNum, len(states)),
			autoReduce:        make([]bool, len(states)),
			InitialState:      initialState.num,
			acceptState:       b.automaton.states[acceptKID].num,
		}
	}

	for _, state := range states {
		nextSyms := make([]symbol, 0, len(state.next))
		for sym := range state.next {
			nextSyms = append(nextSyms, sym)
		}
		sort.Slice(nextSyms, func(i, j int) bool {
			return nextSyms[i] < nextSyms[j]
		})
		for _, sym := range nextSyms {
			nextState := b.automaton.states[state.next[sym]]
			if sym.isTerminal() {
				b.writeShiftAction(ptab, state.num, sym, nextState.num)
			} else {
				ptab.writeGoTo(state.num, sym, nextState.num)
			}
		}

		var reducibleProds []*production
		for prodID := range state.reducible {
			prod, ok := b.prods.findByID(prodID)
			if !ok {
				return nil, fmt.Errorf("reducible production not found: %v", prodID)
			}
			// The augmented production is never reduced. A goto into the accept state replaces it.
			if prod.num == productionNumStart {
				continue
			}
			reducibleProds = append(reducibleProds, prod)
		}
		sort.Slice(reducibleProds, func(i, j int) bool {
			return reducibleProds[i].num < reducibleProds[j].num
		})

		for _, reducibleProd := range reducibleProds {
			reducibleItem := state.findReducibleItem(reducibleProd.id)
			if reducibleItem == nil {
				return nil, fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, reducibleProd.num)
			}

			lookAhead := make([]symbol, 0, len(reducibleItem.lookAhead.symbols))
			for a := range reducibleItem.lookAhead.symbols {
				lookAhead = append(lookAhead, a)
			}
			sort.Slice(lookAhead, func(i, j int) bool {
				return lookAhead[i].num() < lookAhead[j].num()
			})
			for _, a := range lookAhead {
				b.writeReduceAction(ptab, state.num, a, reducibleProd.num)
			}
		}
	}

	b.genDefaultReductions(ptab)

	return ptab, nil
}

func (s *lrState) findReducibleItem(prod productionID) *lrItem {
	for _, item := range s.items {
		if item.prod == prod && item.reducible {
			return item
		}
	}
	for _, item := range s.emptyProdItems {
		if item.prod == prod {
			return item
		}
	}
	return nil
}

// writeShiftAction writes a shift action to the parsing table. A shift/reduce conflict is resolved
// by precedence and associativity, and the shift wins when they can't decide.
func (b *lrTableBuilder) writeShiftAction(tab *ParsingTable, state stateNum, sym symbol, nextState stateNum) {
	act := tab.readAction(state.Int(), sym.num().Int())
	if !act.isEmpty() {
		ty, _, p := act.describe()
		if ty == ActionTypeReduce {
			act, method := b.resolveSRConflict(sym.num(), p)
			b.conflicts = append(b.conflicts, &shiftReduceConflict{
				state:      state,
				sym:        sym,
				nextState:  nextState,
				prodNum:    p,
				resolvedBy: method,
			})
			switch act {
			case ActionTypeShift:
				tab.writeAction(state.Int(), sym.num().Int(), newShiftActionEntry(nextState))
			case ActionTypeError:
				tab.writeAction(state.Int(), sym.num().Int(), actionEntryError)
			}
			return
		}
	}
	tab.writeAction(state.Int(), sym.num().Int(), newShiftActionEntry(nextState))
}

// writeReduceAction writes a reduce action to the parsing table. A reduce/reduce conflict is
// resolved in favour of the production defined earlier in the grammar.
func (b *lrTableBuilder) writeReduceAction(tab *ParsingTable, state stateNum, sym symbol, prod productionNum) {
	act := tab.readAction(state.Int(), sym.num().Int())
	if act.isEmpty() {
		tab.writeAction(state.Int(), sym.num().Int(), newReduceActionEntry(prod))
		return
	}
	if act == actionEntryError {
		return
	}

	ty, s, p := act.describe()
	switch ty {
	case ActionTypeReduce:
		if p == prod {
			return
		}

		b.conflicts = append(b.conflicts, &reduceReduceConflict{
			state:      state,
			sym:        sym,
			prodNum1:   p,
			prodNum2:   prod,
			resolvedBy: ResolvedByProdOrder,
		})
		if p < prod {
			tab.writeAction(state.Int(), sym.num().Int(), newReduceActionEntry(p))
		} else {
			tab.writeAction(state.Int(), sym.num().Int(), newReduceActionEntry(prod))
		}
	case ActionTypeShift:
		act, method := b.resolveSRConflict(sym.num(), prod)
		b.conflicts = append(b.conflicts, &shiftReduceConflict{
			state:      state,
			sym:        sym,
			nextState:  s,
			prodNum:    prod,
			resolvedBy: method,
		})
		switch act {
		case ActionTypeReduce:
			tab.writeAction(state.Int(), sym.num().Int(), newReduceActionEntry(prod))
		case ActionTypeError:
			tab.writeAction(state.Int(), sym.num().Int(), actionEntryError)
		}
	}
}

// resolveSRConflict decides between a shift on `sym` and a reduction by `prod`. A lower precedence
// value binds tighter. On a tie, the associativity of `sym` decides.
func (b *lrTableBuilder) resolveSRConflict(sym symbolNum, prod productionNum) (ActionType, conflictResolutionMethod) {
	symPrec := b.precAndAssoc.terminalPrecedence(sym)
	prodPrec := b.precAndAssoc.productionPredence(prod)
	if symPrec == precNil || prodPrec == precNil {
		return ActionTypeShift, ResolvedByShift
	}
	if symPrec == prodPrec {
		switch b.precAndAssoc.terminalAssociativity(sym) {
		case assocTypeLeft:
			return ActionTypeReduce, ResolvedByAssoc
		case assocTypeNonAssoc:
			return ActionTypeError, ResolvedByAssoc
		default:
			return ActionTypeShift, ResolvedByAssoc
		}
	}
	if symPrec < prodPrec {
		return ActionTypeShift, ResolvedByPrec
	}
	return ActionTypeReduce, ResolvedByPrec
}

// genDefaultReductions picks, for each state, the production reduced on the most terminals as the
// default action. Productions of the start symbol are never chosen, so an input can't be accepted
// by a default reduction. A state that can shift the wildcard has no default reduction because
// the wildcard already stands in for every terminal lacking an entry.
func (b *lrTableBuilder) genDefaultReductions(tab *ParsingTable) {
	for state := 0; state < tab.stateCount; state++ {
		counts := map[productionNum]int{}
		usesWildcard := false
		hasOther := false
		for col := symbolEOF.num().Int(); col < tab.terminalCount; col++ {
			act := tab.readAction(state, col)
			if act.isEmpty() {
				continue
			}
			ty, _, p := act.describe()
			switch ty {
			case ActionTypeShift:
				hasOther = true
				if !b.wildcard.isNil() && col == b.wildcard.num().Int() {
					usesWildcard = true
				}
			case ActionTypeReduce:
				prod, _ := b.prods.findByNum(p)
				if prod.lhs == b.startSym {
					hasOther = true
					continue
				}
				counts[p]++
			case ActionTypeError:
				hasOther = true
			}
		}
		if usesWildcard || len(counts) == 0 {
			continue
		}

		best := productionNumNil
		for p, n := range counts {
			if best == productionNumNil || n > counts[best] || (n == counts[best] && p < best) {
				best = p
			}
		}
		tab.defaultReductions[state] = best

		if hasOther || len(counts) > 1 || stateNum(state) == tab.InitialState {
			continue
		}
		hasGoTo := false
		for col := 0; col < tab.nonTerminalCount; col++ {
			if ty, _ := tab.getGoTo(stateNum(state), symbolNum(col)); ty == GoToTypeRegistered {
				hasGoTo = true
				break
			}
		}
		if prod, _ := b.prods.findByNum(best); !hasGoTo && prod.rhsLen > 0 {
			tab.autoReduce[state] = true
		}
	}
}
