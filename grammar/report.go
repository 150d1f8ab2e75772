package grammar

import (
	"fmt"
	"sort"

	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

// genReport describes the emitted tables. Symbols, rules, and states are numbered the same way as
// in the compressed table set. Auto-reduce states fused into shift-reduce actions are listed
// separately in FusedStates and numbered in their own sequence.
func (p *tablePacker) genReport(gram *Grammar, conflicts []conflict) (*spec.Report, error) {
	var terms []*spec.Terminal
	{
		termSyms := p.symTab.terminalSymbols()
		terms = make([]*spec.Terminal, len(termSyms))
		for i, sym := range termSyms {
			name, ok := p.symTab.toText(sym)
			if !ok {
				return nil, fmt.Errorf("failed to generate terminals: symbol not found: %v", sym)
			}

			term := &spec.Terminal{
				Number:     p.symTab.code(sym),
				Name:       name,
				Pattern:    gram.patterns[sym],
				Precedence: gram.precAndAssoc.terminalPrecedence(sym.num()),
			}
			if _, ok := gram.skipSyms[sym]; ok {
				term.Skip = true
			}
			if to, ok := gram.fallback[sym]; ok {
				term.Fallback = p.symTab.code(to)
			}
			switch gram.precAndAssoc.terminalAssociativity(sym.num()) {
			case assocTypeLeft:
				term.Associativity = "l"
			case assocTypeRight:
				term.Associativity = "r"
			case assocTypeNonAssoc:
				term.Associativity = "n"
			}

			terms[i] = term
		}
	}

	var nonTerms []*spec.NonTerminal
	{
		nonTermSyms := p.symTab.nonTerminalSymbols()
		nonTerms = make([]*spec.NonTerminal, len(nonTermSyms))
		for i, sym := range nonTermSyms {
			name, ok := p.symTab.toText(sym)
			if !ok {
				return nil, fmt.Errorf("failed to generate non-terminals: symbol not found: %v", sym)
			}

			nonTerms[i] = &spec.NonTerminal{
				Number: p.symTab.code(sym),
				Name:   name,
			}
		}
	}

	var prods []*spec.Production
	{
		prods = make([]*spec.Production, p.prods.ruleCount())
		for _, prod := range p.prods.getAllProductions() {
			if prod.num == productionNumStart {
				continue
			}

			rhs := make([]int, len(prod.rhs))
			for i, e := range prod.rhs {
				rhs[i] = p.symTab.code(e)
			}

			rp := &spec.Production{
				Number:     prod.num.rule(),
				LHS:        p.symTab.code(prod.lhs),
				RHS:        rhs,
				Precedence: gram.precAndAssoc.productionPredence(prod.num),
			}
			switch gram.precAndAssoc.productionAssociativity(prod.num) {
			case assocTypeLeft:
				rp.Associativity = "l"
			case assocTypeRight:
				rp.Associativity = "r"
			case assocTypeNonAssoc:
				rp.Associativity = "n"
			}

			prods[rp.Number] = rp
		}
	}

	srConflicts := map[stateNum][]*shiftReduceConflict{}
	rrConflicts := map[stateNum][]*reduceReduceConflict{}
	for _, con := range conflicts {
		switch c := con.(type) {
		case *shiftReduceConflict:
			srConflicts[c.state] = append(srConflicts[c.state], c)
		case *reduceReduceConflict:
			rrConflicts[c.state] = append(rrConflicts[c.state], c)
		}
	}

	lrStates := p.automaton.statesByNum()
	states := make([]*spec.State, len(p.oldNum))
	for newNum, oldNum := range p.oldNum {
		state, err := p.reportState(lrStates[oldNum], newNum, srConflicts[oldNum], rrConflicts[oldNum])
		if err != nil {
			return nil, err
		}
		states[newNum] = state
	}

	// Fused states have no row in the tables, but their conflicts still need reporting.
	var fused []*spec.State
	for s := 0; s < p.tab.stateCount; s++ {
		oldNum := stateNum(s)
		if p.newNum[s] >= 0 || oldNum == p.tab.acceptState {
			continue
		}
		state, err := p.reportState(lrStates[oldNum], len(fused), srConflicts[oldNum], rrConflicts[oldNum])
		if err != nil {
			return nil, err
		}
		state.Fused = true
		fused = append(fused, state)
	}

	return &spec.Report{
		Name:         gram.name,
		Wildcard:     p.reportSymbol(p.wildcard),
		ErrorSymbol:  p.reportSymbol(p.errSym),
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		States:       states,
		FusedStates:  fused,
	}, nil
}

func (p *tablePacker) reportState(s *lrState, number int, srConflicts []*shiftReduceConflict, rrConflicts []*reduceReduceConflict) (*spec.State, error) {
	oldNum := s.num

	var kernel []*spec.Item
	for _, item := range s.items {
		prod, ok := p.prods.findByID(item.prod)
		if !ok {
			return nil, fmt.Errorf("failed to generate states: production of kernel item not found: %v", item.prod)
		}
		if prod.num == productionNumStart {
			continue
		}
		kernel = append(kernel, &spec.Item{
			Production: prod.num.rule(),
			Dot:        item.dot,
		})
	}
	sort.Slice(kernel, func(i, j int) bool {
		if kernel[i].Production != kernel[j].Production {
			return kernel[i].Production < kernel[j].Production
		}
		return kernel[i].Dot < kernel[j].Dot
	})

	var shift []*spec.Transition
	var reduce []*spec.Reduce
	var goTo []*spec.Transition
	{
		reduceByRule := map[int]*spec.Reduce{}
		for _, t := range p.symTab.terminalSymbols() {
			act := p.tab.readAction(oldNum.Int(), t.num().Int())
			if act.isEmpty() || act == actionEntryError {
				continue
			}
			ty, next, prod := act.describe()
			switch ty {
			case ActionTypeShift:
				shift = append(shift, p.reportTransition(t, next))
			case ActionTypeReduce:
				r, ok := reduceByRule[prod.rule()]
				if !ok {
					r = &spec.Reduce{
						Production: prod.rule(),
					}
					reduceByRule[prod.rule()] = r
					reduce = append(reduce, r)
				}
				r.LookAhead = append(r.LookAhead, p.symTab.code(t))
			}
		}

		for _, n := range p.symTab.nonTerminalSymbols() {
			ty, next := p.tab.getGoTo(oldNum, n.num())
			if ty != GoToTypeRegistered {
				continue
			}
			goTo = append(goTo, p.reportTransition(n, next))
		}

		sort.Slice(reduce, func(i, j int) bool {
			return reduce[i].Production < reduce[j].Production
		})
	}

	sr := []*spec.SRConflict{}
	for _, c := range srConflicts {
		conflict := &spec.SRConflict{
			Symbol:     p.symTab.code(c.sym),
			State:      p.newNum[c.nextState],
			Production: c.prodNum.rule(),
			ResolvedBy: c.resolvedBy.Int(),
		}
		if p.newNum[c.nextState] < 0 {
			n := p.tab.defaultReductions[c.nextState].rule()
			conflict.ShiftReduce = &n
		}

		act := p.tab.readAction(oldNum.Int(), c.sym.num().Int())
		if act != actionEntryError {
			ty, next, prod := act.describe()
			switch ty {
			case ActionTypeShift:
				if p.newNum[next] < 0 {
					n := p.tab.defaultReductions[next].rule()
					conflict.AdoptedShiftReduce = &n
				} else {
					n := p.newNum[next]
					conflict.AdoptedState = &n
				}
			case ActionTypeReduce:
				n := prod.rule()
				conflict.AdoptedProduction = &n
			}
		}

		sr = append(sr, conflict)
	}
	sort.SliceStable(sr, func(i, j int) bool {
		return sr[i].Symbol < sr[j].Symbol
	})

	rr := []*spec.RRConflict{}
	for _, c := range rrConflicts {
		_, _, adopted := p.tab.getAction(oldNum, c.sym.num())
		rr = append(rr, &spec.RRConflict{
			Symbol:            p.symTab.code(c.sym),
			Production1:       c.prodNum1.rule(),
			Production2:       c.prodNum2.rule(),
			AdoptedProduction: adopted.rule(),
			ResolvedBy:        c.resolvedBy.Int(),
		})
	}
	sort.SliceStable(rr, func(i, j int) bool {
		return rr[i].Symbol < rr[j].Symbol
	})

	state := &spec.State{
		Number:     number,
		Kernel:     kernel,
		Shift:      shift,
		Reduce:     reduce,
		GoTo:       goTo,
		SRConflict: sr,
		RRConflict: rr,
		AutoReduce: p.tab.autoReduce[oldNum],
	}
	if dflt := p.tab.defaultReductions[oldNum]; dflt != productionNumNil {
		n := dflt.rule()
		state.DefaultReduction = &n
	}
	return state, nil
}

func (p *tablePacker) reportSymbol(sym symbol) int {
	if sym.isNil() {
		return spec.SymbolNone
	}
	return p.symTab.code(sym)
}

func (p *tablePacker) reportTransition(sym symbol, target stateNum) *spec.Transition {
	tr := &spec.Transition{
		Symbol: p.symTab.code(sym),
		State:  p.newNum[target],
	}
	switch {
	case target == p.tab.acceptState:
		tr.Accept = true
	case p.newNum[target] < 0:
		n := p.tab.defaultReductions[target].rule()
		tr.ShiftReduce = &n
	}
	return tr
}
