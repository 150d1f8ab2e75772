package grammar

import (
	"fmt"
)

type firstEntry struct {
	symbols map[symbol]struct{}
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[symbol]struct{}{},
		empty:   false,
	}
}

func (e *firstEntry) add(sym symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *firstEntry) addEmpty() bool {
	if !e.empty {
		e.empty = true
		return true
	}
	return false
}

func (e *firstEntry) mergeExceptEmpty(target *firstEntry) bool {
	if target == nil {
		return false
	}
	changed := false
	for sym := range target.symbols {
		added := e.add(sym)
		if added {
			changed = true
		}
	}
	return changed
}

type firstSet struct {
	set map[symbol]*firstEntry
}

// newFirstSet makes an empty entry for every LHS. The error symbol has no productions, so it
// gets an entry that stays empty and non-nullable: it never appears in an input.
func newFirstSet(prods *productionSet, errSym symbol) *firstSet {
	fst := &firstSet{
		set: map[symbol]*firstEntry{},
	}
	for _, prod := range prods.getAllProductions() {
		if _, ok := fst.set[prod.lhs]; ok {
			continue
		}
		fst.set[prod.lhs] = newFirstEntry()
	}
	if !errSym.isNil() {
		fst.set[errSym] = newFirstEntry()
	}

	return fst
}

// find returns FIRST of the RHS of `prod` from position `head`.
func (fst *firstSet) find(prod *production, head int) (*firstEntry, error) {
	entry := newFirstEntry()
	if prod.rhsLen <= head {
		entry.addEmpty()
		return entry, nil
	}
	for _, sym := range prod.rhs[head:] {
		if sym.isTerminal() {
			entry.add(sym)
			return entry, nil
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return nil, fmt.Errorf("an entry of FIRST was not found; symbol: %s", sym)
		}
		for s := range e.symbols {
			entry.add(s)
		}
		if !e.empty {
			return entry, nil
		}
	}
	entry.addEmpty()
	return entry, nil
}

func (fst *firstSet) findBySymbol(sym symbol) *firstEntry {
	return fst.set[sym]
}

func genFirstSet(prods *productionSet, errSym symbol) (*firstSet, error) {
	first := newFirstSet(prods, errSym)
	for {
		more := false
		for _, prod := range prods.getAllProductions() {
			e := first.findBySymbol(prod.lhs)
			changed, err := genProdFirstEntry(first, e, prod)
			if err != nil {
				return nil, err
			}
			if changed {
				more = true
			}
		}
		if !more {
			break
		}
	}
	return first, nil
}

func genProdFirstEntry(first *firstSet, acc *firstEntry, prod *production) (bool, error) {
	if prod.isEmpty() {
		return acc.addEmpty(), nil
	}

	changed := false
	for _, sym := range prod.rhs {
		if sym.isTerminal() {
			return acc.add(sym) || changed, nil
		}

		e := first.findBySymbol(sym)
		if e == nil {
			return false, fmt.Errorf("an entry of FIRST was not found; symbol: %s", sym)
		}
		if acc.mergeExceptEmpty(e) {
			changed = true
		}
		if !e.empty {
			return changed, nil
		}
	}
	return acc.addEmpty() || changed, nil
}
