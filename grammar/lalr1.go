package grammar

import (
	"fmt"
)

type stateAndLRItem struct {
	kernelID kernelID
	itemID   lrItemID
}

type propagation struct {
	src  *stateAndLRItem
	dest []*stateAndLRItem
}

type lalr1Automaton struct {
	*lr0Automaton
}

// genLALR1Automaton computes look-ahead symbols of the LR(0) automaton by spontaneous generation
// and propagation.
func genLALR1Automaton(lr0 *lr0Automaton, prods *productionSet, first *firstSet) (*lalr1Automaton, error) {
	// [S' → ・S, $]
	iniState := lr0.states[lr0.initialState]
	iniState.items[0].lookAhead.symbols = map[symbol]struct{}{
		symbolEOF: {},
	}

	var props []*propagation
	for _, state := range lr0.statesByNum() {
		for _, kItem := range state.items {
			kItem.lookAhead.propagation = true

			items, err := genLALR1Closure(kItem, prods, first)
			if err != nil {
				return nil, err
			}

			var propDests []*stateAndLRItem
			for _, item := range items {
				if item.reducible {
					p, ok := prods.findByID(item.prod)
					if !ok {
						return nil, fmt.Errorf("production not found: %v", item.prod)
					}
					if !p.isEmpty() {
						continue
					}

					reducibleItem := state.findEmptyProdItem(item.id)
					if reducibleItem == nil {
						return nil, fmt.Errorf("reducible item not found: %v", item.id)
					}
					reducibleItem.addLookAhead(item.lookAhead.symbols)
					if !item.lookAhead.propagation {
						continue
					}

					propDests = append(propDests, &stateAndLRItem{
						kernelID: state.id,
						itemID:   item.id,
					})
					continue
				}

				nextKID := state.next[item.dottedSymbol]
				var nextItemID lrItemID
				{
					p, ok := prods.findByID(item.prod)
					if !ok {
						return nil, fmt.Errorf("production not found: %v", item.prod)
					}
					it, err := newLR0Item(p, item.dot+1)
					if err != nil {
						return nil, fmt.Errorf("failed to generate an item ID: %v", err)
					}
					nextItemID = it.id
				}

				if item.lookAhead.propagation {
					propDests = append(propDests, &stateAndLRItem{
						kernelID: nextKID,
						itemID:   nextItemID,
					})
					continue
				}

				nextItem := lr0.states[nextKID].findKernelItem(nextItemID)
				if nextItem == nil {
					return nil, fmt.Errorf("item not found: %v", nextItemID)
				}
				nextItem.addLookAhead(item.lookAhead.symbols)
			}
			if len(propDests) == 0 {
				continue
			}

			props = append(props, &propagation{
				src: &stateAndLRItem{
					kernelID: state.id,
					itemID:   kItem.id,
				},
				dest: propDests,
			})
		}
	}

	err := propagateLookAhead(lr0, props)
	if err != nil {
		return nil, fmt.Errorf("failed to propagate look-ahead symbols: %v", err)
	}

	return &lalr1Automaton{
		lr0Automaton: lr0,
	}, nil
}

func (s *lrState) findKernelItem(id lrItemID) *lrItem {
	for _, item := range s.items {
		if item.id == id {
			return item
		}
	}
	return nil
}

func (s *lrState) findEmptyProdItem(id lrItemID) *lrItem {
	for _, item := range s.emptyProdItems {
		if item.id == id {
			return item
		}
	}
	return nil
}

// addLookAhead merges `syms` into the look-ahead symbols and reports whether they grew.
func (item *lrItem) addLookAhead(syms map[symbol]struct{}) bool {
	changed := false
	for a := range syms {
		if _, ok := item.lookAhead.symbols[a]; ok {
			continue
		}
		if item.lookAhead.symbols == nil {
			item.lookAhead.symbols = map[symbol]struct{}{}
		}
		item.lookAhead.symbols[a] = struct{}{}
		changed = true
	}
	return changed
}

func genLALR1Closure(srcItem *lrItem, prods *productionSet, first *firstSet) ([]*lrItem, error) {
	items := []*lrItem{}
	knownItems := map[lrItemID]map[symbol]struct{}{}
	knownItemsProp := map[lrItemID]struct{}{}
	uncheckedItems := []*lrItem{}
	items = append(items, srcItem)
	uncheckedItems = append(uncheckedItems, srcItem)
	for len(uncheckedItems) > 0 {
		nextUncheckedItems := []*lrItem{}
		for _, item := range uncheckedItems {
			if !item.dottedSymbol.isNonTerminal() {
				continue
			}

			p, ok := prods.findByID(item.prod)
			if !ok {
				return nil, fmt.Errorf("production not found: %v", item.prod)
			}

			fst, err := first.find(p, item.dot+1)
			if err != nil {
				return nil, err
			}

			lookAhead := make([]symbol, 0, len(fst.symbols)+len(item.lookAhead.symbols))
			for s := range fst.symbols {
				lookAhead = append(lookAhead, s)
			}
			if fst.empty {
				for a := range item.lookAhead.symbols {
					lookAhead = append(lookAhead, a)
				}
			}

			ps, _ := prods.findByLHS(item.dottedSymbol)
			for _, prod := range ps {
				for _, a := range lookAhead {
					newItem, err := newLR0Item(prod, 0)
					if err != nil {
						return nil, err
					}
					if known, exist := knownItems[newItem.id]; exist {
						if _, exist := known[a]; exist {
							continue
						}
					}

					newItem.lookAhead.symbols = map[symbol]struct{}{
						a: {},
					}

					items = append(items, newItem)
					if knownItems[newItem.id] == nil {
						knownItems[newItem.id] = map[symbol]struct{}{}
					}
					knownItems[newItem.id][a] = struct{}{}
					nextUncheckedItems = append(nextUncheckedItems, newItem)
				}

				if fst.empty && item.lookAhead.propagation {
					newItem, err := newLR0Item(prod, 0)
					if err != nil {
						return nil, err
					}
					if _, exist := knownItemsProp[newItem.id]; exist {
						continue
					}

					newItem.lookAhead.propagation = true

					items = append(items, newItem)
					knownItemsProp[newItem.id] = struct{}{}
					nextUncheckedItems = append(nextUncheckedItems, newItem)
				}
			}
		}
		uncheckedItems = nextUncheckedItems
	}

	return items, nil
}

func propagateLookAhead(lr0 *lr0Automaton, props []*propagation) error {
	for {
		changed := false
		for _, prop := range props {
			srcState, ok := lr0.states[prop.src.kernelID]
			if !ok {
				return fmt.Errorf("source state not found: %v", prop.src.kernelID)
			}
			srcItem := srcState.findKernelItem(prop.src.itemID)
			if srcItem == nil {
				return fmt.Errorf("source item not found: %v", prop.src.itemID)
			}

			for _, dest := range prop.dest {
				destState, ok := lr0.states[dest.kernelID]
				if !ok {
					return fmt.Errorf("destination state not found: %v", dest.kernelID)
				}
				destItem := destState.findKernelItem(dest.itemID)
				if destItem == nil {
					destItem = destState.findEmptyProdItem(dest.itemID)
				}
				if destItem == nil {
					return fmt.Errorf("destination item not found: %v", dest.itemID)
				}

				if destItem.addLookAhead(srcItem.lookAhead.symbols) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	return nil
}
