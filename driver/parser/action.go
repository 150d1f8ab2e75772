package parser

import (
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

// ActionKind is the class of an action code.
type ActionKind int

const (
	ActionShift ActionKind = iota
	ActionShiftReduce
	ActionReduce
	ActionError
	ActionAccept
	ActionNone
)

func (k ActionKind) String() string {
	switch k {
	case ActionShift:
		return "shift"
	case ActionShiftReduce:
		return "shift-reduce"
	case ActionReduce:
		return "reduce"
	case ActionError:
		return "error"
	case ActionAccept:
		return "accept"
	}
	return "no-action"
}

// classify splits an action code into its kind and operand. The operand is the next state for a
// shift and the rule number for a shift-reduce or a reduce.
func classify(b *spec.ActionBounds, act int) (ActionKind, int) {
	switch {
	case act <= b.MaxShift:
		return ActionShift, act
	case act <= b.MaxShiftReduce:
		return ActionShiftReduce, act - b.MinShiftReduce
	case act <= b.MaxReduce:
		return ActionReduce, act - b.MinReduce
	case act == b.ErrorAction:
		return ActionError, 0
	case act == b.AcceptAction:
		return ActionAccept, 0
	}
	return ActionNone, 0
}

// actionResolver looks actions up in the compressed tables.
type actionResolver struct {
	tabs *spec.ParsingTables

	// onFallback and onWildcard observe substitutions. They may be nil.
	onFallback func(from, to int)
	onWildcard func(from int)
}

// findShiftAction returns the action of `state` on the terminal `term`.
func (r *actionResolver) findShiftAction(state, term int) int {
	tabs := r.tabs
	if state >= tabs.Bounds.MinReduce {
		return state
	}

	fellBack := false
	for {
		offset := tabs.ShiftOffset[state]
		if offset == spec.OffsetUseDefault {
			return tabs.Default[state]
		}
		i := offset + term
		if i >= 0 && i < len(tabs.Action) && tabs.Lookahead[i] == term {
			return tabs.Action[i]
		}
		if term == spec.SymbolEOF {
			return tabs.Default[state]
		}

		if !fellBack && term < len(tabs.Fallback) && tabs.Fallback[term] != 0 {
			fb := tabs.Fallback[term]
			if r.onFallback != nil {
				r.onFallback(term, fb)
			}
			term = fb
			fellBack = true
			continue
		}

		if tabs.Wildcard != spec.SymbolNone {
			j := i - term + tabs.Wildcard
			if j >= 0 && j < len(tabs.Action) && tabs.Lookahead[j] == tabs.Wildcard {
				if r.onWildcard != nil {
					r.onWildcard(term)
				}
				return tabs.Action[j]
			}
		}
		return tabs.Default[state]
	}
}

// findReduceAction returns the transition of `state` on the non-terminal `sym`. The error symbol
// is looked up here too. A frame waiting for a reduction has no transitions, so such a state yields
// the error action.
func (r *actionResolver) findReduceAction(state, sym int) int {
	tabs := r.tabs
	if state < 0 || state >= tabs.StateCount {
		return tabs.Bounds.ErrorAction
	}
	offset := tabs.ReduceOffset[state]
	if offset == spec.OffsetUseDefault {
		return tabs.Default[state]
	}
	i := offset + sym
	if i < 0 || i >= len(tabs.Action) || tabs.Lookahead[i] != sym {
		return tabs.Default[state]
	}
	return tabs.Action[i]
}

// expectedTerminals returns the terminals that `state` has explicit non-error entries for.
func (r *actionResolver) expectedTerminals(state int) []int {
	tabs := r.tabs
	if state < 0 || state >= tabs.StateCount {
		return nil
	}
	offset := tabs.ShiftOffset[state]
	if offset == spec.OffsetUseDefault {
		return nil
	}
	var terms []int
	for term := 0; term < tabs.TerminalCount; term++ {
		i := offset + term
		if i < 0 || i >= len(tabs.Action) || tabs.Lookahead[i] != term {
			continue
		}
		if tabs.Action[i] == tabs.Bounds.ErrorAction {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}
