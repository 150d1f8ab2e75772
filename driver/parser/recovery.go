package parser

import (
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

// recover handles a token the current state has no action for and reports whether the token has
// been consumed. `errorHit` is shared by the iterations of a single Feed call.
func (p *Parser) recover(major int, minor Value, errorHit *bool) bool {
	switch p.policy {
	case RecoveryErrorSymbol:
		return p.recoverByErrorSymbol(major, minor, errorHit)
	case RecoveryDiscard:
		if p.errCnt <= 0 {
			p.reportSyntaxError(major, minor)
		}
		p.errCnt = p.window
		p.discard(major, minor)
		if major == spec.SymbolEOF {
			p.fail()
		}
		return true
	}

	p.reportSyntaxError(major, minor)
	p.discard(major, minor)
	if major == spec.SymbolEOF {
		p.fail()
	}
	return true
}

// recoverByErrorSymbol pops the stack until the exposed state can shift the error symbol and then
// shifts it. The offending token is retried in the new state. When the error symbol is already on
// the top, or this token has already caused an error, the token is discarded instead.
func (p *Parser) recoverByErrorSymbol(major int, minor Value, errorHit *bool) bool {
	defer func() {
		p.errCnt = p.window
		*errorHit = true
	}()

	if p.errCnt <= 0 && !*errorHit {
		p.reportSyntaxError(major, minor)
	}

	errSym := p.tabs.ErrorSymbol
	if p.stack.top().major == errSym || *errorHit {
		p.discard(major, minor)
		return true
	}

	act := p.tabs.Bounds.ErrorAction
	for p.stack.depth() > 0 {
		act = p.resolver.findReduceAction(p.stack.top().state, errSym)
		if act < p.tabs.Bounds.MinReduce {
			break
		}
		p.popFrame()
	}
	if p.stack.depth() == 0 || major == spec.SymbolEOF {
		p.destroy(major, minor)
		p.fail()
		return true
	}

	kind, operand := classify(p.tabs.Bounds, act)
	if kind == ActionShiftReduce {
		act = p.tabs.Bounds.Reduce(operand)
	}
	p.shift(act, errSym, nil)
	return false
}

func (p *Parser) discard(major int, minor Value) {
	p.emit(Event{
		Kind:   EventDiscard,
		State:  p.stack.top().state,
		Symbol: major,
		Rule:   -1,
		Depth:  p.stack.depth(),
	})
	p.destroy(major, minor)
}

func (p *Parser) reportSyntaxError(major int, minor Value) {
	state := p.stack.top().state
	var expected []string
	for _, term := range p.resolver.expectedTerminals(state) {
		expected = append(expected, p.tabs.SymbolName(term))
	}
	name := p.tabs.SymbolName(major)
	if major == spec.SymbolNone {
		name = "<invalid>"
	}
	err := &SyntaxError{
		Symbol:            major,
		Name:              name,
		Value:             minor,
		State:             state,
		ExpectedTerminals: expected,
	}
	p.synErrs = append(p.synErrs, err)
	p.emit(Event{
		Kind:   EventSyntaxError,
		State:  state,
		Symbol: major,
		Rule:   -1,
		Depth:  p.stack.depth(),
	})
	if p.actions.SyntaxError != nil {
		p.actions.SyntaxError(p.ctx, err)
	}
}
