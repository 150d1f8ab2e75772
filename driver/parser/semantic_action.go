package parser

import (
	"fmt"
)

// Value is a semantic value. Which concrete type a value has depends on the symbol it belongs to.
type Value interface{}

// RuleFunc computes the value of the LHS of a rule from the values of its RHS. rhs[0] is the value
// of the leftmost RHS symbol. The function owns the values in rhs and must not retain the slice
// itself.
type RuleFunc func(ctx *Context, rhs []Value) Value

// Destructor releases a value the parser discards without passing it to a RuleFunc.
type Destructor func(ctx *Context, v Value)

// ActionTable holds the callbacks of a parser. Every field is optional.
type ActionTable struct {
	// Rules is indexed by rule number. A rule without a function yields the value of its leftmost RHS
	// symbol, or nil when the RHS is empty, and destroys the values of the other RHS symbols.
	Rules []RuleFunc

	// Destructors is keyed by symbol.
	Destructors map[int]Destructor

	// SyntaxError is called when a syntax error is reported. Whether each error gets reported
	// depends on the recovery policy.
	SyntaxError func(ctx *Context, err *SyntaxError)

	// StackOverflow is called when the stack overflows. The parse fails afterwards.
	StackOverflow func(ctx *Context)

	// ParseFailed is called when error recovery gives up.
	ParseFailed func(ctx *Context)

	// Accept is called with the value of the start symbol when the input is accepted.
	Accept func(ctx *Context, v Value)
}

// Context is passed to every callback. It is owned by a parser and reused across callbacks, so
// callbacks must not retain it.
type Context struct {
	// Rule is the rule being reduced. It is -1 outside RuleFuncs.
	Rule int

	// Extra is the value passed by the Extra option.
	Extra interface{}

	parser *Parser
	errs   []error
}

// Errorf records an error found by a callback, e.g. a violation of a constraint the grammar can't
// express. Recorded errors never affect parsing.
func (c *Context) Errorf(format string, a ...interface{}) {
	c.errs = append(c.errs, fmt.Errorf(format, a...))
}

// Errors returns the errors recorded by Errorf since the parser was reset.
func (c *Context) Errors() []error {
	return c.errs
}

// RuleText returns the text of the rule being reduced.
func (c *Context) RuleText() string {
	if c.Rule < 0 {
		return ""
	}
	return c.parser.tabs.RuleText(c.Rule)
}

// SymbolName returns the name of a symbol.
func (c *Context) SymbolName(sym int) string {
	return c.parser.tabs.SymbolName(sym)
}

// SyntaxError describes an input token the parser has no action for.
type SyntaxError struct {
	// Symbol is the terminal of the offending token.
	Symbol int

	// Name is the name of Symbol.
	Name string

	// Value is the semantic value of the offending token.
	Value Value

	// State is the state the parser was in.
	State int

	// ExpectedTerminals are the names of the terminals the state has explicit entries for.
	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("unexpected token: %v", e.Name)
}

func (p *Parser) callRule(rule int, rhs []frame) Value {
	p.ctx.Rule = rule
	defer func() {
		p.ctx.Rule = -1
	}()

	var f RuleFunc
	if rule < len(p.actions.Rules) {
		f = p.actions.Rules[rule]
	}
	if f != nil {
		values := make([]Value, len(rhs))
		for i, fr := range rhs {
			values[i] = fr.minor
		}
		return f(p.ctx, values)
	}

	if len(rhs) == 0 {
		return nil
	}
	for _, fr := range rhs[1:] {
		p.destroy(fr.major, fr.minor)
	}
	return rhs[0].minor
}

// destroy runs the destructor of `sym` on `v`.
func (p *Parser) destroy(sym int, v Value) {
	d, ok := p.actions.Destructors[sym]
	if !ok || d == nil {
		return
	}
	d(p.ctx, v)
}
