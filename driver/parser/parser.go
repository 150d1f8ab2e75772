package parser

import (
	"errors"
	"fmt"
	"io"

	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
)

var (
	ErrParseFinished  = errors.New("the parse has already finished; reset the parser to start a new one")
	ErrParserClosed   = errors.New("the parser is closed")
	ErrInvalidSymbol  = errors.New("invalid terminal symbol")
	ErrCorruptedTable = errors.New("parsing tables are corrupted")
)

type ParserState int

const (
	StateIdle ParserState = iota
	StateShifting
	StateReducing
	StateErrorRecovering
	StateAccepted
	StateFailed
)

func (s ParserState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShifting:
		return "shifting"
	case StateReducing:
		return "reducing"
	case StateErrorRecovering:
		return "error-recovering"
	case StateAccepted:
		return "accepted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("<%d>", int(s))
}

// RecoveryPolicy decides what a parser does on a syntax error.
type RecoveryPolicy int

const (
	// RecoveryNone reports every syntax error and discards the offending token. The stack is left as
	// it is. A syntax error on the end of the input fails the parse.
	RecoveryNone RecoveryPolicy = iota

	// RecoveryErrorSymbol pops the stack until a state can shift the error symbol and shifts it. The
	// grammar must have an error symbol.
	RecoveryErrorSymbol

	// RecoveryDiscard discards the offending token. An error at the end of the input fails the parse.
	RecoveryDiscard
)

func (p RecoveryPolicy) String() string {
	switch p {
	case RecoveryNone:
		return "none"
	case RecoveryErrorSymbol:
		return "error-symbol"
	case RecoveryDiscard:
		return "discard"
	}
	return fmt.Sprintf("<%d>", int(p))
}

// ParseRecoveryPolicy converts a name returned by RecoveryPolicy.String into a policy.
func ParseRecoveryPolicy(s string) (RecoveryPolicy, error) {
	for _, p := range []RecoveryPolicy{RecoveryNone, RecoveryErrorSymbol, RecoveryDiscard} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown recovery policy: %v", s)
}

// DefaultSuppressionWindow is the number of tokens that must be shifted after a syntax error
// before the next syntax error gets reported.
const DefaultSuppressionWindow = 3

type ParserOption func(p *Parser) error

// StackDepth fixes the maximum number of frames, including the bottom frame holding the initial
// state. Pushing a frame beyond the limit overflows the stack. 0 means the stack grows without limit.
func StackDepth(depth int) ParserOption {
	return func(p *Parser) error {
		if depth < 0 {
			return fmt.Errorf("stack depth must be >= 0: %v", depth)
		}
		p.maxDepth = depth
		return nil
	}
}

// ErrorRecovery selects a recovery policy. Without this option, a parser uses RecoveryErrorSymbol
// when the grammar has an error symbol and RecoveryDiscard otherwise.
func ErrorRecovery(policy RecoveryPolicy) ParserOption {
	return func(p *Parser) error {
		switch policy {
		case RecoveryNone, RecoveryDiscard:
		case RecoveryErrorSymbol:
			if p.tabs.ErrorSymbol == spec.SymbolNone {
				return fmt.Errorf("the grammar has no error symbol")
			}
		default:
			return fmt.Errorf("unknown recovery policy: %v", policy)
		}
		p.policy = policy
		return nil
	}
}

// SuppressionWindow sets the number of tokens that must be shifted after a syntax error before the
// next syntax error gets reported. RecoveryNone ignores it.
func SuppressionWindow(n int) ParserOption {
	return func(p *Parser) error {
		if n < 0 {
			return fmt.Errorf("suppression window must be >= 0: %v", n)
		}
		p.window = n
		return nil
	}
}

// Trace writes every step of the parser to `w`, each line starting with `prompt`. A nil writer or an
// empty prompt disables tracing.
func Trace(w io.Writer, prompt string) ParserOption {
	return func(p *Parser) error {
		p.trace = w
		p.prompt = prompt
		return nil
	}
}

// Observer registers a function receiving every step of the parser.
func Observer(f func(Event)) ParserOption {
	return func(p *Parser) error {
		p.observer = f
		return nil
	}
}

// Extra sets the value callbacks see as Context.Extra.
func Extra(v interface{}) ParserOption {
	return func(p *Parser) error {
		p.ctx.Extra = v
		return nil
	}
}

// Parser is a push parser driven by compressed LALR(1) tables. Tokens are fed one at a time. A
// Parser is not safe for concurrent use, but any number of parsers can share the same tables.
type Parser struct {
	tabs     *spec.ParsingTables
	actions  *ActionTable
	resolver *actionResolver
	stack    *stack
	ctx      *Context

	state  ParserState
	closed bool

	policy   RecoveryPolicy
	window   int
	maxDepth int
	errCnt   int
	result   Value
	synErrs  []*SyntaxError
	trace    io.Writer
	prompt   string
	observer func(Event)
}

func NewParser(tabs *spec.ParsingTables, actions *ActionTable, opts ...ParserOption) (*Parser, error) {
	if tabs == nil {
		return nil, fmt.Errorf("parsing tables must be non-nil")
	}
	if err := tabs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedTable, err)
	}
	if actions == nil {
		actions = &ActionTable{}
	}

	p := &Parser{
		tabs:    tabs,
		actions: actions,
		policy:  RecoveryDiscard,
		window:  DefaultSuppressionWindow,
	}
	if tabs.ErrorSymbol != spec.SymbolNone {
		p.policy = RecoveryErrorSymbol
	}
	p.ctx = &Context{
		Rule:   -1,
		parser: p,
	}
	p.resolver = &actionResolver{
		tabs: tabs,
		onFallback: func(from, to int) {
			p.emit(Event{
				Kind:       EventFallback,
				State:      p.stack.top().state,
				Symbol:     from,
				Substitute: to,
				Rule:       -1,
				Depth:      p.stack.depth(),
			})
		},
		onWildcard: func(from int) {
			p.emit(Event{
				Kind:       EventWildcard,
				State:      p.stack.top().state,
				Symbol:     from,
				Substitute: tabs.Wildcard,
				Rule:       -1,
				Depth:      p.stack.depth(),
			})
		},
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	p.init()

	return p, nil
}

func (p *Parser) init() {
	p.stack = newStack(p.maxDepth)
	p.stack.onGrow = func(capacity int) {
		p.emit(Event{
			Kind:  EventGrow,
			Rule:  -1,
			Depth: capacity,
		})
	}
	p.stack.push(p.tabs.InitialState, spec.SymbolEOF, nil)
	p.errCnt = -1
	p.state = StateIdle
	p.closed = false
	p.result = nil
	p.synErrs = nil
	p.ctx.Rule = -1
	p.ctx.errs = nil
	p.emit(Event{
		Kind:  EventInitialize,
		State: p.tabs.InitialState,
		Rule:  -1,
		Depth: p.stack.depth(),
	})
}

// Reset tears down the current parse, running destructors on every value left on the stack, and
// prepares the parser for a new input.
func (p *Parser) Reset() {
	p.teardown()
	p.init()
}

// Close tears down the current parse, running destructors on every value left on the stack. A
// closed parser accepts no tokens until it is reset.
func (p *Parser) Close() {
	if p.closed {
		return
	}
	p.teardown()
	p.closed = true
}

func (p *Parser) State() ParserState {
	return p.state
}

// Result returns the value of the start symbol once the input has been accepted.
func (p *Parser) Result() Value {
	return p.result
}

// SyntaxErrors returns the syntax errors reported since the parser was reset.
func (p *Parser) SyntaxErrors() []*SyntaxError {
	return p.synErrs
}

// Errors returns the errors recorded by callbacks through Context.Errorf.
func (p *Parser) Errors() []error {
	return p.ctx.errs
}

// Depth returns the current number of frames on the stack.
func (p *Parser) Depth() int {
	return p.stack.depth()
}

// StackPeak returns the maximum number of frames the stack has held since the parser was reset.
func (p *Parser) StackPeak() int {
	return p.stack.peak
}

func (p *Parser) finished() bool {
	return p.state == StateAccepted || p.state == StateFailed
}

// Feed passes a token to the parser. `major` is the terminal and `minor` is its semantic value.
// The end of the input is fed as spec.SymbolEOF. Syntax errors are not returned; they are handled
// by the recovery policy and reported through the action table. Feed returns an error only when
// the parser can't take the token at all.
func (p *Parser) Feed(major int, minor Value) error {
	if p.closed {
		return ErrParserClosed
	}
	if p.finished() {
		return ErrParseFinished
	}
	if major < 0 || major >= p.tabs.TerminalCount {
		return fmt.Errorf("%w: %v", ErrInvalidSymbol, major)
	}

	p.emit(Event{
		Kind:   EventInput,
		State:  p.stack.top().state,
		Symbol: major,
		Rule:   -1,
		Depth:  p.stack.depth(),
	})

	bounds := p.tabs.Bounds
	errorHit := false
	consumed := false
	for !consumed && !p.finished() {
		act := p.resolver.findShiftAction(p.stack.top().state, major)
		kind, operand := classify(bounds, act)
		switch kind {
		case ActionShift, ActionShiftReduce:
			p.state = StateShifting
			if kind == ActionShiftReduce {
				act = bounds.Reduce(operand)
			}
			if !p.shift(act, major, minor) {
				continue
			}
			p.errCnt--
			consumed = true
		case ActionReduce:
			p.state = StateReducing
			if err := p.reduce(operand); err != nil {
				p.fail()
				p.destroy(major, minor)
				return err
			}
		case ActionAccept:
			p.accept(nil)
		default:
			p.state = StateErrorRecovering
			consumed = p.recover(major, minor, &errorHit)
		}
	}
	if !consumed && p.state == StateFailed {
		p.destroy(major, minor)
	}

	if !p.finished() {
		p.state = StateIdle
		if p.policy != RecoveryNone && p.errCnt > 0 {
			p.state = StateErrorRecovering
		}
	}

	p.traceReturn()

	return nil
}

// shift pushes a frame. On overflow, the parse fails and shift returns false.
func (p *Parser) shift(state, major int, minor Value) bool {
	if !p.stack.push(state, major, minor) {
		p.overflow()
		return false
	}
	p.emit(Event{
		Kind:   EventShift,
		State:  state,
		Symbol: major,
		Rule:   -1,
		Depth:  p.stack.depth(),
	})
	return true
}

func (p *Parser) reduce(rule int) error {
	tabs := p.tabs
	if rule < 0 || rule >= tabs.RuleCount() {
		return fmt.Errorf("%w: rule %v doesn't exist", ErrCorruptedTable, rule)
	}
	arity := tabs.RHSLengths[rule]
	lhs := tabs.LHSSymbols[rule]
	if arity >= p.stack.depth() {
		return fmt.Errorf("%w: the stack is too shallow to reduce by %v", ErrCorruptedTable, tabs.RuleText(rule))
	}
	if arity == 0 && !p.stack.ensureHeadroom() {
		p.overflow()
		return nil
	}

	v := p.callRule(rule, p.stack.topN(arity))
	p.stack.popN(arity)

	exposed := p.stack.top().state
	p.emit(Event{
		Kind:   EventReduce,
		State:  exposed,
		Symbol: lhs,
		Rule:   rule,
		Depth:  p.stack.depth() + 1,
	})

	act := p.resolver.findReduceAction(exposed, lhs)
	kind, operand := classify(tabs.Bounds, act)
	switch kind {
	case ActionShift, ActionShiftReduce:
		if kind == ActionShiftReduce {
			act = tabs.Bounds.Reduce(operand)
		}
		if !p.stack.push(act, lhs, v) {
			p.destroy(lhs, v)
			p.overflow()
		}
	case ActionAccept:
		p.accept(v)
	default:
		p.destroy(lhs, v)
		return fmt.Errorf("%w: state %v has no transition on %v", ErrCorruptedTable, exposed, tabs.SymbolName(lhs))
	}
	return nil
}

func (p *Parser) accept(v Value) {
	p.emit(Event{
		Kind:  EventAccept,
		State: p.stack.top().state,
		Rule:  -1,
		Depth: p.stack.depth(),
	})
	p.teardown()
	p.result = v
	p.state = StateAccepted
	if p.actions.Accept != nil {
		p.actions.Accept(p.ctx, v)
	}
}

func (p *Parser) overflow() {
	p.emit(Event{
		Kind:  EventOverflow,
		State: p.stack.top().state,
		Rule:  -1,
		Depth: p.stack.depth(),
	})
	p.teardown()
	p.state = StateFailed
	if p.actions.StackOverflow != nil {
		p.actions.StackOverflow(p.ctx)
	}
}

func (p *Parser) fail() {
	state := -1
	if p.stack.depth() > 0 {
		state = p.stack.top().state
	}
	p.emit(Event{
		Kind:  EventFail,
		State: state,
		Rule:  -1,
		Depth: p.stack.depth(),
	})
	p.teardown()
	p.state = StateFailed
	if p.actions.ParseFailed != nil {
		p.actions.ParseFailed(p.ctx)
	}
}

// popFrame removes the top frame and destroys its value. The bottom frame holds no value.
func (p *Parser) popFrame() {
	bottom := p.stack.depth() == 1
	f := p.stack.pop()
	state := -1
	if p.stack.depth() > 0 {
		state = p.stack.top().state
	}
	p.emit(Event{
		Kind:   EventPop,
		State:  state,
		Symbol: f.major,
		Rule:   -1,
		Depth:  p.stack.depth(),
	})
	if !bottom {
		p.destroy(f.major, f.minor)
	}
}

func (p *Parser) teardown() {
	for p.stack.depth() > 0 {
		p.popFrame()
	}
}
