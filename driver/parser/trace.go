package parser

import (
	"fmt"
	"strings"
)

type EventKind int

const (
	EventInitialize EventKind = iota
	EventInput
	EventShift
	EventReduce
	EventFallback
	EventWildcard
	EventSyntaxError
	EventDiscard
	EventPop
	EventFail
	EventOverflow
	EventAccept
	EventGrow
)

func (k EventKind) String() string {
	switch k {
	case EventInitialize:
		return "initialize"
	case EventInput:
		return "input"
	case EventShift:
		return "shift"
	case EventReduce:
		return "reduce"
	case EventFallback:
		return "fallback"
	case EventWildcard:
		return "wildcard"
	case EventSyntaxError:
		return "syntax-error"
	case EventDiscard:
		return "discard"
	case EventPop:
		return "pop"
	case EventFail:
		return "fail"
	case EventOverflow:
		return "overflow"
	case EventAccept:
		return "accept"
	case EventGrow:
		return "grow"
	}
	return fmt.Sprintf("<%d>", int(k))
}

// Event is a step taken by a parser.
//
// State is the state after the step: the next state of a shift (or the encoded reduce action of
// a shift-reduce) and the exposed state of a reduce. Symbol is the symbol the step is about. For
// EventFallback and EventWildcard, Symbol is the original terminal and Substitute is the terminal
// used instead. Rule is set only for EventReduce and is -1 otherwise. Depth is the stack depth after
// the step, or the new capacity for EventGrow.
type Event struct {
	Kind       EventKind
	State      int
	Symbol     int
	Substitute int
	Rule       int
	Depth      int
}

func (p *Parser) emit(ev Event) {
	if p.observer != nil {
		p.observer(ev)
	}
	if p.trace == nil || p.prompt == "" {
		return
	}

	var msg string
	switch ev.Kind {
	case EventInitialize:
		msg = fmt.Sprintf("Initialize. Empty stack. State %v", ev.State)
	case EventInput:
		msg = fmt.Sprintf("Input '%v'", p.tabs.SymbolName(ev.Symbol))
	case EventShift:
		if ev.State < p.tabs.StateCount {
			msg = fmt.Sprintf("Shift '%v', go to state %v", p.tabs.SymbolName(ev.Symbol), ev.State)
		} else {
			msg = fmt.Sprintf("Shift '%v'", p.tabs.SymbolName(ev.Symbol))
		}
	case EventReduce:
		msg = fmt.Sprintf("Reduce [%v], go to state %v.", p.tabs.RuleText(ev.Rule), ev.State)
	case EventFallback:
		msg = fmt.Sprintf("FALLBACK %v => %v", p.tabs.SymbolName(ev.Symbol), p.tabs.SymbolName(ev.Substitute))
	case EventWildcard:
		msg = fmt.Sprintf("WILDCARD %v => %v", p.tabs.SymbolName(ev.Symbol), p.tabs.SymbolName(ev.Substitute))
	case EventSyntaxError:
		msg = "Syntax Error!"
	case EventDiscard:
		msg = fmt.Sprintf("Discard input token %v", p.tabs.SymbolName(ev.Symbol))
	case EventPop:
		msg = fmt.Sprintf("Popping %v", p.tabs.SymbolName(ev.Symbol))
	case EventFail:
		msg = "Fail!"
	case EventOverflow:
		msg = "Stack Overflow!"
	case EventAccept:
		msg = "Accept!"
	case EventGrow:
		msg = fmt.Sprintf("Stack grows to %v entries!", ev.Depth)
	default:
		return
	}
	fmt.Fprintf(p.trace, "%v%v\n", p.prompt, msg)
}

// traceReturn writes the symbols on the stack when a Feed call returns.
func (p *Parser) traceReturn() {
	if p.trace == nil || p.prompt == "" {
		return
	}
	var b strings.Builder
	for i, f := range p.stack.frames {
		if i == 0 {
			continue
		}
		if i == 1 {
			b.WriteString("[")
		} else {
			b.WriteString(" ")
		}
		b.WriteString(p.tabs.SymbolName(f.major))
	}
	if p.stack.depth() > 1 {
		b.WriteString("]")
	}
	fmt.Fprintf(p.trace, "%vReturn. Stack=%v\n", p.prompt, b.String())
}
