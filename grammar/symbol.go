package grammar

import (
	"fmt"
	"sort"
)

type symbolKind string

const (
	symbolKindNonTerminal = symbolKind("non-terminal")
	symbolKindTerminal    = symbolKind("terminal")
)

func (t symbolKind) String() string {
	return string(t)
}

type symbolNum uint16

func (n symbolNum) Int() int {
	return int(n)
}

// symbol packs a kind, a start/EOF flag, and a number into 16 bits.
//
//	bit 15     1: terminal, 0: non-terminal
//	bit 14     1: the augmented start symbol (non-terminal) or the end-of-input (terminal)
//	bit 0-13   number
type symbol uint16

func (s symbol) String() string {
	kind, isStart, isEOF, num := s.describe()
	var prefix string
	switch {
	case isStart:
		prefix = "s"
	case isEOF:
		prefix = "e"
	case kind == symbolKindNonTerminal:
		prefix = "n"
	case kind == symbolKindTerminal:
		prefix = "t"
	default:
		prefix = "?"
	}
	return fmt.Sprintf("%v%v", prefix, num)
}

const (
	maskKindPart    = uint16(0x8000)
	maskNonTerminal = uint16(0x0000)
	maskTerminal    = uint16(0x8000)

	maskSubKindPart    = uint16(0x4000)
	maskNonStartAndEOF = uint16(0x0000)
	maskStartOrEOF     = uint16(0x4000)

	maskNumberPart = uint16(0x3fff)

	symbolNumStart = uint16(0x0001)
	symbolNumEOF   = uint16(0x0001)

	symbolNil   = symbol(0)
	symbolStart = symbol(maskNonTerminal | maskStartOrEOF | symbolNumStart)
	symbolEOF   = symbol(maskTerminal | maskStartOrEOF | symbolNumEOF)

	// User-defined names are identifiers, so they never collide with this name.
	symbolNameEOF = "$"

	nonTerminalNumMin = symbolNum(2) // 1 is used by the augmented start symbol.
	terminalNumMin    = symbolNum(2) // 1 is used by the end-of-input.
	symbolNumMax      = symbolNum(0xffff) >> 2
)

func newSymbol(kind symbolKind, isStart bool, num symbolNum) (symbol, error) {
	if num > symbolNumMax {
		return symbolNil, fmt.Errorf("a symbol number exceeds the limit; limit: %v, passed: %v", symbolNumMax, num)
	}
	if kind == symbolKindTerminal && isStart {
		return symbolNil, fmt.Errorf("a start symbol must be a non-terminal symbol")
	}

	kindMask := maskNonTerminal
	if kind == symbolKindTerminal {
		kindMask = maskTerminal
	}
	startMask := maskNonStartAndEOF
	if isStart {
		startMask = maskStartOrEOF
	}
	return symbol(kindMask | startMask | uint16(num)), nil
}

func (s symbol) num() symbolNum {
	_, _, _, num := s.describe()
	return num
}

func (s symbol) byte() []byte {
	if s.isNil() {
		return []byte{0, 0}
	}
	return []byte{byte(uint16(s) >> 8), byte(uint16(s) & 0x00ff)}
}

func (s symbol) isNil() bool {
	return s.num() == 0
}

func (s symbol) isStart() bool {
	if s.isNil() {
		return false
	}
	_, isStart, _, _ := s.describe()
	return isStart
}

func (s symbol) isEOF() bool {
	if s.isNil() {
		return false
	}
	_, _, isEOF, _ := s.describe()
	return isEOF
}

func (s symbol) isNonTerminal() bool {
	if s.isNil() {
		return false
	}
	kind, _, _, _ := s.describe()
	return kind == symbolKindNonTerminal
}

func (s symbol) isTerminal() bool {
	if s.isNil() {
		return false
	}
	return !s.isNonTerminal()
}

func (s symbol) describe() (symbolKind, bool, bool, symbolNum) {
	kind := symbolKindNonTerminal
	if uint16(s)&maskKindPart > 0 {
		kind = symbolKindTerminal
	}
	isStart := false
	isEOF := false
	if uint16(s)&maskSubKindPart > 0 {
		if kind == symbolKindNonTerminal {
			isStart = true
		} else {
			isEOF = true
		}
	}
	num := symbolNum(uint16(s) & maskNumberPart)
	return kind, isStart, isEOF, num
}

// symbolTable assigns internal symbols to names. The error symbol is registered as the first
// non-terminal so that, once the symbols are laid out in the final code space, it immediately
// follows the terminals.
type symbolTable struct {
	text2Sym     map[string]symbol
	sym2Text     map[symbol]string
	nonTermTexts []string
	termTexts    []string
	nonTermNum   symbolNum
	termNum      symbolNum
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		text2Sym: map[string]symbol{
			symbolNameEOF: symbolEOF,
		},
		sym2Text: map[symbol]string{
			symbolEOF: symbolNameEOF,
		},
		termTexts: []string{
			"",            // Nil
			symbolNameEOF, // EOF
		},
		nonTermTexts: []string{
			"", // Nil
			"", // Augmented start symbol
		},
		nonTermNum: nonTerminalNumMin,
		termNum:    terminalNumMin,
	}
}

func (t *symbolTable) registerStartSymbol(text string) symbol {
	t.text2Sym[text] = symbolStart
	t.sym2Text[symbolStart] = text
	t.nonTermTexts[symbolStart.num().Int()] = text
	return symbolStart
}

func (t *symbolTable) registerNonTerminalSymbol(text string) (symbol, error) {
	if sym, ok := t.text2Sym[text]; ok {
		return sym, nil
	}
	sym, err := newSymbol(symbolKindNonTerminal, false, t.nonTermNum)
	if err != nil {
		return symbolNil, err
	}
	t.nonTermNum++
	t.text2Sym[text] = sym
	t.sym2Text[sym] = text
	t.nonTermTexts = append(t.nonTermTexts, text)
	return sym, nil
}

func (t *symbolTable) registerTerminalSymbol(text string) (symbol, error) {
	if sym, ok := t.text2Sym[text]; ok {
		return sym, nil
	}
	sym, err := newSymbol(symbolKindTerminal, false, t.termNum)
	if err != nil {
		return symbolNil, err
	}
	t.termNum++
	t.text2Sym[text] = sym
	t.sym2Text[sym] = text
	t.termTexts = append(t.termTexts, text)
	return sym, nil
}

func (t *symbolTable) toSymbol(text string) (symbol, bool) {
	if sym, ok := t.text2Sym[text]; ok {
		return sym, true
	}
	return symbolNil, false
}

func (t *symbolTable) toText(sym symbol) (string, bool) {
	text, ok := t.sym2Text[sym]
	return text, ok
}

// terminalSymbols returns the terminals including the end-of-input in ascending order of number.
func (t *symbolTable) terminalSymbols() []symbol {
	syms := make([]symbol, 0, t.termNum.Int())
	for sym := range t.sym2Text {
		if !sym.isTerminal() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].num() < syms[j].num()
	})
	return syms
}

// nonTerminalSymbols returns the non-terminals except the augmented start symbol in ascending order of
// number.
func (t *symbolTable) nonTerminalSymbols() []symbol {
	syms := make([]symbol, 0, t.nonTermNum.Int())
	for sym := range t.sym2Text {
		if !sym.isNonTerminal() || sym.isStart() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].num() < syms[j].num()
	})
	return syms
}

// terminalCount returns the number of terminals including the end-of-input.
func (t *symbolTable) terminalCount() int {
	return t.termNum.Int() - 1
}

// code converts an internal symbol into the code used by the parsing tables. The end-of-input is
// 0, the user-defined terminals follow it, and the non-terminals (the error symbol first) come
// after the terminals. The augmented start symbol has no code.
func (t *symbolTable) code(sym symbol) int {
	if sym.isTerminal() {
		return sym.num().Int() - 1
	}
	if sym.isNil() || sym.isStart() {
		return -1
	}
	return t.terminalCount() + sym.num().Int() - nonTerminalNumMin.Int()
}

// symbolNames returns the names of the symbols indexed by code.
func (t *symbolTable) symbolNames() []string {
	names := make([]string, 0, t.terminalCount()+t.nonTermNum.Int()-nonTerminalNumMin.Int())
	names = append(names, t.termTexts[1:]...)
	names = append(names, t.nonTermTexts[nonTerminalNumMin.Int():]...)
	return names
}
