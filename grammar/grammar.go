package grammar

import (
	"fmt"
	"io"
	"sort"
	"strings"

	verr "github.com/FlashSQL/sqlite-more-lite/error"
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
)

type assocType string

const (
	assocTypeNil      = assocType("")
	assocTypeLeft     = assocType("left")
	assocTypeRight    = assocType("right")
	assocTypeNonAssoc = assocType("nonassoc")
)

const (
	precNil = 0
	precMin = 1
)

// precAndAssoc represents precedence and associativities of terminal symbols and productions.
// We use the priority of the production to resolve shift/reduce conflicts.
type precAndAssoc struct {
	// termPrec and termAssoc represent the precedence of the terminal symbols.
	termPrec  map[symbolNum]int
	termAssoc map[symbolNum]assocType

	// prodPrec and prodAssoc represent the precedence and the associativities of the production.
	// These values are inherited from the right-most terminal symbols in the RHS of the productions.
	prodPrec  map[productionNum]int
	prodAssoc map[productionNum]assocType
}

func (pa *precAndAssoc) terminalPrecedence(sym symbolNum) int {
	prec, ok := pa.termPrec[sym]
	if !ok {
		return precNil
	}

	return prec
}

func (pa *precAndAssoc) terminalAssociativity(sym symbolNum) assocType {
	assoc, ok := pa.termAssoc[sym]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

func (pa *precAndAssoc) productionPredence(prod productionNum) int {
	prec, ok := pa.prodPrec[prod]
	if !ok {
		return precNil
	}

	return prec
}

func (pa *precAndAssoc) productionAssociativity(prod productionNum) assocType {
	assoc, ok := pa.prodAssoc[prod]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

type Grammar struct {
	name                 string
	lexSpec              *mlspec.LexSpec
	skipLexKinds         []mlspec.LexKindName
	skipSyms             map[symbol]struct{}
	patterns             map[symbol]string
	productionSet        *productionSet
	augmentedStartSymbol symbol
	startSymbol          symbol
	errorSymbol          symbol
	wildcard             symbol
	fallback             map[symbol]symbol
	symbolTable          *symbolTable
	precAndAssoc         *precAndAssoc
}

// GrammarBuilder checks a grammar definition and builds a Grammar from it. Every problem found is
// reported as an error.SpecError carrying the line of the definition.
type GrammarBuilder struct {
	Def *spec.Definition

	// FilePath is the path of the definition. When it is set, error messages quote the offending line.
	FilePath string

	errs verr.SpecErrors
}

func (b *GrammarBuilder) addErr(cause error, detail string, row int) {
	b.errs = append(b.errs, &verr.SpecError{
		Cause:    cause,
		Detail:   detail,
		FilePath: b.FilePath,
		Row:      row,
	})
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	def := b.Def
	if def.Name == "" {
		b.addErr(semErrNoGrammarName, "", 0)
	}
	if len(def.Rules) == 0 {
		b.addErr(semErrNoProduction, "", 0)
		return nil, b.errs
	}

	symTab := newSymbolTable()

	lex := b.genTerminalsAndLexSpec(symTab)

	errSym := symbolNil
	if def.Error != "" {
		switch sym, exist := symTab.toSymbol(def.Error); {
		case !isIdentifier(def.Error):
			b.addErr(semErrInvalidName, def.Error, 0)
		case exist && sym.isTerminal():
			b.addErr(semErrDuplicateName, def.Error, 0)
		default:
			var err error
			errSym, err = symTab.registerNonTerminalSymbol(def.Error)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, rule := range def.Rules {
		if !isIdentifier(rule.LHS) {
			b.addErr(semErrInvalidName, rule.LHS, rule.Line)
			continue
		}
		if sym, exist := symTab.toSymbol(rule.LHS); exist {
			switch {
			case sym.isTerminal():
				b.addErr(semErrTermAsLHS, rule.LHS, rule.Line)
			case sym == errSym:
				b.addErr(semErrErrSymIsReserved, rule.LHS, rule.Line)
			}
			continue
		}
		if _, err := symTab.registerNonTerminalSymbol(rule.LHS); err != nil {
			return nil, err
		}
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	startName := def.Start
	if startName == "" {
		startName = def.Rules[0].LHS
	}
	startSym, ok := symTab.toSymbol(startName)
	if !ok || !startSym.isNonTerminal() || startSym == errSym {
		b.addErr(semErrUndefinedSym, fmt.Sprintf("start symbol '%v' must be a non-terminal having productions", startName), 0)
		return nil, b.errs
	}
	augStartSym := symTab.registerStartSymbol(startName + "'")

	prods, prodPrecTerms, err := b.genProductions(symTab, startSym, augStartSym)
	if err != nil {
		return nil, err
	}

	pa := b.genPrecAndAssoc(symTab, prods, prodPrecTerms)
	fallback := b.genFallback(symTab)

	wildcard := symbolNil
	if def.Wildcard != "" {
		sym, ok := symTab.toSymbol(def.Wildcard)
		if !ok || !sym.isTerminal() || sym.isEOF() {
			b.addErr(semErrInvalidWildcard, def.Wildcard, 0)
		} else {
			wildcard = sym
		}
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	b.checkUsage(symTab, prods, startSym, lex.skipSyms, fallback, wildcard, prodPrecTerms)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	var lexSpec *mlspec.LexSpec
	if len(lex.entries) > 0 {
		lexSpec = &mlspec.LexSpec{
			Name:    def.Name,
			Entries: lex.entries,
		}
	}

	return &Grammar{
		name:                 def.Name,
		lexSpec:              lexSpec,
		skipLexKinds:         lex.skipKinds,
		skipSyms:             lex.skipSyms,
		patterns:             lex.patterns,
		productionSet:        prods,
		augmentedStartSymbol: augStartSym,
		startSymbol:          startSym,
		errorSymbol:          errSym,
		wildcard:             wildcard,
		fallback:             fallback,
		symbolTable:          symTab,
		precAndAssoc:         pa,
	}, nil
}

type terminalsAndLexSpec struct {
	entries   []*mlspec.LexEntry
	skipKinds []mlspec.LexKindName
	skipSyms  map[symbol]struct{}
	patterns  map[symbol]string
	lines     map[symbol]int
}

// genTerminalsAndLexSpec registers the terminals in definition order. A terminal without a pattern
// is valid; such a terminal is only ever fed to the parser directly.
func (b *GrammarBuilder) genTerminalsAndLexSpec(symTab *symbolTable) *terminalsAndLexSpec {
	lex := &terminalsAndLexSpec{
		skipSyms: map[symbol]struct{}{},
		patterns: map[symbol]string{},
		lines:    map[symbol]int{},
	}
	for _, term := range b.Def.Terminals {
		if !isIdentifier(term.Name) {
			b.addErr(semErrInvalidName, term.Name, term.Line)
			continue
		}
		if _, exist := symTab.toSymbol(term.Name); exist {
			b.addErr(semErrDuplicateTerminal, term.Name, term.Line)
			continue
		}
		if term.Pattern != "" && term.Literal != "" {
			b.addErr(semErrInvalidTerminal, term.Name, term.Line)
			continue
		}

		sym, err := symTab.registerTerminalSymbol(term.Name)
		if err != nil {
			b.addErr(err, term.Name, term.Line)
			continue
		}
		lex.lines[sym] = term.Line

		pattern := term.Pattern
		if term.Literal != "" {
			pattern = mlspec.EscapePattern(term.Literal)
		}
		if pattern == "" {
			continue
		}
		lex.patterns[sym] = pattern
		lex.entries = append(lex.entries, &mlspec.LexEntry{
			Kind:    mlspec.LexKindName(term.Name),
			Pattern: mlspec.LexPattern(pattern),
		})
		if term.Skip {
			lex.skipKinds = append(lex.skipKinds, mlspec.LexKindName(term.Name))
			lex.skipSyms[sym] = struct{}{}
		}
	}
	return lex
}

func (b *GrammarBuilder) genProductions(symTab *symbolTable, startSym, augStartSym symbol) (*productionSet, map[productionNum]symbol, error) {
	prods := newProductionSet()
	{
		p, err := newProduction(augStartSym, []symbol{startSym})
		if err != nil {
			return nil, nil, err
		}
		prods.append(p)
	}

	precTerms := map[productionNum]symbol{}
	for _, rule := range b.Def.Rules {
		lhs, _ := symTab.toSymbol(rule.LHS)

		var rhs []symbol
		ok := true
		for _, name := range strings.Fields(rule.RHS) {
			sym, exist := symTab.toSymbol(name)
			switch {
			case !exist || sym.isStart():
				b.addErr(semErrUndefinedSym, name, rule.Line)
				ok = false
			case sym == startSym:
				b.addErr(semErrStartSymOnRHS, name, rule.Line)
				ok = false
			default:
				rhs = append(rhs, sym)
			}
		}
		if !ok {
			continue
		}

		p, err := newProduction(lhs, rhs)
		if err != nil {
			return nil, nil, err
		}
		p.line = rule.Line
		if !prods.append(p) {
			b.addErr(semErrDuplicateProduction, fmt.Sprintf("%v: %v", rule.LHS, rule.RHS), rule.Line)
			continue
		}

		if rule.Prec != "" {
			sym, exist := symTab.toSymbol(rule.Prec)
			if !exist || !sym.isTerminal() {
				b.addErr(semErrUndefinedSym, rule.Prec, rule.Line)
				continue
			}
			precTerms[p.num] = sym
		}
	}

	return prods, precTerms, nil
}

// genPrecAndAssoc assigns precedence to terminals by level. Levels listed earlier get smaller
// values, which means they bind tighter.
func (b *GrammarBuilder) genPrecAndAssoc(symTab *symbolTable, prods *productionSet, precTerms map[productionNum]symbol) *precAndAssoc {
	termPrec := map[symbolNum]int{}
	termAssoc := map[symbolNum]assocType{}
	for i, level := range b.Def.Precedence {
		var names []string
		var assoc assocType
		n := 0
		if len(level.Left) > 0 {
			names, assoc = level.Left, assocTypeLeft
			n++
		}
		if len(level.Right) > 0 {
			names, assoc = level.Right, assocTypeRight
			n++
		}
		if len(level.NonAssoc) > 0 {
			names, assoc = level.NonAssoc, assocTypeNonAssoc
			n++
		}
		if n != 1 {
			b.addErr(semErrInvalidPrecLevel, "", level.Line)
			continue
		}

		for _, name := range names {
			sym, ok := symTab.toSymbol(name)
			if !ok || !sym.isTerminal() {
				b.addErr(semErrUndefinedSym, name, level.Line)
				continue
			}
			if _, ok := termPrec[sym.num()]; ok {
				b.addErr(semErrDuplicateAssoc, name, level.Line)
				continue
			}
			termPrec[sym.num()] = precMin + i
			termAssoc[sym.num()] = assoc
		}
	}

	prodPrec := map[productionNum]int{}
	prodAssoc := map[productionNum]assocType{}
	for _, prod := range prods.getAllProductions() {
		// A prec field changes only precedence, not associativity.
		if term, ok := precTerms[prod.num]; ok {
			prec, ok := termPrec[term.num()]
			if !ok {
				text, _ := symTab.toText(term)
				b.addErr(semErrUndefinedPrec, text, prod.line)
				continue
			}
			prodPrec[prod.num] = prec
			prodAssoc[prod.num] = assocTypeNil
			continue
		}

		mostrightTerm := symbolNil
		for _, sym := range prod.rhs {
			if !sym.isTerminal() {
				continue
			}
			mostrightTerm = sym
		}
		if mostrightTerm.isNil() {
			continue
		}
		if prec, ok := termPrec[mostrightTerm.num()]; ok {
			prodPrec[prod.num] = prec
			prodAssoc[prod.num] = termAssoc[mostrightTerm.num()]
		}
	}

	return &precAndAssoc{
		termPrec:  termPrec,
		termAssoc: termAssoc,
		prodPrec:  prodPrec,
		prodAssoc: prodAssoc,
	}
}

// genFallback collects the fallback pairs. A terminal falls back to at most one terminal, and a
// fallback target never falls back itself.
func (b *GrammarBuilder) genFallback(symTab *symbolTable) map[symbol]symbol {
	fallback := map[symbol]symbol{}
	lines := map[symbol]int{}
	for _, fb := range b.Def.Fallback {
		to, ok := symTab.toSymbol(fb.To)
		if !ok || !to.isTerminal() || to.isEOF() {
			b.addErr(semErrInvalidFallback, fmt.Sprintf("'%v' is not a terminal", fb.To), fb.Line)
			continue
		}
		for _, name := range fb.From {
			from, ok := symTab.toSymbol(name)
			switch {
			case !ok || !from.isTerminal() || from.isEOF():
				b.addErr(semErrInvalidFallback, fmt.Sprintf("'%v' is not a terminal", name), fb.Line)
			case from == to:
				b.addErr(semErrInvalidFallback, fmt.Sprintf("'%v' falls back to itself", name), fb.Line)
			default:
				if _, dup := fallback[from]; dup {
					b.addErr(semErrInvalidFallback, fmt.Sprintf("'%v' already has a fallback", name), fb.Line)
					continue
				}
				fallback[from] = to
				lines[from] = fb.Line
			}
		}
	}

	froms := make([]symbol, 0, len(fallback))
	for from := range fallback {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool {
		return froms[i].num() < froms[j].num()
	})
	for _, from := range froms {
		to := fallback[from]
		next, ok := fallback[to]
		if !ok {
			continue
		}
		fromText, _ := symTab.toText(from)
		toText, _ := symTab.toText(to)
		nextText, _ := symTab.toText(next)
		b.addErr(semErrFallbackChain, fmt.Sprintf("%v => %v => %v", fromText, toText, nextText), lines[from])
	}

	return fallback
}

// checkUsage reports non-terminals unreachable from the start symbol and terminals that nothing
// refers to. Skipped terminals, fallback sources, the wildcard, and terminals named by prec fields
// count as used.
func (b *GrammarBuilder) checkUsage(symTab *symbolTable, prods *productionSet, startSym symbol, skipSyms map[symbol]struct{}, fallback map[symbol]symbol, wildcard symbol, precTerms map[productionNum]symbol) {
	used := map[symbol]struct{}{
		startSym: {},
	}
	precUsed := map[symbol]struct{}{}
	for _, term := range precTerms {
		precUsed[term] = struct{}{}
	}
	unchecked := []symbol{startSym}
	for len(unchecked) > 0 {
		sym := unchecked[0]
		unchecked = unchecked[1:]
		ps, _ := prods.findByLHS(sym)
		for _, p := range ps {
			for _, e := range p.rhs {
				if _, ok := used[e]; ok {
					continue
				}
				used[e] = struct{}{}
				if e.isNonTerminal() {
					unchecked = append(unchecked, e)
				}
			}
		}
	}

	firstLines := map[symbol]int{}
	for _, p := range prods.getAllProductions() {
		if _, ok := firstLines[p.lhs]; !ok {
			firstLines[p.lhs] = p.line
		}
	}
	for _, sym := range symTab.nonTerminalSymbols() {
		if _, ok := used[sym]; ok {
			continue
		}
		line, hasProd := firstLines[sym]
		if !hasProd {
			// The error symbol without any reference.
			continue
		}
		text, _ := symTab.toText(sym)
		b.addErr(semErrUnusedProduction, text, line)
	}

	lines := map[string]int{}
	for _, t := range b.Def.Terminals {
		lines[t.Name] = t.Line
	}
	for _, sym := range symTab.terminalSymbols() {
		if sym.isEOF() {
			continue
		}
		text, _ := symTab.toText(sym)
		_, isUsed := used[sym]
		_, isSkipped := skipSyms[sym]
		if isUsed && isSkipped {
			b.addErr(semErrTermCannotBeSkipped, text, lines[text])
			continue
		}
		if isUsed || isSkipped || sym == wildcard {
			continue
		}
		if _, ok := fallback[sym]; ok {
			continue
		}
		if _, ok := precUsed[sym]; ok {
			continue
		}
		b.addErr(semErrUnusedTerminal, text, lines[text])
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

type compileConfig struct {
	isReportingEnabled bool
	disableShiftReduce bool
}

type CompileOption func(config *compileConfig)

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// DisableShiftReduce keeps auto-reduce states in the tables instead of fusing the shifts into them
// with their reductions.
func DisableShiftReduce() CompileOption {
	return func(config *compileConfig) {
		config.disableShiftReduce = true
	}
}

func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	config := &compileConfig{}
	for _, opt := range opts {
		opt(config)
	}

	var lexical *spec.LexicalSpec
	if gram.lexSpec != nil {
		var err error
		lexical, err = compileLexSpec(gram)
		if err != nil {
			return nil, nil, err
		}
	}

	firstSet, err := genFirstSet(gram.productionSet, gram.errorSymbol)
	if err != nil {
		return nil, nil, err
	}

	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol)
	if err != nil {
		return nil, nil, err
	}

	lalr1, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		return nil, nil, err
	}

	b := &lrTableBuilder{
		automaton:    lalr1.lr0Automaton,
		prods:        gram.productionSet,
		symTab:       gram.symbolTable,
		precAndAssoc: gram.precAndAssoc,
		startSym:     gram.startSymbol,
		wildcard:     gram.wildcard,
	}
	tab, err := b.build()
	if err != nil {
		return nil, nil, err
	}

	packer := &tablePacker{
		automaton:   lalr1.lr0Automaton,
		tab:         tab,
		prods:       gram.productionSet,
		symTab:      gram.symbolTable,
		startSym:    gram.startSymbol,
		errSym:      gram.errorSymbol,
		wildcard:    gram.wildcard,
		fallback:    gram.fallback,
		shiftReduce: !config.disableShiftReduce,
	}
	tables, err := packer.pack()
	if err != nil {
		return nil, nil, err
	}
	if err := tables.Validate(); err != nil {
		return nil, nil, fmt.Errorf("generated tables are broken: %w", err)
	}

	var report *spec.Report
	if config.isReportingEnabled {
		report, err = packer.genReport(gram, b.conflicts)
		if err != nil {
			return nil, nil, err
		}
	}

	return &spec.CompiledGrammar{
		Name:      gram.name,
		Lexical:   lexical,
		Syntactic: tables,
	}, report, nil
}

func compileLexSpec(gram *Grammar) (*spec.LexicalSpec, error) {
	lexSpec, err, cErrs := mlcompiler.Compile(gram.lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, fmt.Errorf("%v", b.String())
		}
		return nil, err
	}

	symTab := gram.symbolTable
	kind2Term := make([]int, len(lexSpec.KindNames))
	term2Kind := make([]int, symTab.terminalCount())
	skip := make([]int, len(lexSpec.KindNames))
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kind2Term[i] = spec.SymbolNone
			continue
		}

		sym, ok := symTab.toSymbol(k.String())
		if !ok {
			return nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		kind2Term[i] = symTab.code(sym)
		term2Kind[symTab.code(sym)] = i

		for _, sk := range gram.skipLexKinds {
			if k != sk {
				continue
			}
			skip[i] = 1
			break
		}
	}

	return &spec.LexicalSpec{
		Maleeni:        lexSpec,
		KindToTerminal: kind2Term,
		TerminalToKind: term2Kind,
		Skip:           skip,
	}, nil
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}
