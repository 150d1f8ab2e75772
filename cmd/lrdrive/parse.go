package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/FlashSQL/sqlite-more-lite/driver/parser"
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source      *string
	onlyParse   *bool
	json        *bool
	trace       *bool
	tracePrompt *string
	recovery    *string
	stackDepth  *int
	window      *int
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <compiled grammar file path>",
		Short:   "Parse a text stream",
		Example: `  cat src | lrdrive parse grammar.json --trace`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.onlyParse = cmd.Flags().Bool("only-parse", false, "when this option is enabled, the parser doesn't build a syntax tree")
	parseFlags.json = cmd.Flags().Bool("json", false, "print the syntax tree in JSON")
	parseFlags.trace = cmd.Flags().Bool("trace", false, "write every step of the parser to stderr")
	parseFlags.tracePrompt = cmd.Flags().String("trace-prompt", "> ", "prefix of each trace line")
	parseFlags.recovery = cmd.Flags().String("recovery", "", "error recovery policy: none, error-symbol, or discard (default error-symbol when the grammar has an error symbol, otherwise discard)")
	parseFlags.stackDepth = cmd.Flags().Int("stack-depth", 0, "maximum number of stack frames (0 means unlimited)")
	parseFlags.window = cmd.Flags().Int("window", parser.DefaultSuppressionWindow, "number of tokens to shift after a syntax error before reporting the next one")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) (retErr error) {
	defer func() {
		v := recover()
		if v != nil {
			err, ok := v.(error)
			if !ok {
				err = fmt.Errorf("an unexpected error occurred: %v", v)
			}
			fmt.Fprintf(os.Stderr, "%v:\n%v", err, string(debug.Stack()))
			retErr = err
		}
	}()

	if *parseFlags.onlyParse && *parseFlags.json {
		return fmt.Errorf("You cannot enable --only-parse and --json at the same time")
	}

	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	var src io.Reader = os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	opts := []parser.ParserOption{
		parser.StackDepth(*parseFlags.stackDepth),
		parser.SuppressionWindow(*parseFlags.window),
	}
	if *parseFlags.recovery != "" {
		policy, err := parser.ParseRecoveryPolicy(*parseFlags.recovery)
		if err != nil {
			return err
		}
		opts = append(opts, parser.ErrorRecovery(policy))
	}
	if *parseFlags.trace {
		opts = append(opts, parser.Trace(os.Stderr, *parseFlags.tracePrompt))
	}

	var actions *parser.ActionTable
	if !*parseFlags.onlyParse {
		actions = parser.NewSyntaxTreeActions(cgram.Syntactic)
	} else {
		actions = &parser.ActionTable{}
	}
	actions.StackOverflow = func(ctx *parser.Context) {
		fmt.Fprintf(os.Stderr, "stack overflow\n")
	}

	p, err := parser.NewParser(cgram.Syntactic, actions, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	toks, err := parser.NewTokenStream(cgram, src)
	if err != nil {
		return err
	}
	err = parser.Parse(p, toks)
	if err != nil {
		return err
	}

	for _, synErr := range p.SyntaxErrors() {
		fmt.Fprintf(os.Stderr, "%v\n", formatSyntaxError(synErr))
	}
	for _, err := range p.Errors() {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	if p.State() != parser.StateAccepted {
		return fmt.Errorf("the input was not accepted; the parser is %v", p.State())
	}
	if *parseFlags.onlyParse {
		return nil
	}

	tree, ok := p.Result().(*parser.Node)
	if !ok {
		return fmt.Errorf("a syntax tree was not generated")
	}
	if *parseFlags.json {
		b, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%v\n", string(b))
		return nil
	}
	parser.PrintTree(os.Stdout, tree)

	return nil
}

func formatSyntaxError(synErr *parser.SyntaxError) string {
	var b strings.Builder
	tok, ok := synErr.Value.(parser.VToken)
	if ok {
		row, col := tok.Position()
		fmt.Fprintf(&b, "%v:%v: ", row+1, col+1)
	}
	fmt.Fprintf(&b, "syntax error: ")
	switch {
	case ok && tok.EOF():
		fmt.Fprintf(&b, "<eof>")
	case ok && tok.Invalid():
		fmt.Fprintf(&b, "'%v' (<invalid>)", string(tok.Lexeme()))
	case ok:
		fmt.Fprintf(&b, "'%v' (%v)", string(tok.Lexeme()), synErr.Name)
	default:
		fmt.Fprintf(&b, "%v", synErr.Name)
	}
	if len(synErr.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(synErr.ExpectedTerminals, ", "))
	}
	return b.String()
}

func readCompiledGrammar(path string) (*spec.CompiledGrammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cgram := &spec.CompiledGrammar{}
	err = json.Unmarshal(data, cgram)
	if err != nil {
		return nil, err
	}
	if cgram.Syntactic == nil {
		return nil, fmt.Errorf("%v has no parsing tables", path)
	}
	return cgram, nil
}
