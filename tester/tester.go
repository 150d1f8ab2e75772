package tester

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/FlashSQL/sqlite-more-lite/driver/parser"
	gspec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	tspec "github.com/FlashSQL/sqlite-more-lite/spec/test"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

type TestResult struct {
	TestCasePath string
	Error        error
	Diffs        []*tspec.TreeDiff

	// TreeDiff is a line diff between the expected tree and the actual one.
	TreeDiff string
}

func (r *TestResult) String() string {
	if r.Error != nil {
		const indent1 = "    "
		const indent2 = indent1 + indent1

		msgLines := strings.Split(r.Error.Error(), "\n")
		msg := fmt.Sprintf("Failed %v:\n%v%v", r.TestCasePath, indent1, strings.Join(msgLines, "\n"+indent1))
		if len(r.Diffs) == 0 {
			return msg
		}
		var diffLines []string
		for _, diff := range r.Diffs {
			diffLines = append(diffLines, diff.Message)
			diffLines = append(diffLines, fmt.Sprintf("%vexpected path: %v", indent1, diff.ExpectedPath))
			diffLines = append(diffLines, fmt.Sprintf("%vactual path:   %v", indent1, diff.ActualPath))
		}
		if r.TreeDiff != "" {
			diffLines = append(diffLines, "(-expected +actual):")
			diffLines = append(diffLines, strings.Split(strings.TrimRight(r.TreeDiff, "\n"), "\n")...)
		}
		return fmt.Sprintf("%v\n%v%v", msg, indent2, strings.Join(diffLines, "\n"+indent2))
	}
	return fmt.Sprintf("Passed %v", r.TestCasePath)
}

type TestCaseWithMetadata struct {
	TestCase *tspec.TestCase

	// FilePath locates the case. A file holding several cases yields paths suffixed with `#<index>`.
	FilePath string
	Error    error
}

// ListTestCases reads the cases in a file, or in every file under a directory.
func ListTestCases(testPath string) []*TestCaseWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	if !fi.IsDir() {
		cs, err := parseTestCases(testPath)
		if err != nil {
			return []*TestCaseWithMetadata{
				{
					FilePath: testPath,
					Error:    err,
				},
			}
		}
		if len(cs) == 1 {
			return []*TestCaseWithMetadata{
				{
					TestCase: cs[0],
					FilePath: testPath,
				},
			}
		}
		cases := make([]*TestCaseWithMetadata, len(cs))
		for i, c := range cs {
			cases[i] = &TestCaseWithMetadata{
				TestCase: c,
				FilePath: fmt.Sprintf("%v#%v", testPath, i),
			}
		}
		return cases
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	var cases []*TestCaseWithMetadata
	for _, e := range es {
		cs := ListTestCases(filepath.Join(testPath, e.Name()))
		cases = append(cases, cs...)
	}
	return cases
}

func parseTestCases(testCasePath string) ([]*tspec.TestCase, error) {
	f, err := os.Open(testCasePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tspec.ParseTestCases(f)
}

type Tester struct {
	Grammar *gspec.CompiledGrammar
	Cases   []*TestCaseWithMetadata

	// ParserOptions are given to the parser of every case.
	ParserOptions []parser.ParserOption

	// Parallelism limits the number of cases running at once. 0 means runtime.GOMAXPROCS(0).
	Parallelism int
}

// Run runs the cases concurrently, each on a parser of its own, and returns the results in the order
// of the cases. Cases not started before `ctx` is done fail with the context's error.
func (t *Tester) Run(ctx context.Context) []*TestResult {
	rs := make([]*TestResult, len(t.Cases))
	limit := t.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, c := range t.Cases {
		i, c := i, c
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				rs[i] = &TestResult{
					TestCasePath: c.FilePath,
					Error:        err,
				}
				return nil
			}
			rs[i] = runTest(t.Grammar, c, t.ParserOptions)
			return nil
		})
	}
	eg.Wait()
	return rs
}

func runTest(g *gspec.CompiledGrammar, c *TestCaseWithMetadata, opts []parser.ParserOption) *TestResult {
	if c.Error != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        c.Error,
		}
	}

	var p *parser.Parser
	var toks parser.TokenStream
	{
		var err error
		toks, err = parser.NewTokenStream(g, strings.NewReader(c.TestCase.Source))
		if err != nil {
			return &TestResult{
				TestCasePath: c.FilePath,
				Error:        err,
			}
		}
		p, err = parser.NewParser(g.Syntactic, parser.NewSyntaxTreeActions(g.Syntactic), opts...)
		if err != nil {
			return &TestResult{
				TestCasePath: c.FilePath,
				Error:        err,
			}
		}
	}

	err := parser.Parse(p, toks)
	if err != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        err,
		}
	}

	accepted := p.State() == parser.StateAccepted
	if accepted != c.TestCase.Accept {
		var msg string
		if c.TestCase.Accept {
			msg = fmt.Sprintf("the input must be accepted but the parser is %v", p.State())
		} else {
			msg = "the input must not be accepted"
		}
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("%v%v", msg, formatSyntaxErrors(p.SyntaxErrors())),
		}
	}
	if n := len(p.SyntaxErrors()); n != c.TestCase.SyntaxErrors {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("unexpected syntax error count: expected %v but got %v%v", c.TestCase.SyntaxErrors, n, formatSyntaxErrors(p.SyntaxErrors())),
		}
	}

	if c.TestCase.Output == nil {
		return &TestResult{
			TestCasePath: c.FilePath,
		}
	}
	node, ok := p.Result().(*parser.Node)
	if !ok {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("parse tree was not generated"),
		}
	}

	// When a parse tree exists, the test continues regardless of whether or not syntax errors occurred.
	actual := genTree(node).Fill()
	diffs := tspec.DiffTree(c.TestCase.Output, actual)
	if len(diffs) > 0 {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("output mismatch"),
			Diffs:        diffs,
			TreeDiff:     cmp.Diff(strings.Split(string(c.TestCase.Output.Format()), "\n"), strings.Split(string(actual.Format()), "\n")),
		}
	}
	return &TestResult{
		TestCasePath: c.FilePath,
	}
}

func formatSyntaxErrors(synErrs []*parser.SyntaxError) string {
	var b strings.Builder
	for _, synErr := range synErrs {
		fmt.Fprintf(&b, "\nsyntax error: %v", synErr)
		if tok, ok := synErr.Value.(parser.VToken); ok {
			row, col := tok.Position()
			fmt.Fprintf(&b, " at %v:%v", row+1, col+1)
		}
		if len(synErr.ExpectedTerminals) > 0 {
			fmt.Fprintf(&b, "; expected: %v", strings.Join(synErr.ExpectedTerminals, ", "))
		}
	}
	return b.String()
}

func genTree(node *parser.Node) *tspec.Tree {
	switch node.Type {
	case parser.NodeTypeTerminal:
		return tspec.NewTerminalNode(node.KindName, node.Text)
	case parser.NodeTypeError:
		return tspec.NewNonTerminalTree(node.KindName)
	}
	var children []*tspec.Tree
	if len(node.Children) > 0 {
		children = make([]*tspec.Tree, len(node.Children))
		for i, c := range node.Children {
			children[i] = genTree(c)
		}
	}
	return tspec.NewNonTerminalTree(node.KindName, children...)
}
