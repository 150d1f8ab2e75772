package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/FlashSQL/sqlite-more-lite/driver/parser"
	"github.com/FlashSQL/sqlite-more-lite/grammar"
	"github.com/FlashSQL/sqlite-more-lite/tester"
	"github.com/spf13/cobra"
)

var testFlags = struct {
	recovery *string
	parallel *int
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "test <grammar file path> <test file path>|<test directory path>",
		Short:   "Test a grammar",
		Example: `  lrdrive test grammar.yaml test`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	testFlags.recovery = cmd.Flags().String("recovery", "", "error recovery policy: none, error-symbol, or discard")
	testFlags.parallel = cmd.Flags().IntP("parallel", "p", 0, "maximum number of test cases running at once (0 means GOMAXPROCS)")
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	g, err := readGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a grammar: %w", err)
	}
	cg, _, err := grammar.Compile(g)
	if err != nil {
		return fmt.Errorf("Cannot compile a grammar: %w", err)
	}

	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(args[1])
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				fmt.Fprintf(os.Stderr, "Failed to read a test case or a directory: %v\n%v\n", c.FilePath, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("Cannot run test")
		}
	}

	var opts []parser.ParserOption
	if *testFlags.recovery != "" {
		policy, err := parser.ParseRecoveryPolicy(*testFlags.recovery)
		if err != nil {
			return err
		}
		opts = append(opts, parser.ErrorRecovery(policy))
	}

	t := &tester.Tester{
		Grammar:       cg,
		Cases:         cs,
		ParserOptions: opts,
		Parallelism:   *testFlags.parallel,
	}
	rs := t.Run(cmd.Context())
	testFailed := false
	for _, r := range rs {
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil {
			testFailed = true
		}
	}
	if testFailed {
		return errors.New("Test failed")
	}
	return nil
}
