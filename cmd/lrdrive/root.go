package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lrdrive",
	Short: "Compile a grammar into compressed LALR(1) tables and drive a parser with them",
	Long: `lrdrive provides the following features:
- Compiles a YAML grammar definition into compressed parsing tables and a report.
- Parses a text stream with the compiled tables and prints the syntax tree.
  The parser can trace its steps, which is primarily aimed at debugging the grammar.
- Runs test cases against a grammar.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
