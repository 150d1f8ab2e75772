package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	verr "github.com/FlashSQL/sqlite-more-lite/error"
	"github.com/FlashSQL/sqlite-more-lite/grammar"
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output             *string
	disableShiftReduce *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile [grammar file path]",
		Short:   "Compile a grammar definition into parsing tables",
		Example: `  lrdrive compile grammar.yaml -o grammar.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.disableShiftReduce = cmd.Flags().Bool("disable-shift-reduce", false, "keep auto-reduce states instead of fusing shifts into them")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr != nil {
			specErrs, ok := retErr.(verr.SpecErrors)
			if ok {
				for _, err := range specErrs {
					if grmPath != "" {
						err.SourceName = grmPath
					} else {
						err.SourceName = "stdin"
					}
				}
			}
		}
	}()

	var gram *grammar.Grammar
	if grmPath == "" {
		var err error
		gram, err = buildGrammar(os.Stdin, "")
		if err != nil {
			return err
		}
	} else {
		var err error
		gram, err = readGrammar(grmPath)
		if err != nil {
			return err
		}
	}

	opts := []grammar.CompileOption{
		grammar.EnableReporting(),
	}
	if *compileFlags.disableShiftReduce {
		opts = append(opts, grammar.DisableShiftReduce())
	}
	cgram, report, err := grammar.Compile(gram, opts...)
	if err != nil {
		return err
	}

	err = writeCompiledGrammarAndReport(cgram, report, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("Cannot write an output files: %w", err)
	}

	implicitlyResolvedCount, _ := countConflicts(report)
	if implicitlyResolvedCount > 0 {
		fmt.Fprintf(conflictSummaryWriter(*compileFlags.output), "%v conflicts\n", implicitlyResolvedCount)
	}

	return nil
}

// countConflicts counts the conflicts of every state, fused ones included. A conflict is implicitly
// resolved when neither precedence nor associativity decided it.
func countConflicts(report *spec.Report) (implicit int, explicit int) {
	for _, s := range report.AllStates() {
		for _, c := range s.SRConflict {
			if c.ResolvedBy == grammar.ResolvedByShift.Int() {
				implicit++
			} else {
				explicit++
			}
		}
		for _, c := range s.RRConflict {
			if c.ResolvedBy == grammar.ResolvedByProdOrder.Int() {
				implicit++
			} else {
				explicit++
			}
		}
	}
	return implicit, explicit
}

// conflictSummaryWriter returns stdout unless the compiled grammar itself goes to stdout.
func conflictSummaryWriter(output string) io.Writer {
	if output == "" {
		return os.Stderr
	}
	return os.Stdout
}

func readGrammar(path string) (*grammar.Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	return buildGrammar(f, path)
}

func buildGrammar(src io.Reader, path string) (*grammar.Grammar, error) {
	def, err := spec.ParseDefinition(src)
	if err != nil {
		return nil, err
	}

	b := grammar.GrammarBuilder{
		Def:      def,
		FilePath: path,
	}
	return b.Build()
}

// writeCompiledGrammarAndReport writes a compiled grammar and a report to files located at a specified path.
// This function selects one of the following output methods depending on how the path is specified.
//
//  1. When the path is a directory path, this function writes the compiled grammar and the report to
//     <path>/<grammar-name>.json and <path>/<grammar-name>-report.json files, respectively.
//  2. When the path is a file path or a non-existent path, this function assumes that the path represents a file
//     path for the compiled grammar. Then it also writes the report in the same directory as the compiled grammar.
//     The report file is named <grammar-name>-report.json.
//  3. When the path is an empty string, this function writes the compiled grammar to the stdout and writes
//     the report to a file named <current-directory>/<grammar-name>-report.json.
func writeCompiledGrammarAndReport(cgram *spec.CompiledGrammar, report *spec.Report, path string) error {
	cgramPath, reportPath, err := makeOutputFilePaths(cgram.Name, path)
	if err != nil {
		return err
	}

	{
		var cgramW io.Writer
		if cgramPath != "" {
			cgramFile, err := os.OpenFile(cgramPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			defer cgramFile.Close()
			cgramW = cgramFile
		} else {
			cgramW = os.Stdout
		}

		b, err := json.Marshal(cgram)
		if err != nil {
			return err
		}
		fmt.Fprintf(cgramW, "%v\n", string(b))
	}

	{
		reportFile, err := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer reportFile.Close()

		b, err := json.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintf(reportFile, "%v\n", string(b))
	}

	return nil
}

func makeOutputFilePaths(gramName string, path string) (string, string, error) {
	reportFileName := gramName + "-report.json"

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		return "", filepath.Join(wd, reportFileName), nil
	}

	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return "", "", err
	}
	if os.IsNotExist(err) || !fi.IsDir() {
		dir, _ := filepath.Split(path)
		return path, filepath.Join(dir, reportFileName), nil
	}

	return filepath.Join(path, gramName+".json"), filepath.Join(path, reportFileName), nil
}
