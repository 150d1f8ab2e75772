package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/FlashSQL/sqlite-more-lite/grammar"
	spec "github.com/FlashSQL/sqlite-more-lite/spec/grammar"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "show <report file path>",
		Short:   "Print a report in a readable format",
		Example: `  lrdrive show grammar-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}

	err = writeReport(os.Stdout, report)
	if err != nil {
		return err
	}

	return nil
}

func readReport(path string) (*spec.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the report %s: %w", path, err)
	}
	defer f.Close()

	d, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	report := &spec.Report{}
	err = json.Unmarshal(d, report)
	if err != nil {
		return nil, err
	}

	return report, nil
}

const reportTemplate = `{{ define "state" }}
{{ range .Kernel -}}
{{ printItem . }}
{{ end }}
{{ range .Shift -}}
{{ printShift . }}
{{ end -}}
{{ range .Reduce -}}
{{ printReduce . }}
{{ end -}}
{{ printDefault . }}
{{ range .GoTo -}}
{{ printGoTo . }}
{{ end }}
{{ range .SRConflict -}}
{{ printSRConflict . }}
{{ end -}}
{{ range .RRConflict -}}
{{ printRRConflict . }}
{{ end -}}
{{ end }}# Conflicts

{{ printConflictSummary . }}

# Terminals

{{ range slice .Terminals 1 -}}
{{ printTerminal . }}
{{ end }}
# Productions

{{ range .Productions -}}
{{ printProduction . }}
{{ end }}
# States
{{ range .States }}
## State {{ .Number }}{{ if .AutoReduce }} (auto-reduce){{ end }}
{{ template "state" . }}{{ end }}
{{- if .FusedStates }}
# Fused states
{{ range .FusedStates }}
## Fused state {{ .Number }} (shift-reduce {{ .DefaultReduction }})
{{ template "state" . }}{{ end }}{{ end }}`

func writeReport(w io.Writer, report *spec.Report) error {
	names := map[int]string{}
	for _, t := range report.Terminals {
		names[t.Number] = t.Name
	}
	for _, n := range report.NonTerminals {
		names[n.Number] = n.Name
	}
	symName := func(sym int) string {
		if name, ok := names[sym]; ok {
			return name
		}
		return fmt.Sprintf("<%v>", sym)
	}

	termAssoc := func(sym int) string {
		if sym < 0 || sym >= len(report.Terminals) {
			return "no"
		}
		return assocName(report.Terminals[sym].Associativity)
	}

	prodAssoc := func(prod int) string {
		if prod < 0 || prod >= len(report.Productions) {
			return "no"
		}
		return assocName(report.Productions[prod].Associativity)
	}

	prodText := func(prod int, dot int) string {
		if prod < 0 || prod >= len(report.Productions) {
			return fmt.Sprintf("<production %v>", prod)
		}
		p := report.Productions[prod]
		var b strings.Builder
		fmt.Fprintf(&b, "%v →", symName(p.LHS))
		for i, e := range p.RHS {
			if i == dot {
				fmt.Fprintf(&b, " ・")
			}
			fmt.Fprintf(&b, " %v", symName(e))
		}
		if dot >= len(p.RHS) {
			fmt.Fprintf(&b, " ・")
		} else if dot < 0 && len(p.RHS) == 0 {
			fmt.Fprintf(&b, " ε")
		}
		return b.String()
	}

	fns := template.FuncMap{
		"printConflictSummary": func(report *spec.Report) string {
			implicitlyResolvedCount, explicitlyResolvedCount := countConflicts(report)

			var b strings.Builder
			if implicitlyResolvedCount == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved implicitly.\n", implicitlyResolvedCount)
			} else if implicitlyResolvedCount > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved implicitly.\n", implicitlyResolvedCount)
			}
			if explicitlyResolvedCount == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved explicitly.\n", explicitlyResolvedCount)
			} else if explicitlyResolvedCount > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved explicitly.\n", explicitlyResolvedCount)
			}
			if implicitlyResolvedCount == 0 && explicitlyResolvedCount == 0 {
				fmt.Fprintf(&b, "No conflict")
			}
			return b.String()
		},
		"printTerminal": func(term *spec.Terminal) string {
			prec := " -"
			if term.Precedence != 0 {
				prec = fmt.Sprintf("%2v", term.Precedence)
			}
			assoc := "-"
			if term.Associativity != "" {
				assoc = term.Associativity
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%4v %v %v %v", term.Number, prec, assoc, term.Name)
			switch {
			case term.Number == report.Wildcard:
				fmt.Fprintf(&b, " (wildcard)")
			case term.Skip:
				fmt.Fprintf(&b, " (skip)")
			}
			if term.Fallback != 0 {
				fmt.Fprintf(&b, " => %v", symName(term.Fallback))
			}
			return b.String()
		},
		"printProduction": func(prod *spec.Production) string {
			prec := " -"
			if prod.Precedence != 0 {
				prec = fmt.Sprintf("%2v", prod.Precedence)
			}
			assoc := "-"
			if prod.Associativity != "" {
				assoc = prod.Associativity
			}
			return fmt.Sprintf("%4v %v %v %v", prod.Number, prec, assoc, prodText(prod.Number, -1))
		},
		"printItem": func(item *spec.Item) string {
			return fmt.Sprintf("%4v %v", item.Production, prodText(item.Production, item.Dot))
		},
		"printShift": func(tran *spec.Transition) string {
			if tran.ShiftReduce != nil {
				return fmt.Sprintf("shift-reduce %4v on %v", *tran.ShiftReduce, symName(tran.Symbol))
			}
			return fmt.Sprintf("shift  %4v on %v", tran.State, symName(tran.Symbol))
		},
		"printReduce": func(reduce *spec.Reduce) string {
			var la []string
			for _, a := range reduce.LookAhead {
				la = append(la, symName(a))
			}
			return fmt.Sprintf("reduce %4v on %v", reduce.Production, strings.Join(la, ", "))
		},
		"printDefault": func(state *spec.State) string {
			if state.DefaultReduction == nil {
				return "default: error"
			}
			return fmt.Sprintf("default: reduce %v", *state.DefaultReduction)
		},
		"printGoTo": func(tran *spec.Transition) string {
			switch {
			case tran.Accept:
				return fmt.Sprintf("accept      on %v", symName(tran.Symbol))
			case tran.ShiftReduce != nil:
				return fmt.Sprintf("goto-reduce %4v on %v", *tran.ShiftReduce, symName(tran.Symbol))
			}
			return fmt.Sprintf("goto   %4v on %v", tran.State, symName(tran.Symbol))
		},
		"printSRConflict": func(sr *spec.SRConflict) string {
			adopted := "error"
			switch {
			case sr.AdoptedState != nil:
				adopted = fmt.Sprintf("shift %v", *sr.AdoptedState)
			case sr.AdoptedShiftReduce != nil:
				adopted = fmt.Sprintf("shift-reduce %v", *sr.AdoptedShiftReduce)
			case sr.AdoptedProduction != nil:
				adopted = fmt.Sprintf("reduce %v", *sr.AdoptedProduction)
			}
			var resolvedBy string
			switch sr.ResolvedBy {
			case grammar.ResolvedByPrec.Int():
				if sr.AdoptedState != nil || sr.AdoptedShiftReduce != nil {
					resolvedBy = fmt.Sprintf("symbol %v has higher precedence than production %v", symName(sr.Symbol), sr.Production)
				} else {
					resolvedBy = fmt.Sprintf("production %v has higher precedence than symbol %v", sr.Production, symName(sr.Symbol))
				}
			case grammar.ResolvedByAssoc.Int():
				if sr.AdoptedState != nil || sr.AdoptedShiftReduce != nil {
					resolvedBy = fmt.Sprintf("symbol %v and production %v has the same precedence, and symbol %v has %v associativity", symName(sr.Symbol), sr.Production, symName(sr.Symbol), termAssoc(sr.Symbol))
				} else {
					resolvedBy = fmt.Sprintf("production %v and symbol %v has the same precedence, and production %v has %v associativity", sr.Production, symName(sr.Symbol), sr.Production, prodAssoc(sr.Production))
				}
			case grammar.ResolvedByShift.Int():
				resolvedBy = fmt.Sprintf("symbol %v and production %v don't define a precedence comparison (default rule)", symName(sr.Symbol), sr.Production)
			default:
				resolvedBy = "?" // This is a bug.
			}
			shift := fmt.Sprintf("shift %v", sr.State)
			if sr.ShiftReduce != nil {
				shift = fmt.Sprintf("shift-reduce %v", *sr.ShiftReduce)
			}
			return fmt.Sprintf("shift/reduce conflict (%v, reduce %v) on %v: %v adopted because %v", shift, sr.Production, symName(sr.Symbol), adopted, resolvedBy)
		},
		"printRRConflict": func(rr *spec.RRConflict) string {
			var resolvedBy string
			switch rr.ResolvedBy {
			case grammar.ResolvedByProdOrder.Int():
				resolvedBy = fmt.Sprintf("production %v and %v don't define a precedence comparison (default rule)", rr.Production1, rr.Production2)
			default:
				resolvedBy = "?" // This is a bug.
			}
			return fmt.Sprintf("reduce/reduce conflict (%v, %v) on %v: reduce %v adopted because %v", rr.Production1, rr.Production2, symName(rr.Symbol), rr.AdoptedProduction, resolvedBy)
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}

	err = tmpl.Execute(w, report)
	if err != nil {
		return err
	}

	return nil
}

func assocName(assoc string) string {
	switch assoc {
	case "l":
		return "left"
	case "r":
		return "right"
	case "n":
		return "non"
	default:
		return "no"
	}
}
