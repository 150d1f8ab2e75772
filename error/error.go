package error

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// SpecErrors collects every problem found in a grammar definition so that a single compile run
// reports all of them.
type SpecErrors []*SpecError

func (e SpecErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	sorted := make([]*SpecError, len(e))
	copy(sorted, e)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Row < sorted[j].Row
	})

	lines := map[string][]string{}
	var b strings.Builder
	for i, err := range sorted {
		if i > 0 {
			fmt.Fprintf(&b, "\n")
		}
		writeSpecError(&b, err, lines)
	}

	return b.String()
}

// SpecError is a semantic error in a grammar definition. Row is 1-based; 0 means the error
// concerns the definition as a whole.
type SpecError struct {
	Cause      error
	Detail     string
	FilePath   string
	SourceName string
	Row        int
}

func (e *SpecError) Error() string {
	var b strings.Builder
	writeSpecError(&b, e, map[string][]string{})
	return b.String()
}

func (e *SpecError) Unwrap() error {
	return e.Cause
}

func writeSpecError(b *strings.Builder, e *SpecError, cache map[string][]string) {
	if e.SourceName != "" {
		fmt.Fprintf(b, "%v: ", e.SourceName)
	}
	if e.Row != 0 {
		fmt.Fprintf(b, "%v: ", e.Row)
	}
	fmt.Fprintf(b, "error: %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(b, ": %v", e.Detail)
	}

	if e.FilePath == "" || e.Row <= 0 {
		return
	}
	lines, ok := cache[e.FilePath]
	if !ok {
		lines = readLines(e.FilePath)
		cache[e.FilePath] = lines
	}
	if e.Row <= len(lines) && strings.TrimSpace(lines[e.Row-1]) != "" {
		fmt.Fprintf(b, "\n    %v", lines[e.Row-1])
	}
}

func readLines(filePath string) []string {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines
}
