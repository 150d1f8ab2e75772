package error

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSpecError(t *testing.T) {
	cause := errors.New("duplicate production")

	dir := t.TempDir()
	path := filepath.Join(dir, "g.yaml")
	err := os.WriteFile(path, []byte("name: g\nstart: s\n  - lhs: s\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		caption string
		err     *SpecError
		msg     string
	}{
		{
			caption: "the cause only",
			err: &SpecError{
				Cause: cause,
			},
			msg: "error: duplicate production",
		},
		{
			caption: "with a source name, a row, and a detail",
			err: &SpecError{
				Cause:      cause,
				Detail:     "s: foo",
				SourceName: "g.yaml",
				Row:        3,
			},
			msg: "g.yaml: 3: error: duplicate production: s: foo",
		},
		{
			caption: "quoting the offending line",
			err: &SpecError{
				Cause:    cause,
				FilePath: path,
				Row:      3,
			},
			msg: "3: error: duplicate production\n      - lhs: s",
		},
		{
			caption: "a row past the end of the file is not quoted",
			err: &SpecError{
				Cause:    cause,
				FilePath: path,
				Row:      10,
			},
			msg: "10: error: duplicate production",
		},
		{
			caption: "a missing file is not quoted",
			err: &SpecError{
				Cause:    cause,
				FilePath: filepath.Join(dir, "missing.yaml"),
				Row:      1,
			},
			msg: "1: error: duplicate production",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Fatalf("unexpected message; want: %q, got: %q", tt.msg, tt.err.Error())
			}
			if !errors.Is(tt.err, cause) {
				t.Fatalf("the error doesn't wrap its cause")
			}
		})
	}
}

func TestSpecErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	errC := errors.New("c")

	var errs SpecErrors
	if errs.Error() != "" {
		t.Fatalf("an empty list must have an empty message: %q", errs.Error())
	}

	errs = SpecErrors{
		{Cause: errC, Row: 9},
		{Cause: errA, Row: 2},
		{Cause: errB},
	}
	want := "error: b\n2: error: a\n9: error: c"
	if errs.Error() != want {
		t.Fatalf("unexpected message; want: %q, got: %q", want, errs.Error())
	}
	if errs[0].Cause != errC {
		t.Fatalf("Error must not reorder the receiver")
	}

	var target *SpecError
	var err error = errs[1]
	if !errors.As(err, &target) || target.Row != 2 {
		t.Fatalf("errors.As failed: %v", err)
	}
}
