package terminal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/icvial/internal/core/reconcile"
	"github.com/example/icvial/internal/ports/secondary"
)

func newTestOperator(input string, maxAttempts int) (*Operator, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewOperator(strings.NewReader(input), out, maxAttempts), out
}

func validateRange(first, last int) error {
	_, err := reconcile.NewVialRange(first, last)
	return err
}

func TestOperator_AskVialRange(t *testing.T) {
	op, out := newTestOperator("12\n20\n", 3)

	first, last, err := op.AskVialRange(context.Background(), validateRange)
	if err != nil {
		t.Fatalf("AskVialRange() error = %v", err)
	}
	if first != 12 || last != 20 {
		t.Errorf("AskVialRange() = %d, %d; want 12, 20", first, last)
	}
	if !strings.Contains(out.String(), "First IC vial?") || !strings.Contains(out.String(), "Last IC vial?") {
		t.Errorf("prompts missing from output: %q", out.String())
	}
}

func TestOperator_AskVialRange_RetriesInvalid(t *testing.T) {
	// non-integer, then inverted range, then a valid one
	op, out := newTestOperator("abc\n30\n20\n20\n30\n", 3)

	first, last, err := op.AskVialRange(context.Background(), validateRange)
	if err != nil {
		t.Fatalf("AskVialRange() error = %v", err)
	}
	if first != 20 || last != 30 {
		t.Errorf("AskVialRange() = %d, %d; want 20, 30", first, last)
	}
	if !strings.Contains(out.String(), "is not an integer") {
		t.Errorf("output should explain the parse failure: %q", out.String())
	}
	if !strings.Contains(out.String(), "invalid vial range") {
		t.Errorf("output should explain the range failure: %q", out.String())
	}
}

func TestOperator_AskMissedCount(t *testing.T) {
	m := secondary.Mismatch{NLogged: 12, NFilled: 10, Deficit: 2, FirstVial: 1, LastVial: 10}

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty accepts deficit", input: "\n", want: 2},
		{name: "explicit count", input: "3\n", want: 3},
		{name: "retry after garbage", input: "two\n2\n", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, out := newTestOperator(tt.input, 3)
			got, err := op.AskMissedCount(context.Background(), m)
			if err != nil {
				t.Fatalf("AskMissedCount() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AskMissedCount() = %d, want %d", got, tt.want)
			}
			if !strings.Contains(out.String(), "DO NOT MATCH") {
				t.Errorf("mismatch warning missing: %q", out.String())
			}
		})
	}
}

func TestOperator_AskMissedVial(t *testing.T) {
	r := reconcile.VialRange{First: 101, Last: 110}
	m := secondary.Mismatch{FirstVial: r.First, LastVial: r.Last}
	seen := map[int]bool{105: true}
	validate := func(v int) error { return reconcile.ValidateMissedVial(r, v, seen) }

	// out of range, duplicate, non-integer, then valid
	op, out := newTestOperator("99\n105\nx\n107\n", 5)

	got, err := op.AskMissedVial(context.Background(), m, validate)
	if err != nil {
		t.Fatalf("AskMissedVial() error = %v", err)
	}
	if got != 107 {
		t.Errorf("AskMissedVial() = %d, want 107", got)
	}
	if strings.Count(out.String(), "Vial?") != 4 {
		t.Errorf("expected 4 prompts, output: %q", out.String())
	}
	if !strings.Contains(out.String(), "between 101 and 110") {
		t.Errorf("range hint missing: %q", out.String())
	}
}

func TestOperator_AskMissedVial_BoundedRetries(t *testing.T) {
	r := reconcile.VialRange{First: 1, Last: 3}
	m := secondary.Mismatch{FirstVial: 1, LastVial: 3}
	validate := func(v int) error { return reconcile.ValidateMissedVial(r, v, nil) }

	op, _ := newTestOperator("9\n9\n9\n9\n", 3)

	_, err := op.AskMissedVial(context.Background(), m, validate)
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("AskMissedVial() error = %v, want %v", err, ErrTooManyAttempts)
	}
}

func TestOperator_EndOfInput(t *testing.T) {
	op, _ := newTestOperator("", 3)

	if _, err := op.AskMissedVial(context.Background(), secondary.Mismatch{}, nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("AskMissedVial() error = %v, want %v", err, ErrNoInput)
	}
}

func TestOperator_CancelledContext(t *testing.T) {
	op, _ := newTestOperator("5\n", 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := op.AskVialRange(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("AskVialRange() error = %v, want %v", err, context.Canceled)
	}
}

func TestOperator_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			op, out := newTestOperator(tt.input, 3)
			got, err := op.Confirm(context.Background(), "Overwrite?")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Overwrite? [y/N]: ") {
				t.Errorf("prompt missing: %q", out.String())
			}
		})
	}
}
