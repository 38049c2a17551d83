// Package terminal implements operator prompts on a line-oriented terminal.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/example/icvial/internal/ports/secondary"
)

// DefaultMaxAttempts bounds how often a single question is re-asked.
const DefaultMaxAttempts = 5

var (
	// ErrTooManyAttempts is returned when the operator never gave a valid answer.
	ErrTooManyAttempts = errors.New("too many invalid answers")

	// ErrNoInput is returned when input ends before a valid answer was read.
	ErrNoInput = errors.New("no more operator input")
)

var (
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// Operator implements secondary.Operator over a reader/writer pair.
type Operator struct {
	in          *bufio.Reader
	out         io.Writer
	maxAttempts int
}

// NewOperator creates a terminal operator. maxAttempts <= 0 uses DefaultMaxAttempts.
func NewOperator(in io.Reader, out io.Writer, maxAttempts int) *Operator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Operator{
		in:          bufio.NewReader(in),
		out:         out,
		maxAttempts: maxAttempts,
	}
}

// AskVialRange asks for the first and last IC vial of the run.
func (o *Operator) AskVialRange(ctx context.Context, validate func(first, last int) error) (int, int, error) {
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		first, err := o.askInt(ctx, "First IC vial? ", nil)
		if err != nil {
			return 0, 0, err
		}
		last, err := o.askInt(ctx, "Last IC vial? ", nil)
		if err != nil {
			return 0, 0, err
		}
		if validate == nil {
			return first, last, nil
		}
		if err := validate(first, last); err != nil {
			o.complain(err)
			continue
		}
		return first, last, nil
	}
	return 0, 0, fmt.Errorf("vial range: %w (%d attempts)", ErrTooManyAttempts, o.maxAttempts)
}

// AskMissedCount shows the mismatch and asks how many pulses were missed.
func (o *Operator) AskMissedCount(ctx context.Context, m secondary.Mismatch) (int, error) {
	warnColor.Fprintln(o.out, "WARNING, logged and filled number of vials DO NOT MATCH")
	fmt.Fprintf(o.out, "logged: %d\n", m.NLogged)
	fmt.Fprintf(o.out, "filled: %d\n", m.NFilled)

	prompt := fmt.Sprintf("Please enter the number of missed pulses (%d): ", m.Deficit)
	return o.askInt(ctx, prompt, func(line string) (int, bool) {
		if line == "" {
			return m.Deficit, true
		}
		return 0, false
	})
}

// AskMissedVial asks for one missed vial number.
func (o *Operator) AskMissedVial(ctx context.Context, m secondary.Mismatch, validate func(vial int) error) (int, error) {
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		v, err := o.readInt(ctx, "Vial? ")
		if err != nil {
			if errors.Is(err, ErrNoInput) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, err
			}
			o.complain(fmt.Errorf("please enter an integer between %d and %d", m.FirstVial, m.LastVial))
			continue
		}
		if validate != nil {
			if err := validate(v); err != nil {
				o.complain(err)
				continue
			}
		}
		return v, nil
	}
	return 0, fmt.Errorf("missed vial: %w (%d attempts)", ErrTooManyAttempts, o.maxAttempts)
}

// Confirm asks a yes/no question. Anything but y/yes is a no.
func (o *Operator) Confirm(ctx context.Context, msg string) (bool, error) {
	line, err := o.readLine(ctx, fmt.Sprintf("%s [y/N]: ", msg))
	if err != nil {
		if errors.Is(err, ErrNoInput) {
			return false, nil
		}
		return false, err
	}
	line = strings.ToLower(line)
	return line == "y" || line == "yes", nil
}

// askInt re-asks until an integer is entered. fallback may map a raw line
// to a value before integer parsing.
func (o *Operator) askInt(ctx context.Context, prompt string, fallback func(line string) (int, bool)) (int, error) {
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		line, err := o.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		if fallback != nil {
			if v, ok := fallback(line); ok {
				return v, nil
			}
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			o.complain(fmt.Errorf("%q is not an integer", line))
			continue
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w (%d attempts)", ErrTooManyAttempts, o.maxAttempts)
}

func (o *Operator) readInt(ctx context.Context, prompt string) (int, error) {
	line, err := o.readLine(ctx, prompt)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(line)
}

// readLine prints prompt and returns the trimmed answer.
func (o *Operator) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(o.out, prompt)

	line, err := o.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		if err == io.EOF {
			fmt.Fprintln(o.out)
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (o *Operator) complain(err error) {
	errColor.Fprintf(o.out, "  %v\n", err)
}

var _ secondary.Operator = (*Operator)(nil)
