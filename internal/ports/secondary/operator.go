package secondary

import "context"

// Operator defines the secondary port for interactive operator input.
// Implementations re-ask on invalid input up to a bounded number of attempts.
type Operator interface {
	// AskVialRange asks for the first and last vial of the run.
	AskVialRange(ctx context.Context, validate func(first, last int) error) (first, last int, err error)

	// AskMissedCount asks how many pulses were missed. An empty answer
	// accepts the deficit between logged and filled counts.
	AskMissedCount(ctx context.Context, m Mismatch) (int, error)

	// AskMissedVial asks for one missed vial number.
	AskMissedVial(ctx context.Context, m Mismatch, validate func(vial int) error) (int, error)

	// Confirm asks a yes/no question; the default answer is no.
	Confirm(ctx context.Context, msg string) (bool, error)
}

// Mismatch describes a count disagreement presented to the operator.
type Mismatch struct {
	NLogged   int
	NFilled   int
	Deficit   int
	FirstVial int
	LastVial  int
}
