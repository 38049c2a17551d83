package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVialRange is returned for non-positive or inverted vial ranges.
	ErrInvalidVialRange = errors.New("invalid vial range")

	// ErrVialOutOfRange is returned when a missed vial is outside the declared range.
	ErrVialOutOfRange = errors.New("vial out of range")

	// ErrDuplicateVial is returned when the same missed vial is declared twice.
	ErrDuplicateVial = errors.New("duplicate missed vial")

	// ErrMissedCountMismatch is returned when the declared missed count does not
	// close the gap between logged and filled counts.
	ErrMissedCountMismatch = errors.New("declared missed count does not reconcile total row counts")

	// ErrNoSuccessor is returned when asked to merge the final pulse.
	ErrNoSuccessor = errors.New("cannot merge final pulse with nonexistent successor")

	// ErrOffsetOutOfRange is returned for merge offsets outside the table.
	ErrOffsetOutOfRange = errors.New("merge offset out of range")

	// ErrRowCountInvariant is returned when the reconciled table does not have
	// exactly one row per filled vial.
	ErrRowCountInvariant = errors.New("reconciled row count does not match filled vials")

	// ErrEmptyTable is returned for a pulse table without rows.
	ErrEmptyTable = errors.New("pulse table is empty")
)

// MismatchError signals that logged and filled counts disagree.
type MismatchError struct {
	NLogged int
	NFilled int
}

// Deficit is the number of pulses that must be merged away.
func (e *MismatchError) Deficit() int {
	return e.NLogged - e.NFilled
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("logged and filled number of vials do not match (logged: %d, filled: %d, deficit: %d)",
		e.NLogged, e.NFilled, e.Deficit())
}

// RowCountError carries both counts for a failed reconciliation.
type RowCountError struct {
	Got  int
	Want int
	Err  error
}

func (e *RowCountError) Error() string {
	return fmt.Sprintf("%v (rows: %d, vials: %d)", e.Err, e.Got, e.Want)
}

func (e *RowCountError) Unwrap() error {
	return e.Err
}
