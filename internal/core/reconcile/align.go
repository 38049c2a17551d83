package reconcile

import (
	"fmt"
	"sort"
)

// AlignStatus is the outcome of comparing logged and filled counts.
type AlignStatus string

const (
	StatusCountMatch    AlignStatus = "count_match"
	StatusCountMismatch AlignStatus = "count_mismatch"
)

// Alignment compares the pulse log with the vial range.
type Alignment struct {
	NLogged int
	NFilled int
	Deficit int // NLogged - NFilled; negative when more vials than pulses
	Status  AlignStatus
	Range   VialRange
}

// Align computes the alignment between nlogged pulses and a vial range.
func Align(nlogged int, r VialRange) Alignment {
	a := Alignment{
		NLogged: nlogged,
		NFilled: r.Len(),
		Deficit: nlogged - r.Len(),
		Range:   r,
		Status:  StatusCountMatch,
	}
	if a.Deficit != 0 {
		a.Status = StatusCountMismatch
	}
	return a
}

// Matches reports whether every pulse maps 1:1 onto a vial.
func (a Alignment) Matches() bool {
	return a.Status == StatusCountMatch
}

// Err returns a *MismatchError when the counts disagree, nil otherwise.
func (a Alignment) Err() error {
	if a.Matches() {
		return nil
	}
	return &MismatchError{NLogged: a.NLogged, NFilled: a.NFilled}
}

// CheckMissedCount verifies that declared missed pulses close the deficit.
func CheckMissedCount(a Alignment, declared int) error {
	if declared != a.Deficit {
		return fmt.Errorf("%w: declared %d missed, logged %d, filled %d (expected %d)",
			ErrMissedCountMismatch, declared, a.NLogged, a.NFilled, a.Deficit)
	}
	return nil
}

// ValidateMissedVial checks a single operator entry against the range and
// against vials already collected.
func ValidateMissedVial(r VialRange, v int, seen map[int]bool) error {
	if !r.Contains(v) {
		return fmt.Errorf("%w: please enter an integer between %d and %d", ErrVialOutOfRange, r.First, r.Last)
	}
	if seen[v] {
		return fmt.Errorf("%w: vial %d already entered", ErrDuplicateVial, v)
	}
	return nil
}

// MissedOffsets converts missed vial numbers into 0-based offsets, sorted
// ascending. Values outside the range or repeated values are rejected.
func MissedOffsets(r VialRange, vials []int) ([]int, error) {
	seen := make(map[int]bool, len(vials))
	offsets := make([]int, 0, len(vials))
	for _, v := range vials {
		if err := ValidateMissedVial(r, v, seen); err != nil {
			return nil, err
		}
		seen[v] = true
		off, err := r.Offset(v)
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	return offsets, nil
}
