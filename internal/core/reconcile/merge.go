package reconcile

import (
	"fmt"
	"sort"
)

// MergeStep records a single applied merge.
type MergeStep struct {
	Offset        int    // Position of the retained row
	RetainedIndex string // Index label of the retained row
	AbsorbedIndex string // Index label of the removed successor
}

// MergeWithNext folds the pulse at offset into its successor and removes the
// successor. The retained row keeps its top depth and all other columns; its
// bottom depth becomes the successor's, breaks are OR-ed and it is marked
// merged. The input slice is not modified.
func MergeWithNext(rows []Pulse, offset int) ([]Pulse, error) {
	if offset < 0 || offset >= len(rows) {
		return nil, fmt.Errorf("%w: offset %d, %d rows", ErrOffsetOutOfRange, offset, len(rows))
	}
	if offset == len(rows)-1 {
		return nil, fmt.Errorf("%w: offset %d", ErrNoSuccessor, offset)
	}

	next := rows[offset+1]
	out := make([]Pulse, 0, len(rows)-1)
	out = append(out, cloneRows(rows[:offset+1])...)
	out = append(out, cloneRows(rows[offset+2:])...)

	merged := &out[offset]
	merged.DepthBot = next.DepthBot
	merged.Break = merged.Break || next.Break
	merged.Merged = true

	return out, nil
}

// MergeMissed merges every missed offset into its successor.
//
// Merges run from the highest offset down: removing row i+1 only shifts rows
// after it, so offsets computed against the original table stay valid for
// every merge not yet applied. Adjacent offsets chain into the nearest
// surviving successor.
func MergeMissed(rows []Pulse, offsets []int) ([]Pulse, []MergeStep, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptyTable
	}

	desc := append([]int(nil), offsets...)
	sort.Sort(sort.Reverse(sort.IntSlice(desc)))

	for i, off := range desc {
		if i > 0 && off == desc[i-1] {
			return nil, nil, fmt.Errorf("%w: offset %d", ErrDuplicateVial, off)
		}
		if off < 0 || off >= len(rows) {
			return nil, nil, fmt.Errorf("%w: offset %d, %d rows", ErrOffsetOutOfRange, off, len(rows))
		}
		if off == len(rows)-1 {
			return nil, nil, fmt.Errorf("%w: offset %d", ErrNoSuccessor, off)
		}
	}

	current := cloneRows(rows)
	steps := make([]MergeStep, 0, len(desc))
	for _, off := range desc {
		step := MergeStep{
			Offset:        off,
			RetainedIndex: current[off].Index,
			AbsorbedIndex: current[off+1].Index,
		}
		next, err := MergeWithNext(current, off)
		if err != nil {
			return nil, nil, err
		}
		current = next
		steps = append(steps, step)
	}

	return current, steps, nil
}
