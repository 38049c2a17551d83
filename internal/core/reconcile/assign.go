package reconcile

// AssignVials numbers rows in their current order: row k gets First+k.
// The row count must equal the vial count exactly.
func AssignVials(rows []Pulse, r VialRange) ([]Pulse, error) {
	if len(rows) != r.Len() {
		return nil, &RowCountError{Got: len(rows), Want: r.Len(), Err: ErrRowCountInvariant}
	}
	out := cloneRows(rows)
	for k := range out {
		out[k].Vial = r.Vial(k)
	}
	return out, nil
}

// Result is a finished reconciliation.
type Result struct {
	Alignment Alignment
	Offsets   []int
	Steps     []MergeStep
	Rows      []Pulse
}

// Reconcile merges the given missed vials and assigns vial numbers.
// missedVials must be empty when the counts already match.
func Reconcile(rows []Pulse, r VialRange, missedVials []int) (Result, error) {
	if len(rows) == 0 {
		return Result{}, ErrEmptyTable
	}

	a := Align(len(rows), r)
	res := Result{Alignment: a}

	if err := CheckMissedCount(a, len(missedVials)); err != nil {
		return res, err
	}

	offsets, err := MissedOffsets(r, missedVials)
	if err != nil {
		return res, err
	}
	res.Offsets = offsets

	merged, steps, err := MergeMissed(rows, offsets)
	if err != nil {
		return res, err
	}
	res.Steps = steps

	assigned, err := AssignVials(merged, r)
	if err != nil {
		return res, err
	}
	res.Rows = assigned

	return res, nil
}
