package reconcile

import "fmt"

// VialRange is the contiguous, operator-declared range of filled vials.
type VialRange struct {
	First int
	Last  int
}

// NewVialRange validates and returns a vial range.
// Rule: both bounds are positive and first <= last.
func NewVialRange(first, last int) (VialRange, error) {
	if first <= 0 || last <= 0 {
		return VialRange{}, fmt.Errorf("%w: vial numbers must be positive (got %d-%d)", ErrInvalidVialRange, first, last)
	}
	if first > last {
		return VialRange{}, fmt.Errorf("%w: first vial %d is after last vial %d", ErrInvalidVialRange, first, last)
	}
	return VialRange{First: first, Last: last}, nil
}

// Len returns the number of vials filled.
func (r VialRange) Len() int {
	return r.Last - r.First + 1
}

// Contains reports whether v lies within the range.
func (r VialRange) Contains(v int) bool {
	return v >= r.First && v <= r.Last
}

// Offset returns the 0-based position of vial v within the range.
func (r VialRange) Offset(v int) (int, error) {
	if !r.Contains(v) {
		return 0, fmt.Errorf("%w: vial %d not in %s", ErrVialOutOfRange, v, r)
	}
	return v - r.First, nil
}

// Vial returns the vial number at offset.
func (r VialRange) Vial(offset int) int {
	return r.First + offset
}

// Numbers returns every vial number in ascending order.
func (r VialRange) Numbers() []int {
	out := make([]int, r.Len())
	for i := range out {
		out[i] = r.First + i
	}
	return out
}

func (r VialRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.First, r.Last)
}
