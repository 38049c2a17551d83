// Package reconcile contains the pure business logic for aligning logged
// fraction pulses with the vials that were physically filled.
// This is part of the Functional Core - no I/O, only pure functions.
package reconcile

import "fmt"

// Column names of the vial info and assignment tables.
const (
	ColDepthTop = "Depth_top"
	ColDepthBot = "Depth_bot"
	ColBag      = "Bag"
	ColMerged   = "Merged"
	ColVial     = "IC_Vial"

	// DefaultBreakColumn is the break indicator column written by the CFA logger.
	DefaultBreakColumn = "Breaks"
)

// Pulse is one logged fraction event.
type Pulse struct {
	Index    string // Row label from the source table, preserved verbatim
	DepthTop float64
	DepthBot float64
	Break    bool
	Bag      string
	Merged   bool     // Set on a row that absorbed a missed neighbour
	Extra    []string // Values of Table.ExtraColumns(), carried through unchanged
	Vial     int      // Assigned vial number; zero until AssignVials
}

// Table is an ordered pulse sequence plus the column layout it was read with.
type Table struct {
	IndexName   string   // Header of the leading index column (often empty)
	Columns     []string // Data column names in source order, without Merged and IC_Vial
	BreakColumn string
	Rows        []Pulse
}

// IsKnownColumn reports whether name maps onto a Pulse field.
func (t *Table) IsKnownColumn(name string) bool {
	switch name {
	case ColDepthTop, ColDepthBot, ColBag, ColMerged, ColVial, t.BreakColumnName():
		return true
	}
	return false
}

// ExtraColumns returns the columns carried through unchanged, in source order.
func (t *Table) ExtraColumns() []string {
	var extra []string
	for _, c := range t.Columns {
		if !t.IsKnownColumn(c) {
			extra = append(extra, c)
		}
	}
	return extra
}

// BreakColumnName returns the break indicator column, defaulting to Breaks.
func (t *Table) BreakColumnName() string {
	if t.BreakColumn == "" {
		return DefaultBreakColumn
	}
	return t.BreakColumn
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		IndexName:   t.IndexName,
		Columns:     append([]string(nil), t.Columns...),
		BreakColumn: t.BreakColumn,
		Rows:        cloneRows(t.Rows),
	}
	return out
}

// WithRows returns a copy of the table layout holding the given rows.
func (t *Table) WithRows(rows []Pulse) *Table {
	out := t.Clone()
	out.Rows = cloneRows(rows)
	return out
}

// DepthRange returns the top of the first pulse and the bottom of the last.
func (t *Table) DepthRange() (top, bot float64) {
	if len(t.Rows) == 0 {
		return 0, 0
	}
	return t.Rows[0].DepthTop, t.Rows[len(t.Rows)-1].DepthBot
}

// Bags returns the distinct bag labels in order of first appearance.
func (t *Table) Bags() []string {
	seen := make(map[string]bool)
	var bags []string
	for _, p := range t.Rows {
		if seen[p.Bag] {
			continue
		}
		seen[p.Bag] = true
		bags = append(bags, p.Bag)
	}
	return bags
}

// DepthIssue describes a row whose depths look wrong.
type DepthIssue struct {
	Row    int
	Index  string
	Reason string
}

func (d DepthIssue) String() string {
	return fmt.Sprintf("row %d (index %s): %s", d.Row, d.Index, d.Reason)
}

// CheckDepths reports inverted intervals and non-monotonic depths.
// The logger does not guarantee either property, so issues are advisory.
func CheckDepths(rows []Pulse) []DepthIssue {
	var issues []DepthIssue
	for i, p := range rows {
		if p.DepthTop >= p.DepthBot {
			issues = append(issues, DepthIssue{
				Row:    i,
				Index:  p.Index,
				Reason: fmt.Sprintf("depth_top %g is not above depth_bot %g", p.DepthTop, p.DepthBot),
			})
		}
		if i > 0 && p.DepthTop < rows[i-1].DepthTop {
			issues = append(issues, DepthIssue{
				Row:    i,
				Index:  p.Index,
				Reason: fmt.Sprintf("depth_top %g decreases from previous %g", p.DepthTop, rows[i-1].DepthTop),
			})
		}
	}
	return issues
}

func cloneRows(rows []Pulse) []Pulse {
	if rows == nil {
		return nil
	}
	out := make([]Pulse, len(rows))
	for i, p := range rows {
		out[i] = p
		out[i].Extra = append([]string(nil), p.Extra...)
	}
	return out
}
