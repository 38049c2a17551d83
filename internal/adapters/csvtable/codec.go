// Package csvtable reads and writes delimited pulse tables.
package csvtable

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/example/icvial/internal/core/reconcile"
	"github.com/example/icvial/internal/ports/secondary"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing required column")

// Codec implements secondary.PulseTableCodec for delimited text files.
// The first column is the row index; it is carried through verbatim.
type Codec struct {
	breakColumn string
	delimiter   rune
}

// NewCodec creates a codec. Empty breakColumn uses the logger default and a
// zero delimiter uses a comma.
func NewCodec(breakColumn string, delimiter rune) *Codec {
	if breakColumn == "" {
		breakColumn = reconcile.DefaultBreakColumn
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Codec{breakColumn: breakColumn, delimiter: delimiter}
}

// Read loads a vial info file from disk.
func (c *Codec) Read(ctx context.Context, path string) (*reconcile.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vial info file: %w", err)
	}
	defer f.Close()

	table, err := c.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return table, nil
}

// Decode parses a pulse table from r.
func (c *Codec) Decode(r io.Reader) (*reconcile.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = c.delimiter
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, reconcile.ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d columns, need an index column and data columns", len(header))
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	table := &reconcile.Table{
		IndexName:   header[0],
		BreakColumn: c.breakColumn,
	}

	pos := make(map[string]int, len(header))
	for i, name := range header[1:] {
		col := i + 1
		if _, dup := pos[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		pos[name] = col
		if name != reconcile.ColMerged && name != reconcile.ColVial {
			table.Columns = append(table.Columns, name)
		}
	}
	for _, req := range []string{reconcile.ColDepthTop, reconcile.ColDepthBot, reconcile.ColBag, c.breakColumn} {
		if _, ok := pos[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	extraCols := table.ExtraColumns()
	extraPos := make([]int, len(extraCols))
	for i, name := range extraCols {
		extraPos[i] = pos[name]
	}

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		p, err := c.decodeRow(record, pos, extraPos)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table.Rows = append(table.Rows, p)
	}

	if len(table.Rows) == 0 {
		return nil, reconcile.ErrEmptyTable
	}
	return table, nil
}

func (c *Codec) decodeRow(record []string, pos map[string]int, extraPos []int) (reconcile.Pulse, error) {
	var (
		p   reconcile.Pulse
		err error
	)
	p.Index = record[0]

	if p.DepthTop, err = parseDepth(record[pos[reconcile.ColDepthTop]]); err != nil {
		return p, fmt.Errorf("%s: %w", reconcile.ColDepthTop, err)
	}
	if p.DepthBot, err = parseDepth(record[pos[reconcile.ColDepthBot]]); err != nil {
		return p, fmt.Errorf("%s: %w", reconcile.ColDepthBot, err)
	}
	if p.Break, err = parseFlag(record[pos[c.breakColumn]]); err != nil {
		return p, fmt.Errorf("%s: %w", c.breakColumn, err)
	}
	p.Bag = record[pos[reconcile.ColBag]]

	if i, ok := pos[reconcile.ColMerged]; ok {
		if p.Merged, err = parseFlag(record[i]); err != nil {
			return p, fmt.Errorf("%s: %w", reconcile.ColMerged, err)
		}
	}
	if i, ok := pos[reconcile.ColVial]; ok && strings.TrimSpace(record[i]) != "" {
		if p.Vial, err = strconv.Atoi(strings.TrimSpace(record[i])); err != nil {
			return p, fmt.Errorf("%s: %w", reconcile.ColVial, err)
		}
	}

	if len(extraPos) > 0 {
		p.Extra = make([]string, len(extraPos))
		for i, col := range extraPos {
			p.Extra[i] = record[col]
		}
	}
	return p, nil
}

// Encode renders the table with Merged and IC_Vial appended to the source columns.
func (c *Codec) Encode(table *reconcile.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodeTo(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes the table to w.
func (c *Codec) EncodeTo(w io.Writer, table *reconcile.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = c.delimiter

	header := make([]string, 0, len(table.Columns)+3)
	header = append(header, table.IndexName)
	header = append(header, table.Columns...)
	header = append(header, reconcile.ColMerged, reconcile.ColVial)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	breakCol := table.BreakColumnName()
	record := make([]string, len(header))
	for _, p := range table.Rows {
		record = record[:0]
		record = append(record, p.Index)
		extra := 0
		for _, col := range table.Columns {
			switch col {
			case reconcile.ColDepthTop:
				record = append(record, formatDepth(p.DepthTop))
			case reconcile.ColDepthBot:
				record = append(record, formatDepth(p.DepthBot))
			case reconcile.ColBag:
				record = append(record, p.Bag)
			case breakCol:
				record = append(record, formatFlag(p.Break))
			default:
				if extra >= len(p.Extra) {
					return fmt.Errorf("row %s: missing value for column %q", p.Index, col)
				}
				record = append(record, p.Extra[extra])
				extra++
			}
		}
		record = append(record, formatFlag(p.Merged), strconv.Itoa(p.Vial))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", p.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func parseDepth(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid depth %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid depth %q", s)
	}
	return v, nil
}

// formatDepth uses the shortest representation that parses back to v.
func formatDepth(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", s)
	}
	return v != 0, nil
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var _ secondary.PulseTableCodec = (*Codec)(nil)
