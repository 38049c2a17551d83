package secondary

import (
	"context"

	"github.com/example/icvial/internal/core/reconcile"
)

// PulseTableCodec defines the secondary port for reading and encoding
// delimited pulse tables.
type PulseTableCodec interface {
	// Read loads a vial info file in full, preserving row order.
	Read(ctx context.Context, path string) (*reconcile.Table, error)

	// Encode renders a reconciled table, including Merged and IC_Vial columns.
	Encode(table *reconcile.Table) ([]byte, error)
}
