package secondary

import (
	"context"
	"time"
)

// RunRepository defines the secondary port for the reconciliation run ledger.
type RunRepository interface {
	// Create persists a new run.
	Create(ctx context.Context, run *RunRecord) error

	// GetByID retrieves a run by its ID.
	GetByID(ctx context.Context, id string) (*RunRecord, error)

	// List retrieves runs matching the given filters, newest first.
	List(ctx context.Context, filters RunFilters) ([]*RunRecord, error)

	// DeleteOlderThan removes runs created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// RunRecord represents a run as stored in persistence.
type RunRecord struct {
	ID           string
	Logfile      string
	DepthTop     float64
	DepthBot     float64
	NLogged      int
	FirstVial    int
	LastVial     int
	NFilled      int
	MissedVials  []int
	MergeCount   int
	Policy       string
	OutputPath   string
	MetadataPath string
	CreatedAt    string
}

// RunFilters contains filter options for querying runs.
type RunFilters struct {
	Logfile string
	Limit   int
}
