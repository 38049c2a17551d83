package primary

import "context"

// RunService defines the primary port for the reconciliation run ledger.
type RunService interface {
	// ListRuns retrieves recorded runs, newest first.
	ListRuns(ctx context.Context, filters RunFilters) ([]*Run, error)

	// GetRun retrieves a single run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// PruneRuns deletes runs older than the given number of days.
	PruneRuns(ctx context.Context, olderThanDays int) (int, error)
}

// Run represents a recorded reconciliation at the port boundary.
type Run struct {
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
