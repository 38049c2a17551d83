package primary

import "context"

// ReconcileService defines the primary port for pulse/vial reconciliation.
type ReconcileService interface {
	// Inspect loads a vial info file and summarises it without changing anything.
	Inspect(ctx context.Context, logfile string) (*PulseLog, error)

	// Assign reconciles a vial info file against a vial range and writes the
	// assignment table and metadata. Nothing is written unless the whole run
	// succeeds.
	Assign(ctx context.Context, req AssignRequest) (*AssignResponse, error)
}

// PulseLog summarises a logged pulse table at the port boundary.
type PulseLog struct {
	Logfile     string
	NLogged     int
	DepthTop    float64
	DepthBot    float64
	Bags        []string
	DepthIssues []string
}

// AssignRequest contains parameters for a reconciliation run.
type AssignRequest struct {
	Logfile     string
	FirstVial   int   // Zero asks the operator
	LastVial    int   // Zero asks the operator
	MissedVials []int // Nil asks the operator when counts disagree
	OutputDir   string
	MetadataDir string
	Overwrite   bool
	AssumeYes   bool   // Skip the overwrite confirmation
	Policy      string // "prompt" or "abort"; empty uses "prompt"
	Record      bool   // Record the run in the ledger
}

// AssignResponse contains the result of a reconciliation run.
type AssignResponse struct {
	RunID        string
	Logfile      string
	NLogged      int
	NFilled      int
	Deficit      int
	CountsMatch  bool
	FirstVial    int
	LastVial     int
	MissedVials  []int
	Merges       []Merge
	Rows         int
	OutputPath   string
	MetadataPath string
	States       []string
	Overwrote    bool
}

// Merge describes one applied merge at the port boundary.
type Merge struct {
	Offset        int
	RetainedIndex string
	AbsorbedIndex string
}
