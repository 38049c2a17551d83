package reconcile

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/example/icvial/internal/core/effects"
)

// Metadata is the audit record written next to each reconciled table.
type Metadata struct {
	RunID       string         `json:"run_id"`
	Logfile     string         `json:"logfile"`
	DepthTop    float64        `json:"Depth_top"`
	DepthBot    float64        `json:"Depth_bot"`
	Bags        []string       `json:"bags"`
	NLogged     int            `json:"nlogged"`
	FirstVial   int            `json:"first_vial"`
	LastVial    int            `json:"last_vial"`
	NFilled     int            `json:"nfilled"`
	Policy      MismatchPolicy `json:"mismatch_policy"`
	MissedVials []int          `json:"missed_vials,omitempty"`
}

// BuildMetadata assembles the metadata record for a run.
// The depth range always describes the table as logged, before merging.
func BuildMetadata(runID, logfile string, logged *Table, res Result, missedVials []int, policy MismatchPolicy) Metadata {
	top, bot := logged.DepthRange()
	md := Metadata{
		RunID:     runID,
		Logfile:   filepath.Base(logfile),
		DepthTop:  top,
		DepthBot:  bot,
		Bags:      logged.Bags(),
		NLogged:   res.Alignment.NLogged,
		FirstVial: res.Alignment.Range.First,
		LastVial:  res.Alignment.Range.Last,
		NFilled:   res.Alignment.NFilled,
		Policy:    policy,
	}
	if len(missedVials) > 0 {
		md.MissedVials = append([]int(nil), missedVials...)
	}
	return md
}

// OutputPaths derives the table and metadata paths for a vial info file.
// "info" in the base name becomes "assign"; metadata uses a .json extension.
func OutputPaths(logfile, outdir, metadir string) (outPath, metaPath string) {
	base := strings.Replace(filepath.Base(logfile), "info", "assign", 1)
	outPath = filepath.Join(outdir, base)

	metaBase := strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	metaPath = filepath.Join(metadir, metaBase)
	return outPath, metaPath
}

// RunSummary is the ledger entry for a completed run.
type RunSummary struct {
	Metadata     Metadata
	OutputPath   string
	MetadataPath string
	MergeCount   int
}

// AssignPlanInput contains pre-computed data for writing a reconciled run.
type AssignPlanInput struct {
	OutputDir    string
	MetadataDir  string
	OutputPath   string
	MetadataPath string
	TableContent []byte // Encoded reconciled table
	Metadata     Metadata
	MergeCount   int
	Record       bool // Persist the run in the ledger
}

// AssignPlan represents the planned effects for finishing a run.
type AssignPlan struct {
	OutputPath    string
	MetadataPath  string
	FilesystemOps []effects.FileEffect
	DatabaseOps   []effects.PersistEffect
	LogOps        []effects.LogEffect
}

// Effects returns all effects as a flat slice for execution.
func (p AssignPlan) Effects() []effects.Effect {
	result := make([]effects.Effect, 0, len(p.FilesystemOps)+len(p.DatabaseOps)+len(p.LogOps))
	for _, e := range p.FilesystemOps {
		result = append(result, e)
	}
	for _, e := range p.DatabaseOps {
		result = append(result, e)
	}
	for _, e := range p.LogOps {
		result = append(result, e)
	}
	return result
}

// GenerateAssignPlan creates the plan for writing a reconciled run.
// This is a pure function - all input data must be pre-computed.
func GenerateAssignPlan(input AssignPlanInput) (AssignPlan, error) {
	plan := AssignPlan{
		OutputPath:   input.OutputPath,
		MetadataPath: input.MetadataPath,
	}

	metaContent, err := json.MarshalIndent(input.Metadata, "", "    ")
	if err != nil {
		return AssignPlan{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	metaContent = append(metaContent, '\n')

	// 1. Output directories
	plan.FilesystemOps = append(plan.FilesystemOps,
		effects.FileEffect{Operation: "mkdir", Path: input.OutputDir, Mode: 0755},
		effects.FileEffect{Operation: "mkdir", Path: input.MetadataDir, Mode: 0755},
	)

	// 2. Reconciled table and metadata
	plan.FilesystemOps = append(plan.FilesystemOps,
		effects.FileEffect{Operation: "write", Path: input.OutputPath, Content: input.TableContent, Mode: 0644},
		effects.FileEffect{Operation: "write", Path: input.MetadataPath, Content: metaContent, Mode: 0644},
	)

	// 3. Ledger entry
	if input.Record {
		plan.DatabaseOps = append(plan.DatabaseOps, effects.PersistEffect{
			Entity:    "run",
			Operation: "create",
			Data: RunSummary{
				Metadata:     input.Metadata,
				OutputPath:   input.OutputPath,
				MetadataPath: input.MetadataPath,
				MergeCount:   input.MergeCount,
			},
		})
	}

	plan.LogOps = append(plan.LogOps, effects.LogEffect{
		Level:   "info",
		Message: "run written",
		Fields: map[string]any{
			"run_id":   input.Metadata.RunID,
			"output":   input.OutputPath,
			"metadata": input.MetadataPath,
			"merges":   input.MergeCount,
		},
	})

	return plan, nil
}
