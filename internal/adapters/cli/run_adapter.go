package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/icvial/internal/ports/primary"
)

// RunAdapter translates ledger commands to RunService calls.
type RunAdapter struct {
	service primary.RunService
	out     io.Writer
}

// NewRunAdapter creates a new RunAdapter with the given service.
func NewRunAdapter(service primary.RunService, out io.Writer) *RunAdapter {
	return &RunAdapter{
		service: service,
		out:     out,
	}
}

// List lists recorded runs, newest first.
func (a *RunAdapter) List(ctx context.Context, logfile string, limit int) ([]*primary.Run, error) {
	runs, err := a.service.ListRuns(ctx, primary.RunFilters{
		Logfile: logfile,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs recorded.")
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Reconcile your first vial info file:")
		fmt.Fprintln(a.out, "  icvial assign core_info.csv --vials 1,120")
		return runs, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tLOGFILE\tVIALS\tLOGGED\tMERGED\tCREATED")
	fmt.Fprintln(w, "--\t-------\t-----\t------\t------\t-------")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d-%d\t%d\t%d\t%s\n",
			run.ID,
			run.Logfile,
			run.FirstVial, run.LastVial,
			run.NLogged,
			run.MergeCount,
			run.CreatedAt,
		)
	}

	w.Flush()
	return runs, nil
}

// Show displays details for a single run.
func (a *RunAdapter) Show(ctx context.Context, id string) (*primary.Run, error) {
	run, err := a.service.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Fprintf(a.out, "\nRun: %s\n", run.ID)
	fmt.Fprintf(a.out, "Logfile:  %s\n", run.Logfile)
	fmt.Fprintf(a.out, "Depth:    %g - %g\n", run.DepthTop, run.DepthBot)
	fmt.Fprintf(a.out, "Vials:    %d-%d (%d filled, %d logged)\n", run.FirstVial, run.LastVial, run.NFilled, run.NLogged)
	if len(run.MissedVials) > 0 {
		fmt.Fprintf(a.out, "Missed:   %s\n", joinInts(run.MissedVials))
	}
	fmt.Fprintf(a.out, "Policy:   %s\n", run.Policy)
	fmt.Fprintf(a.out, "Output:   %s\n", run.OutputPath)
	fmt.Fprintf(a.out, "Metadata: %s\n", run.MetadataPath)
	fmt.Fprintf(a.out, "Created:  %s\n", run.CreatedAt)
	fmt.Fprintln(a.out)

	return run, nil
}

// Prune deletes runs older than the given number of days.
func (a *RunAdapter) Prune(ctx context.Context, olderThanDays int) (int, error) {
	n, err := a.service.PruneRuns(ctx, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	okColor.Fprintf(a.out, "✓ Pruned %d run(s) older than %d days\n", n, olderThanDays)
	return n, nil
}
