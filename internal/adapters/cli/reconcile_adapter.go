package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/icvial/internal/ports/primary"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

// ReconcileAdapter is a thin adapter that translates CLI operations to ReconcileService calls.
// It depends only on the ReconcileService interface, enabling easy testing with mocks.
type ReconcileAdapter struct {
	service primary.ReconcileService
	out     io.Writer
}

// NewReconcileAdapter creates a new ReconcileAdapter with the given service.
func NewReconcileAdapter(service primary.ReconcileService, out io.Writer) *ReconcileAdapter {
	return &ReconcileAdapter{
		service: service,
		out:     out,
	}
}

// Assign summarises the vial info file, runs the reconciliation and reports
// what was written.
func (a *ReconcileAdapter) Assign(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
	log, err := a.service.Inspect(ctx, req.Logfile)
	if err != nil {
		return nil, fmt.Errorf("failed to load vial info: %w", err)
	}
	a.printLog(log)

	resp, err := a.service.Assign(ctx, req)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Number of vials filled: %d (%d-%d)\n", resp.NFilled, resp.FirstVial, resp.LastVial)
	if !resp.CountsMatch {
		fmt.Fprintf(a.out, "Missed vials: %s\n", joinInts(resp.MissedVials))
	}
	for _, m := range resp.Merges {
		fmt.Fprintf(a.out, "Merging pulse %s with next vial (absorbs %s)\n", m.RetainedIndex, m.AbsorbedIndex)
	}

	fmt.Fprintln(a.out)
	verb := "Wrote"
	if resp.Overwrote {
		verb = "Overwrote"
	}
	okColor.Fprintf(a.out, "✓ %s %s (%d rows)\n", verb, resp.OutputPath, resp.Rows)
	fmt.Fprintf(a.out, "  Metadata: %s\n", resp.MetadataPath)
	fmt.Fprintf(a.out, "  Run:      %s\n", resp.RunID)

	return resp, nil
}

func (a *ReconcileAdapter) printLog(log *primary.PulseLog) {
	fmt.Fprintf(a.out, "Depth range: %g - %g\n", log.DepthTop, log.DepthBot)
	fmt.Fprintf(a.out, "Bags: %s\n", strings.Join(log.Bags, ", "))
	fmt.Fprintf(a.out, "Number of vials logged: %d\n", log.NLogged)
	for _, issue := range log.DepthIssues {
		warnColor.Fprintf(a.out, "⚠ %s\n", issue)
	}
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
