package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/icvial/internal/config"
	"github.com/example/icvial/internal/core/reconcile"
	"github.com/example/icvial/internal/ports/primary"
	"github.com/example/icvial/internal/wire"
)

type assignOptions struct {
	vials     []int
	missed    []int
	hasMissed bool
	overwrite bool
	assumeYes bool
	outdir    string
	metadir   string
	strict    bool
	noRecord  bool
}

// AssignCmd returns the assign command
func AssignCmd() *cobra.Command {
	var opts assignOptions

	cmd := &cobra.Command{
		Use:   "assign <vial-info.csv>",
		Short: "Assign IC vial numbers to logged fraction pulses",
		Long: `Reconcile a CFA vial info file against the range of IC vials that were
actually filled, and write an assignment table plus a JSON metadata record.

When fewer vials were filled than pulses were logged, the missed vials are
asked for (or taken from --missed) and each missed pulse is merged into the
one that follows it. Nothing is written unless the whole run succeeds.

Examples:
  icvial assign core7_info.csv
  icvial assign core7_info.csv --vials 101,220
  icvial assign core7_info.csv --vials 101,220 --missed 133,190
  icvial assign core7_info.csv --vials 101,220 --strict -o --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasMissed = cmd.Flags().Changed("missed")

			req, err := buildAssignRequest(args[0], opts, wire.Config())
			if err != nil {
				return err
			}

			_, err = wire.ReconcileAdapter().Assign(context.Background(), req)
			return err
		},
	}

	cmd.Flags().IntSliceVar(&opts.vials, "vials", nil, "First and last IC vial, e.g. --vials 101,220 (asked when omitted)")
	cmd.Flags().IntSliceVar(&opts.missed, "missed", nil, "Missed vial numbers (asked when omitted and counts differ)")
	cmd.Flags().BoolVarP(&opts.overwrite, "overwrite", "o", false, "Overwrite existing output")
	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Do not ask before overwriting")
	cmd.Flags().StringVar(&opts.outdir, "outdir", "", "Directory for assignment tables (config outdir, default output)")
	cmd.Flags().StringVar(&opts.metadir, "metadir", "", "Directory for metadata records (config metadir, default metadata)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Abort on any logged/filled count mismatch")
	cmd.Flags().BoolVar(&opts.noRecord, "no-record", false, "Do not record the run in the ledger")

	return cmd
}

// buildAssignRequest merges flags over the configuration.
func buildAssignRequest(logfile string, opts assignOptions, cfg *config.Config) (primary.AssignRequest, error) {
	req := primary.AssignRequest{
		Logfile:     logfile,
		OutputDir:   cfg.OutputDir,
		MetadataDir: cfg.MetadataDir,
		Overwrite:   opts.overwrite,
		AssumeYes:   opts.assumeYes,
		Policy:      cfg.MismatchPolicy,
		Record:      !opts.noRecord,
	}

	switch len(opts.vials) {
	case 0:
	case 2:
		if _, err := reconcile.NewVialRange(opts.vials[0], opts.vials[1]); err != nil {
			return req, err
		}
		req.FirstVial, req.LastVial = opts.vials[0], opts.vials[1]
	default:
		return req, fmt.Errorf("--vials takes FIRST,LAST (got %d values)", len(opts.vials))
	}

	if opts.hasMissed {
		req.MissedVials = append([]int{}, opts.missed...)
	}
	if opts.outdir != "" {
		req.OutputDir = opts.outdir
	}
	if opts.metadir != "" {
		req.MetadataDir = opts.metadir
	}
	if opts.strict {
		req.Policy = string(reconcile.PolicyAbort)
	}

	return req, nil
}
