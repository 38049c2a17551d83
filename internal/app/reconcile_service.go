package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/icvial/internal/core/reconcile"
	"github.com/example/icvial/internal/ports/primary"
	"github.com/example/icvial/internal/ports/secondary"
)

// ErrOverwriteDeclined is returned when the operator keeps existing output.
var ErrOverwriteDeclined = errors.New("existing output kept, nothing written")

// ReconcileServiceImpl implements the ReconcileService interface.
type ReconcileServiceImpl struct {
	codec    secondary.PulseTableCodec
	operator secondary.Operator
	outputs  secondary.OutputStore
	executor EffectExecutor
	logger   *zap.Logger
	newRunID func() string
}

// NewReconcileService creates a new ReconcileService with injected dependencies.
func NewReconcileService(
	codec secondary.PulseTableCodec,
	operator secondary.Operator,
	outputs secondary.OutputStore,
	executor EffectExecutor,
	logger *zap.Logger,
) *ReconcileServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileServiceImpl{
		codec:    codec,
		operator: operator,
		outputs:  outputs,
		executor: executor,
		logger:   logger,
		newRunID: NewRunID,
	}
}

// NewRunID returns a short unique run identifier like RUN-1A2B3C4D.
func NewRunID() string {
	return "RUN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Inspect loads a vial info file and summarises it.
func (s *ReconcileServiceImpl) Inspect(ctx context.Context, logfile string) (*primary.PulseLog, error) {
	table, err := s.codec.Read(ctx, logfile)
	if err != nil {
		return nil, err
	}

	top, bot := table.DepthRange()
	log := &primary.PulseLog{
		Logfile:  logfile,
		NLogged:  table.Len(),
		DepthTop: top,
		DepthBot: bot,
		Bags:     table.Bags(),
	}
	for _, issue := range reconcile.CheckDepths(table.Rows) {
		log.DepthIssues = append(log.DepthIssues, issue.String())
	}
	return log, nil
}

// Assign reconciles a vial info file against its vial range and writes the
// assignment table and metadata.
func (s *ReconcileServiceImpl) Assign(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
	policy, err := reconcile.ParseMismatchPolicy(req.Policy)
	if err != nil {
		return nil, err
	}

	table, err := s.codec.Read(ctx, req.Logfile)
	if err != nil {
		return nil, err
	}

	run := reconcile.NewRun()
	resp, err := s.assign(ctx, req, policy, table, run)
	if err != nil {
		run.Abort()
		s.logger.Warn("run aborted",
			zap.String("logfile", req.Logfile),
			zap.Strings("states", runStates(run)),
			zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *ReconcileServiceImpl) assign(ctx context.Context, req primary.AssignRequest, policy reconcile.MismatchPolicy, table *reconcile.Table, run *reconcile.Run) (*primary.AssignResponse, error) {
	for _, issue := range reconcile.CheckDepths(table.Rows) {
		s.logger.Warn("suspicious depth", zap.String("logfile", req.Logfile), zap.String("issue", issue.String()))
	}

	// Refuse to clobber output before asking the operator anything
	outPath, metaPath := reconcile.OutputPaths(req.Logfile, req.OutputDir, req.MetadataDir)
	outCtx := reconcile.OutputContext{
		OutputPath:   outPath,
		MetadataPath: metaPath,
		Overwrite:    req.Overwrite,
	}
	var err error
	if outCtx.OutputExists, err = s.outputs.FileExists(ctx, outPath); err != nil {
		return nil, err
	}
	if outCtx.MetadataExists, err = s.outputs.FileExists(ctx, metaPath); err != nil {
		return nil, err
	}
	if err := reconcile.CanWriteOutput(outCtx).Error(); err != nil {
		return nil, err
	}
	overwriting := outCtx.OutputExists || outCtx.MetadataExists
	if overwriting && !req.AssumeYes {
		ok, err := s.operator.Confirm(ctx, fmt.Sprintf("Overwrite existing output %s?", outPath))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrOverwriteDeclined
		}
	}

	vials, err := s.vialRange(ctx, req)
	if err != nil {
		return nil, err
	}

	alignment := reconcile.Align(table.Len(), vials)
	s.logger.Info("aligned",
		zap.String("logfile", req.Logfile),
		zap.Int("nlogged", alignment.NLogged),
		zap.Int("nfilled", alignment.NFilled),
		zap.Int("deficit", alignment.Deficit))

	var missed []int
	if alignment.Matches() {
		if err := run.Advance(reconcile.StateCountMatch); err != nil {
			return nil, err
		}
		if err := reconcile.CheckMissedCount(alignment, len(req.MissedVials)); err != nil {
			return nil, err
		}
	} else {
		if err := run.Advance(reconcile.StateCountMismatch); err != nil {
			return nil, err
		}
		guard := reconcile.CanCollectMissed(reconcile.MismatchContext{Policy: policy, Alignment: alignment})
		if !guard.Allowed {
			return nil, fmt.Errorf("%s: %w", guard.Reason, alignment.Err())
		}
		if missed, err = s.collectMissed(ctx, req, alignment, run); err != nil {
			return nil, err
		}
		if err := run.Advance(reconcile.StateMerge); err != nil {
			return nil, err
		}
	}

	res, err := reconcile.Reconcile(table.Rows, vials, missed)
	if err != nil {
		return nil, err
	}
	if err := run.Advance(reconcile.StateAssigned); err != nil {
		return nil, err
	}

	content, err := s.codec.Encode(table.WithRows(res.Rows))
	if err != nil {
		return nil, fmt.Errorf("failed to encode assignment table: %w", err)
	}

	runID := s.newRunID()
	md := reconcile.BuildMetadata(runID, req.Logfile, table, res, missed, policy)
	plan, err := reconcile.GenerateAssignPlan(reconcile.AssignPlanInput{
		OutputDir:    req.OutputDir,
		MetadataDir:  req.MetadataDir,
		OutputPath:   outPath,
		MetadataPath: metaPath,
		TableContent: content,
		Metadata:     md,
		MergeCount:   len(res.Steps),
		Record:       req.Record,
	})
	if err != nil {
		return nil, err
	}

	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}
	if err := run.Advance(reconcile.StateDone); err != nil {
		return nil, err
	}

	resp := &primary.AssignResponse{
		RunID:        runID,
		Logfile:      req.Logfile,
		NLogged:      alignment.NLogged,
		NFilled:      alignment.NFilled,
		Deficit:      alignment.Deficit,
		CountsMatch:  alignment.Matches(),
		FirstVial:    vials.First,
		LastVial:     vials.Last,
		MissedVials:  missed,
		Rows:         len(res.Rows),
		OutputPath:   outPath,
		MetadataPath: metaPath,
		Overwrote:    overwriting,
	}
	for _, step := range res.Steps {
		resp.Merges = append(resp.Merges, primary.Merge{
			Offset:        step.Offset,
			RetainedIndex: step.RetainedIndex,
			AbsorbedIndex: step.AbsorbedIndex,
		})
	}
	resp.States = runStates(run)
	return resp, nil
}

// vialRange takes the range from the request or asks the operator for it.
func (s *ReconcileServiceImpl) vialRange(ctx context.Context, req primary.AssignRequest) (reconcile.VialRange, error) {
	if req.FirstVial == 0 && req.LastVial == 0 {
		first, last, err := s.operator.AskVialRange(ctx, func(first, last int) error {
			_, err := reconcile.NewVialRange(first, last)
			return err
		})
		if err != nil {
			return reconcile.VialRange{}, err
		}
		return reconcile.NewVialRange(first, last)
	}
	return reconcile.NewVialRange(req.FirstVial, req.LastVial)
}

// collectMissed returns the missed vials in the order they were declared.
// A list in the request is used as-is; otherwise the operator is asked.
func (s *ReconcileServiceImpl) collectMissed(ctx context.Context, req primary.AssignRequest, a reconcile.Alignment, run *reconcile.Run) ([]int, error) {
	if err := run.Advance(reconcile.StateCollectMissed); err != nil {
		return nil, err
	}

	if req.MissedVials != nil {
		if err := reconcile.CheckMissedCount(a, len(req.MissedVials)); err != nil {
			return nil, err
		}
		if _, err := reconcile.MissedOffsets(a.Range, req.MissedVials); err != nil {
			return nil, err
		}
		return append([]int(nil), req.MissedVials...), nil
	}

	mismatch := secondary.Mismatch{
		NLogged:   a.NLogged,
		NFilled:   a.NFilled,
		Deficit:   a.Deficit,
		FirstVial: a.Range.First,
		LastVial:  a.Range.Last,
	}

	count, err := s.operator.AskMissedCount(ctx, mismatch)
	if err != nil {
		return nil, err
	}
	if err := reconcile.CheckMissedCount(a, count); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, count)
	missed := make([]int, 0, count)
	for len(missed) < count {
		v, err := s.operator.AskMissedVial(ctx, mismatch, func(v int) error {
			return reconcile.ValidateMissedVial(a.Range, v, seen)
		})
		if err != nil {
			return nil, err
		}
		seen[v] = true
		missed = append(missed, v)
		if err := run.Advance(reconcile.StateCollectMissed); err != nil {
			return nil, err
		}
	}

	s.logger.Info("missed vials collected", zap.Ints("vials", missed))
	return missed, nil
}

func runStates(run *reconcile.Run) []string {
	states := make([]string, 0, len(run.History))
	for _, st := range run.History {
		states = append(states, string(st))
	}
	return states
}

var _ primary.ReconcileService = (*ReconcileServiceImpl)(nil)
