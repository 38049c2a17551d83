package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/icvial/internal/ports/primary"
	"github.com/example/icvial/internal/ports/secondary"
)

// RunServiceImpl implements the RunService interface.
type RunServiceImpl struct {
	runRepo secondary.RunRepository
	now     func() time.Time
}

// NewRunService creates a new RunService with injected dependencies.
func NewRunService(runRepo secondary.RunRepository) *RunServiceImpl {
	return &RunServiceImpl{
		runRepo: runRepo,
		now:     time.Now,
	}
}

// ListRuns retrieves recorded runs, newest first.
func (s *RunServiceImpl) ListRuns(ctx context.Context, filters primary.RunFilters) ([]*primary.Run, error) {
	records, err := s.runRepo.List(ctx, secondary.RunFilters{
		Logfile: filters.Logfile,
		Limit:   filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*primary.Run, len(records))
	for i, r := range records {
		runs[i] = s.recordToRun(r)
	}
	return runs, nil
}

// GetRun retrieves a single run by ID.
func (s *RunServiceImpl) GetRun(ctx context.Context, id string) (*primary.Run, error) {
	record, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.recordToRun(record), nil
}

// PruneRuns deletes runs older than the given number of days.
func (s *RunServiceImpl) PruneRuns(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("older-than must be a positive number of days, got %d", olderThanDays)
	}
	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	return s.runRepo.DeleteOlderThan(ctx, cutoff)
}

// Helper methods

func (s *RunServiceImpl) recordToRun(r *secondary.RunRecord) *primary.Run {
	return &primary.Run{
		ID:           r.ID,
		Logfile:      r.Logfile,
		DepthTop:     r.DepthTop,
		DepthBot:     r.DepthBot,
		NLogged:      r.NLogged,
		FirstVial:    r.FirstVial,
		LastVial:     r.LastVial,
		NFilled:      r.NFilled,
		MissedVials:  r.MissedVials,
		MergeCount:   r.MergeCount,
		Policy:       r.Policy,
		OutputPath:   r.OutputPath,
		MetadataPath: r.MetadataPath,
		CreatedAt:    r.CreatedAt,
	}
}

var _ primary.RunService = (*RunServiceImpl)(nil)
