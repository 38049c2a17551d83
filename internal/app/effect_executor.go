// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/example/icvial/internal/core/effects"
	"github.com/example/icvial/internal/core/reconcile"
	"github.com/example/icvial/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// DefaultEffectExecutor implements EffectExecutor with real I/O.
//
// File writes are staged into temp files next to their targets and renamed
// into place only after every other effect in the batch succeeded. Log
// effects are emitted after the commit.
type DefaultEffectExecutor struct {
	runRepo secondary.RunRepository
	logger  *zap.Logger
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
// runRepo may be nil when no persist effects are expected.
func NewEffectExecutor(runRepo secondary.RunRepository, logger *zap.Logger) *DefaultEffectExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultEffectExecutor{
		runRepo: runRepo,
		logger:  logger,
	}
}

type stagedFile struct {
	tmpPath string
	dest    string
}

// batch tracks staged writes and deferred logs for one Execute call.
type batch struct {
	staged []stagedFile
	logs   []effects.LogEffect
}

// Execute processes a slice of effects, executing each in sequence.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	b := &batch{}
	if err := e.run(ctx, b, effs); err != nil {
		b.discard()
		return err
	}

	if err := b.commit(); err != nil {
		b.discard()
		return err
	}

	for _, l := range b.logs {
		e.log(l)
	}
	return nil
}

func (e *DefaultEffectExecutor) run(ctx context.Context, b *batch, effs []effects.Effect) error {
	for _, eff := range effs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.executeOne(ctx, b, eff); err != nil {
			return fmt.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, b *batch, eff effects.Effect) error {
	switch typed := eff.(type) {
	case effects.FileEffect:
		return e.executeFile(b, typed)
	case effects.PersistEffect:
		return e.executePersist(ctx, typed)
	case effects.CompositeEffect:
		return e.run(ctx, b, typed.Effects)
	case effects.NoEffect:
		return nil
	case effects.LogEffect:
		b.logs = append(b.logs, typed)
		return nil
	default:
		return fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executeFile(b *batch, eff effects.FileEffect) error {
	switch eff.Operation {
	case "mkdir":
		return os.MkdirAll(eff.Path, os.FileMode(eff.Mode))
	case "write":
		tmp, err := stage(eff)
		if err != nil {
			return err
		}
		b.staged = append(b.staged, stagedFile{tmpPath: tmp, dest: eff.Path})
		return nil
	default:
		return fmt.Errorf("unknown file operation: %s", eff.Operation)
	}
}

// stage writes content to a synced temp file in the destination directory.
func stage(eff effects.FileEffect) (string, error) {
	dir, base := filepath.Split(eff.Path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", eff.Path, err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) (string, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to stage %s: %w", eff.Path, err)
	}

	if eff.Mode != 0 {
		if err := tmp.Chmod(os.FileMode(eff.Mode)); err != nil {
			return fail(err)
		}
	}
	if _, err := tmp.Write(eff.Content); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to stage %s: %w", eff.Path, err)
	}
	return tmpPath, nil
}

// commit renames staged files over their destinations in plan order.
func (b *batch) commit() error {
	for i, s := range b.staged {
		if err := os.Rename(s.tmpPath, s.dest); err != nil {
			b.staged = b.staged[i:]
			return fmt.Errorf("failed to write %s: %w", s.dest, err)
		}
	}
	b.staged = nil
	return nil
}

// discard removes staged files that were not committed.
func (b *batch) discard() {
	for _, s := range b.staged {
		os.Remove(s.tmpPath)
	}
	b.staged = nil
}

func (e *DefaultEffectExecutor) executePersist(ctx context.Context, eff effects.PersistEffect) error {
	switch eff.Entity {
	case "run":
		return e.executeRunOp(ctx, eff)
	default:
		return fmt.Errorf("unknown entity: %s", eff.Entity)
	}
}

func (e *DefaultEffectExecutor) executeRunOp(ctx context.Context, eff effects.PersistEffect) error {
	if e.runRepo == nil {
		return fmt.Errorf("no run ledger configured")
	}
	switch eff.Operation {
	case "create":
		summary, ok := eff.Data.(reconcile.RunSummary)
		if !ok {
			return fmt.Errorf("invalid run create data type: %T", eff.Data)
		}
		return e.runRepo.Create(ctx, runRecordFromSummary(summary))
	default:
		return fmt.Errorf("unknown run operation: %s", eff.Operation)
	}
}

func runRecordFromSummary(s reconcile.RunSummary) *secondary.RunRecord {
	md := s.Metadata
	return &secondary.RunRecord{
		ID:           md.RunID,
		Logfile:      md.Logfile,
		DepthTop:     md.DepthTop,
		DepthBot:     md.DepthBot,
		NLogged:      md.NLogged,
		FirstVial:    md.FirstVial,
		LastVial:     md.LastVial,
		NFilled:      md.NFilled,
		MissedVials:  append([]int(nil), md.MissedVials...),
		MergeCount:   s.MergeCount,
		Policy:       string(md.Policy),
		OutputPath:   s.OutputPath,
		MetadataPath: s.MetadataPath,
	}
}

func (e *DefaultEffectExecutor) log(l effects.LogEffect) {
	keys := make([]string, 0, len(l.Fields))
	for k := range l.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, l.Fields[k]))
	}
	switch l.Level {
	case "debug":
		e.logger.Debug(l.Message, fields...)
	case "warn":
		e.logger.Warn(l.Message, fields...)
	case "error":
		e.logger.Error(l.Message, fields...)
	default:
		e.logger.Info(l.Message, fields...)
	}
}
