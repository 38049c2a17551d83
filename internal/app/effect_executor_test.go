package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/icvial/internal/core/effects"
	"github.com/example/icvial/internal/core/reconcile"
)

func TestEffectExecutor_WritesAndLogs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	core, logs := observer.New(zapcore.InfoLevel)
	repo := newMockRunRepository()
	exec := NewEffectExecutor(repo, zap.New(core))

	summary := reconcile.RunSummary{
		Metadata:   reconcile.Metadata{RunID: "RUN-1", Logfile: "a_info.csv", NLogged: 3, FirstVial: 1, LastVial: 2, NFilled: 2, MissedVials: []int{1}},
		OutputPath: filepath.Join(dir, "a_assign.csv"),
		MergeCount: 1,
	}
	effs := []effects.Effect{
		effects.FileEffect{Operation: "mkdir", Path: dir, Mode: 0755},
		effects.CompositeEffect{Effects: []effects.Effect{
			effects.FileEffect{Operation: "write", Path: filepath.Join(dir, "a.txt"), Content: []byte("alpha"), Mode: 0640},
			effects.NoEffect{},
		}},
		effects.PersistEffect{Entity: "run", Operation: "create", Data: summary},
		effects.LogEffect{Level: "info", Message: "run written", Fields: map[string]any{"run_id": "RUN-1"}},
	}

	if err := exec.Execute(context.Background(), effs); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil || string(data) != "alpha" {
		t.Fatalf("expected staged file to be committed, got %q (%v)", data, err)
	}
	info, err := os.Stat(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("expected mode 0640, got %o", info.Mode().Perm())
	}
	if files := listFiles(t, dir); len(files) != 1 {
		t.Errorf("expected no temp files left, got %v", files)
	}

	run, ok := repo.runs["RUN-1"]
	if !ok {
		t.Fatal("expected run to be persisted")
	}
	if run.MergeCount != 1 || run.Logfile != "a_info.csv" || len(run.MissedVials) != 1 {
		t.Errorf("unexpected run record: %+v", run)
	}

	entries := logs.FilterMessage("run written").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["run_id"] != "RUN-1" {
		t.Errorf("unexpected log fields: %v", entries[0].ContextMap())
	}
}

func TestEffectExecutor_FailureDiscardsStagedWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "keep.csv")
	if err := os.WriteFile(target, []byte("original"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	repo := newMockRunRepository()
	repo.createErr = errors.New("ledger locked")
	exec := NewEffectExecutor(repo, zap.New(core))

	effs := []effects.Effect{
		effects.FileEffect{Operation: "write", Path: target, Content: []byte("replacement"), Mode: 0644},
		effects.FileEffect{Operation: "write", Path: filepath.Join(dir, "new.json"), Content: []byte("{}"), Mode: 0644},
		effects.PersistEffect{Entity: "run", Operation: "create", Data: reconcile.RunSummary{}},
		effects.LogEffect{Level: "info", Message: "run written"},
	}

	err := exec.Execute(context.Background(), effs)
	if err == nil {
		t.Fatal("expected error")
	}

	data, _ := os.ReadFile(target)
	if string(data) != "original" {
		t.Errorf("existing file was modified: %q", data)
	}
	if files := listFiles(t, dir); len(files) != 1 {
		t.Errorf("expected only the original file, got %v", files)
	}
	if logs.Len() != 0 {
		t.Errorf("no log effects should be emitted on failure, got %d", logs.Len())
	}
}

func TestEffectExecutor_Errors(t *testing.T) {
	tests := []struct {
		name string
		repo *mockRunRepository
		eff  effects.Effect
	}{
		{name: "unknown file op", repo: newMockRunRepository(), eff: effects.FileEffect{Operation: "chmod", Path: "x"}},
		{name: "unknown entity", repo: newMockRunRepository(), eff: effects.PersistEffect{Entity: "bag", Operation: "create"}},
		{name: "unknown run op", repo: newMockRunRepository(), eff: effects.PersistEffect{Entity: "run", Operation: "update"}},
		{name: "bad run data", repo: newMockRunRepository(), eff: effects.PersistEffect{Entity: "run", Operation: "create", Data: "nope"}},
		{name: "no ledger", repo: nil, eff: effects.PersistEffect{Entity: "run", Operation: "create", Data: reconcile.RunSummary{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exec *DefaultEffectExecutor
			if tt.repo == nil {
				exec = NewEffectExecutor(nil, nil)
			} else {
				exec = NewEffectExecutor(tt.repo, nil)
			}
			if err := exec.Execute(context.Background(), []effects.Effect{tt.eff}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEffectExecutor_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewEffectExecutor(nil, nil)
	err := exec.Execute(ctx, []effects.Effect{
		effects.FileEffect{Operation: "write", Path: filepath.Join(dir, "a.txt"), Content: []byte("a"), Mode: 0644},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("expected nothing written, got %v", files)
	}
}
