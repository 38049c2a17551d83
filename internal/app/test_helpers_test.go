package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/example/icvial/internal/ports/secondary"
)

// Ensure mocks implement the interfaces
var (
	_ secondary.Operator      = (*mockOperator)(nil)
	_ secondary.RunRepository = (*mockRunRepository)(nil)
)

var errScriptExhausted = errors.New("mock operator: no scripted answer left")

// mockOperator answers prompts from scripted values and records what was asked.
type mockOperator struct {
	vialRange   [2]int
	missedCount *int
	missedVials []int
	confirm     bool

	rangeAsked   int
	countAsked   int
	vialsAsked   int
	confirmAsked int
	rejected     []error
}

func (m *mockOperator) AskVialRange(ctx context.Context, validate func(first, last int) error) (int, int, error) {
	m.rangeAsked++
	if m.vialRange == [2]int{} {
		return 0, 0, errScriptExhausted
	}
	if validate != nil {
		if err := validate(m.vialRange[0], m.vialRange[1]); err != nil {
			return 0, 0, err
		}
	}
	return m.vialRange[0], m.vialRange[1], nil
}

func (m *mockOperator) AskMissedCount(ctx context.Context, mm secondary.Mismatch) (int, error) {
	m.countAsked++
	if m.missedCount == nil {
		return mm.Deficit, nil
	}
	return *m.missedCount, nil
}

// AskMissedVial behaves like a re-prompting terminal: invalid scripted
// answers are recorded and the next one is tried.
func (m *mockOperator) AskMissedVial(ctx context.Context, mm secondary.Mismatch, validate func(vial int) error) (int, error) {
	for len(m.missedVials) > 0 {
		v := m.missedVials[0]
		m.missedVials = m.missedVials[1:]
		m.vialsAsked++
		if validate != nil {
			if err := validate(v); err != nil {
				m.rejected = append(m.rejected, err)
				continue
			}
		}
		return v, nil
	}
	return 0, errScriptExhausted
}

func (m *mockOperator) Confirm(ctx context.Context, msg string) (bool, error) {
	m.confirmAsked++
	return m.confirm, nil
}

func intPtr(v int) *int { return &v }

// mockRunRepository keeps runs in memory.
type mockRunRepository struct {
	runs      map[string]*secondary.RunRecord
	createErr error
	lastCut   time.Time
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{runs: make(map[string]*secondary.RunRecord)}
}

func (m *mockRunRepository) Create(ctx context.Context, run *secondary.RunRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *mockRunRepository) GetByID(ctx context.Context, id string) (*secondary.RunRecord, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

func (m *mockRunRepository) List(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	var out []*secondary.RunRecord
	for _, r := range m.runs {
		if filters.Logfile != "" && r.Logfile != filters.Logfile {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.lastCut = cutoff
	n := 0
	for id, r := range m.runs {
		created, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return n, err
		}
		if created.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

// writeInfoFile writes a vial info table with n pulses and returns its path.
// Every third pulse carries a break flag.
func writeInfoFile(t *testing.T, dir string, n int) string {
	t.Helper()
	content := ",Depth_top,Depth_bot,Bag,Breaks,Duration\n"
	for i := 0; i < n; i++ {
		top := float64(10000+5*i) / 100
		brk := 0
		if i%3 == 2 {
			brk = 1
		}
		bot := float64(10000+5*i+5) / 100
		content += fmt.Sprintf("%d,%g,%g,%d,%d,%d\n", i, top, bot, 200+i/4, brk, 10+i)
	}
	path := filepath.Join(dir, "core7_info.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write info file: %v", err)
	}
	return path
}

// listFiles returns the file names in dir, or nil when dir does not exist.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
