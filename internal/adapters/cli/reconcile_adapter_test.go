package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/icvial/internal/ports/primary"
)

// mockReconcileService implements primary.ReconcileService for testing
type mockReconcileService struct {
	inspectFn func(ctx context.Context, logfile string) (*primary.PulseLog, error)
	assignFn  func(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error)

	// Track calls for verification
	lastAssignReq primary.AssignRequest
	assignCalls   int
}

func (m *mockReconcileService) Inspect(ctx context.Context, logfile string) (*primary.PulseLog, error) {
	if m.inspectFn != nil {
		return m.inspectFn(ctx, logfile)
	}
	return &primary.PulseLog{
		Logfile:  logfile,
		NLogged:  12,
		DepthTop: 100.05,
		DepthBot: 101.25,
		Bags:     []string{"201", "202"},
	}, nil
}

func (m *mockReconcileService) Assign(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
	m.lastAssignReq = req
	m.assignCalls++
	if m.assignFn != nil {
		return m.assignFn(ctx, req)
	}
	return &primary.AssignResponse{
		RunID:        "RUN-0001",
		Logfile:      req.Logfile,
		NLogged:      12,
		NFilled:      10,
		Deficit:      2,
		FirstVial:    1,
		LastVial:     10,
		MissedVials:  []int{4, 7},
		Merges:       []primary.Merge{{Offset: 6, RetainedIndex: "6", AbsorbedIndex: "7"}, {Offset: 3, RetainedIndex: "3", AbsorbedIndex: "4"}},
		Rows:         10,
		OutputPath:   "output/core_assign.csv",
		MetadataPath: "metadata/core_assign.json",
	}, nil
}

func TestReconcileAdapter_Assign(t *testing.T) {
	svc := &mockReconcileService{}
	out := &bytes.Buffer{}
	adapter := NewReconcileAdapter(svc, out)

	req := primary.AssignRequest{Logfile: "core_info.csv", FirstVial: 1, LastVial: 10}
	resp, err := adapter.Assign(context.Background(), req)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if resp.RunID != "RUN-0001" {
		t.Errorf("expected RUN-0001, got %s", resp.RunID)
	}
	if svc.lastAssignReq.Logfile != "core_info.csv" {
		t.Errorf("request not forwarded: %+v", svc.lastAssignReq)
	}

	output := out.String()
	for _, want := range []string{
		"Depth range: 100.05 - 101.25",
		"Bags: 201, 202",
		"Number of vials logged: 12",
		"Number of vials filled: 10 (1-10)",
		"Missed vials: 4, 7",
		"Merging pulse 6 with next vial",
		"Merging pulse 3 with next vial",
		"✓ Wrote output/core_assign.csv (10 rows)",
		"metadata/core_assign.json",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Index(output, "Merging pulse 6") > strings.Index(output, "Merging pulse 3") {
		t.Error("merges should be reported in the order they were applied")
	}
}

func TestReconcileAdapter_Assign_CountMatchAndOverwrite(t *testing.T) {
	svc := &mockReconcileService{
		assignFn: func(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
			return &primary.AssignResponse{
				NLogged: 4, NFilled: 4, CountsMatch: true, FirstVial: 1, LastVial: 4,
				Rows: 4, OutputPath: "output/a_assign.csv", Overwrote: true,
			}, nil
		},
	}
	out := &bytes.Buffer{}
	adapter := NewReconcileAdapter(svc, out)

	if _, err := adapter.Assign(context.Background(), primary.AssignRequest{Logfile: "a_info.csv"}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	output := out.String()
	if strings.Contains(output, "Missed vials") || strings.Contains(output, "Merging") {
		t.Errorf("count match should not report merges:\n%s", output)
	}
	if !strings.Contains(output, "✓ Overwrote output/a_assign.csv") {
		t.Errorf("expected overwrite notice, got:\n%s", output)
	}
}

func TestReconcileAdapter_Assign_DepthIssues(t *testing.T) {
	svc := &mockReconcileService{
		inspectFn: func(ctx context.Context, logfile string) (*primary.PulseLog, error) {
			return &primary.PulseLog{NLogged: 2, DepthIssues: []string{"row 1 (index 1): depth_top 5 decreases from previous 6"}}, nil
		},
	}
	out := &bytes.Buffer{}

	if _, err := NewReconcileAdapter(svc, out).Assign(context.Background(), primary.AssignRequest{}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !strings.Contains(out.String(), "decreases from previous") {
		t.Errorf("expected depth warning, got:\n%s", out.String())
	}
}

func TestReconcileAdapter_Assign_Errors(t *testing.T) {
	t.Run("inspect fails", func(t *testing.T) {
		svc := &mockReconcileService{
			inspectFn: func(ctx context.Context, logfile string) (*primary.PulseLog, error) {
				return nil, errors.New("no such file")
			},
		}
		_, err := NewReconcileAdapter(svc, &bytes.Buffer{}).Assign(context.Background(), primary.AssignRequest{})
		if err == nil || !strings.Contains(err.Error(), "failed to load vial info") {
			t.Errorf("expected load error, got %v", err)
		}
		if svc.assignCalls != 0 {
			t.Error("Assign should not run after a failed load")
		}
	})

	t.Run("assign fails", func(t *testing.T) {
		svc := &mockReconcileService{
			assignFn: func(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
				return nil, errors.New("declared missed count does not reconcile total row counts")
			},
		}
		out := &bytes.Buffer{}
		_, err := NewReconcileAdapter(svc, out).Assign(context.Background(), primary.AssignRequest{})
		if err == nil {
			t.Fatal("expected error")
		}
		if strings.Contains(out.String(), "✓") {
			t.Errorf("no success line expected on failure:\n%s", out.String())
		}
	})
}
