package patents

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

const apiBody = `{
  "error": false,
  "patents": [
    {"patent_id": "7654321", "patent_title": "Metformin formulations", "patent_date": "2019-06-11",
     "assignees": [{"assignee_organization": "Example Pharma Inc."}]},
    {"patent_id": "5512345", "patent_title": "Metformin salts", "patent_date": "1998-02-03",
     "assignees": []}
  ]
}`

const datasetFixture = `metformin:
  - patent_number: US9988776
    title: Extended release metformin
    assignee: Archive Labs
    jurisdiction: US
    status: active
    expiry_date: "2031-04-01"
  - patent_number: US5544332
    title: Metformin hydrochloride
    jurisdiction: US
    status: expired
`

func pinNow(t *testing.T) {
	t.Helper()
	old := now
	now = func() time.Time { return time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = old })
}

func withServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := patentsViewAPIBase
	patentsViewAPIBase = ts.URL + "/"
	t.Cleanup(func() { patentsViewAPIBase = old })
	return ts
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patents.yaml")
	if err := os.WriteFile(path, []byte(datasetFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunLiveSearch(t *testing.T) {
	pinNow(t)
	var gotKey, gotQ string
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotQ = r.URL.Query().Get("q")
		io.WriteString(w, apiBody)
	})

	s := New(types.PatentsConfig{APIKey: "test-key"}, io.Discard)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("expected data, got %+v", res)
	}
	if gotKey != "test-key" {
		t.Errorf("X-Api-Key = %q", gotKey)
	}
	if !strings.Contains(gotQ, "_text_any") || !strings.Contains(gotQ, "metformin") {
		t.Errorf("query = %q", gotQ)
	}

	report := res.Data.(Report)
	if report.Source != "live PatentsView API" || len(report.Patents) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// 2019 grant is within 20 years of 2026, 1998 is not.
	if report.Patents[0].Status != "active" || report.Patents[1].Status != "expired" {
		t.Errorf("status heuristic: %+v", report.Patents)
	}
	if report.Overview.ActiveCount != 1 || report.Overview.ExpiredCount != 1 {
		t.Errorf("overview = %+v", report.Overview)
	}
	if !report.Overview.HasFreedomToOperate {
		t.Error("expected FTO flag with an expired patent present")
	}
}

func TestRunWithoutKeySkipsLive(t *testing.T) {
	pinNow(t)
	ts := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("live API must not be called without a key")
	})
	_ = ts

	s := New(types.PatentsConfig{DatasetPath: writeDataset(t)}, io.Discard)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "Metformin"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("expected dataset data, got %+v", res)
	}
	report := res.Data.(Report)
	if report.Source != "local dataset" {
		t.Errorf("source = %q", report.Source)
	}
	if report.Overview.EarliestActiveExpiry != "2031-04-01" {
		t.Errorf("earliest expiry = %q", report.Overview.EarliestActiveExpiry)
	}
	if !strings.Contains(res.Summary, "2 relevant patents") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestRunLiveFailureFallsBack(t *testing.T) {
	pinNow(t)
	withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	s := New(types.PatentsConfig{APIKey: "bad-key", DatasetPath: writeDataset(t)}, io.Discard)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("expected fallback data, got %+v", res)
	}
	if res.Data.(Report).Source != "local dataset" {
		t.Errorf("expected dataset fallback, got %+v", res.Data)
	}
}

func TestRunNoSourcesConfigured(t *testing.T) {
	s := New(types.PatentsConfig{}, io.Discard)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available || res.Message == "" {
		t.Fatalf("expected no-data result, got %+v", res)
	}
}

func TestRunMissingMolecule(t *testing.T) {
	s := New(types.PatentsConfig{}, io.Discard)
	if _, err := s.Run(context.Background(), workflow.StageQuery{}); err == nil {
		t.Fatal("expected required-parameter error")
	}
}

func TestInferStatus(t *testing.T) {
	pinNow(t)
	tests := []struct {
		date string
		want string
	}{
		{"2019-06-11", "active"},
		{"2006-01-01", "active"}, // exactly 20 years is not yet expired
		{"2005-12-31", "expired"},
		{"1998-02-03", "expired"},
		{"", "unknown"},
		{"not-a-date", "unknown"},
	}
	for _, tt := range tests {
		if got := inferStatus(tt.date); got != tt.want {
			t.Errorf("inferStatus(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}
}
