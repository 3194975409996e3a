package trade

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

const fixture = `metformin:
  molecule: Metformin
  exports:
    - {country: India, year: 2024, value_usd_mn: 220.0, volume_tons: 5400}
    - {country: China, year: 2024, value_usd_mn: 180.0, volume_tons: 4900}
    - {country: India, year: 2023, value_usd_mn: 190.0, volume_tons: 5100}
  imports:
    - {country: USA, year: 2024, value_usd_mn: 150.0, volume_tons: 3600}
    - {country: Germany, year: 2024, value_usd_mn: 50.0, volume_tons: 1100}
  insights:
    - API sourcing concentrated in two countries.
`

func newFixtureStage(t *testing.T, topN int) *Stage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exim.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(types.TradeConfig{DatasetPath: path, TopN: topN})
}

func TestRunAggregates(t *testing.T) {
	s := newFixtureStage(t, 0)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("expected data, got %+v", res)
	}
	report := res.Data.(Report)

	if got := report.Overview.TotalExportValueUSDMn; got != 590.0 {
		t.Errorf("total export value = %v, want 590", got)
	}
	if got := report.Overview.TotalImportValueUSDMn; got != 200.0 {
		t.Errorf("total import value = %v, want 200", got)
	}
	if report.Overview.TopExporters[0].Country != "India" {
		t.Errorf("top exporter = %+v, want India first", report.Overview.TopExporters)
	}
	if !strings.Contains(res.Summary, "exports $590.0M") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestRunYearFilter(t *testing.T) {
	s := newFixtureStage(t, 0)
	res, err := s.Run(context.Background(), workflow.StageQuery{
		workflow.KeyMolecule: "metformin",
		"year":               2024,
	})
	if err != nil {
		t.Fatal(err)
	}
	report := res.Data.(Report)
	if len(report.Exports) != 2 {
		t.Errorf("expected 2 exports for 2024, got %d", len(report.Exports))
	}
	if report.Filters.Year != 2024 {
		t.Errorf("filters not echoed: %+v", report.Filters)
	}
}

func TestRunCountryFilter(t *testing.T) {
	s := newFixtureStage(t, 0)
	res, err := s.Run(context.Background(), workflow.StageQuery{
		workflow.KeyMolecule: "metformin",
		"countries":          []any{"india"},
	})
	if err != nil {
		t.Fatal(err)
	}
	report := res.Data.(Report)
	if len(report.Exports) != 2 {
		t.Errorf("expected 2 Indian export records, got %d", len(report.Exports))
	}
	if len(report.Imports) != 0 {
		t.Errorf("expected no Indian imports, got %d", len(report.Imports))
	}
}

func TestRunDependencyTable(t *testing.T) {
	s := newFixtureStage(t, 0)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	report := res.Data.(Report)

	if len(report.ImportDependency) != 2 {
		t.Fatalf("expected 2 dependency rows, got %d", len(report.ImportDependency))
	}
	lead := report.ImportDependency[0]
	if lead.Country != "USA" || lead.SharePercent != 75.0 {
		t.Errorf("lead dependency = %+v, want USA at 75%%", lead)
	}

	var found bool
	for _, insight := range report.Insights {
		if strings.Contains(insight, "Highest import dependency: USA") {
			found = true
		}
	}
	if !found {
		t.Errorf("generated dependency insight missing: %v", report.Insights)
	}
}

func TestRunTopN(t *testing.T) {
	s := newFixtureStage(t, 1)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	report := res.Data.(Report)
	if len(report.Overview.TopExporters) != 1 {
		t.Errorf("topN=1 not applied: %+v", report.Overview.TopExporters)
	}
}

func TestRunUnknownMolecule(t *testing.T) {
	s := newFixtureStage(t, 0)
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "aspirin"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available || res.Message == "" {
		t.Fatalf("expected no-data result, got %+v", res)
	}
}

func TestRunMissingMolecule(t *testing.T) {
	s := newFixtureStage(t, 0)
	if _, err := s.Run(context.Background(), workflow.StageQuery{}); err == nil {
		t.Fatal("expected required-parameter error")
	}
}
