// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trade implements the import/export trends stage backed by a local
// YAML dataset of per-country trade records.
package trade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

const defaultTopN = 5

// Record is one country-year trade observation.
type Record struct {
	Country    string  `json:"country" yaml:"country"`
	Year       int     `json:"year" yaml:"year"`
	ValueUSDMn float64 `json:"value_usd_mn" yaml:"value_usd_mn"`
	VolumeTons float64 `json:"volume_tons" yaml:"volume_tons"`
}

// Dependency is one row of the import-dependency table: a country's share of
// total import value.
type Dependency struct {
	Record       `yaml:",inline"`
	SharePercent float64 `json:"share_percent" yaml:"share_percent"`
}

// Entry is one molecule's record in the dataset.
type Entry struct {
	Molecule string   `json:"molecule" yaml:"molecule"`
	Exports  []Record `json:"exports" yaml:"exports"`
	Imports  []Record `json:"imports" yaml:"imports"`
	Insights []string `json:"insights" yaml:"insights"`
}

// Overview aggregates totals and leaders over the filtered records.
type Overview struct {
	TotalExportValueUSDMn float64  `json:"total_export_value_usd_mn" yaml:"total_export_value_usd_mn"`
	TotalExportVolumeTons float64  `json:"total_export_volume_tons" yaml:"total_export_volume_tons"`
	TotalImportValueUSDMn float64  `json:"total_import_value_usd_mn" yaml:"total_import_value_usd_mn"`
	TotalImportVolumeTons float64  `json:"total_import_volume_tons" yaml:"total_import_volume_tons"`
	TopExporters          []Record `json:"top_exporters" yaml:"top_exporters"`
	TopImporters          []Record `json:"top_importers" yaml:"top_importers"`
}

// Filters echoes the applied query filters.
type Filters struct {
	Year      int      `json:"year,omitempty" yaml:"year,omitempty"`
	Countries []string `json:"countries,omitempty" yaml:"countries,omitempty"`
}

// Report is the stage payload.
type Report struct {
	Molecule         string       `json:"molecule" yaml:"molecule"`
	Filters          Filters      `json:"filters" yaml:"filters"`
	Exports          []Record     `json:"exports" yaml:"exports"`
	Imports          []Record     `json:"imports" yaml:"imports"`
	Overview         Overview     `json:"overview" yaml:"overview"`
	ImportDependency []Dependency `json:"import_dependency" yaml:"import_dependency"`
	Insights         []string     `json:"insights" yaml:"insights"`
}

// Stage serves trade-trend queries from the configured dataset.
type Stage struct {
	path string
	topN int

	once    sync.Once
	data    map[string]Entry
	loadErr error
}

// New builds the trade stage over cfg.DatasetPath.
func New(cfg types.TradeConfig) *Stage {
	topN := cfg.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Stage{path: cfg.DatasetPath, topN: topN}
}

// ID implements workflow.Stage.
func (s *Stage) ID() types.StageID { return types.StageTrade }

// Run summarizes import/export trends for the queried molecule with optional
// "year" and "countries" filters from the intent context.
func (s *Stage) Run(_ context.Context, q workflow.StageQuery) (types.StageResult, error) {
	molecule := q.Str(workflow.KeyMolecule)
	if molecule == "" {
		return types.StageResult{}, errors.New("trade stage requires a molecule")
	}

	data, err := s.load()
	if err != nil {
		return types.StageResult{}, fmt.Errorf("load trade dataset: %w", err)
	}

	entry, ok := data[strings.ToLower(molecule)]
	if !ok {
		return types.NoData(fmt.Sprintf("no trade data found for %s", molecule)), nil
	}

	filters := Filters{Year: q.Int("year"), Countries: countriesFilter(q)}
	exports := filterRecords(entry.Exports, filters)
	imports := filterRecords(entry.Imports, filters)

	topExporters := s.topByValue(exports)
	topImporters := s.topByValue(imports)
	dependency := s.dependencyTable(imports)

	insights := append([]string(nil), entry.Insights...)
	if len(topExporters) > 0 {
		lead := topExporters[0]
		insights = append(insights, fmt.Sprintf("Top exporter %s holds ~%.1fM export value.", lead.Country, lead.ValueUSDMn))
	}
	if len(dependency) > 0 {
		lead := dependency[0]
		insights = append(insights, fmt.Sprintf("Highest import dependency: %s at %.1f%% of import value.", lead.Country, lead.SharePercent))
	}

	report := Report{
		Molecule: entry.Molecule,
		Filters:  filters,
		Exports:  exports,
		Imports:  imports,
		Overview: Overview{
			TotalExportValueUSDMn: sumValues(exports),
			TotalExportVolumeTons: sumVolumes(exports),
			TotalImportValueUSDMn: sumValues(imports),
			TotalImportVolumeTons: sumVolumes(imports),
			TopExporters:          topExporters,
			TopImporters:          topImporters,
		},
		ImportDependency: dependency,
		Insights:         insights,
	}
	return types.StageResult{
		Available: true,
		Summary:   buildSummary(entry.Molecule, report.Overview),
		Data:      report,
	}, nil
}

func buildSummary(molecule string, o Overview) string {
	leadExporter, leadImporter := "N/A", "N/A"
	if len(o.TopExporters) > 0 {
		leadExporter = o.TopExporters[0].Country
	}
	if len(o.TopImporters) > 0 {
		leadImporter = o.TopImporters[0].Country
	}
	return fmt.Sprintf("Trade trends for %s: exports $%.1fM, imports $%.1fM. Top exporter: %s; top importer: %s.",
		molecule, o.TotalExportValueUSDMn, o.TotalImportValueUSDMn, leadExporter, leadImporter)
}

// countriesFilter accepts both []string (from code) and []any (from decoded
// JSON/YAML context).
func countriesFilter(q workflow.StageQuery) []string {
	switch v := q["countries"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, c := range v {
			if s, ok := c.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func filterRecords(records []Record, f Filters) []Record {
	countrySet := make(map[string]bool, len(f.Countries))
	for _, c := range f.Countries {
		countrySet[strings.ToLower(c)] = true
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Year != 0 && r.Year != f.Year {
			continue
		}
		if len(countrySet) > 0 && !countrySet[strings.ToLower(r.Country)] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sumValues(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.ValueUSDMn
	}
	return total
}

func sumVolumes(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.VolumeTons
	}
	return total
}

func (s *Stage) topByValue(records []Record) []Record {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ValueUSDMn > sorted[j].ValueUSDMn })
	if len(sorted) > s.topN {
		sorted = sorted[:s.topN]
	}
	return sorted
}

func (s *Stage) dependencyTable(imports []Record) []Dependency {
	total := sumValues(imports)
	if total == 0 {
		return nil
	}
	table := make([]Dependency, 0, len(imports))
	for _, r := range imports {
		table = append(table, Dependency{
			Record:       r,
			SharePercent: round1(r.ValueUSDMn / total * 100),
		})
	}
	sort.SliceStable(table, func(i, j int) bool { return table[i].ValueUSDMn > table[j].ValueUSDMn })
	if len(table) > s.topN {
		table = table[:s.topN]
	}
	return table
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func (s *Stage) load() (map[string]Entry, error) {
	s.once.Do(func() {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			s.loadErr = err
			return
		}
		var data map[string]Entry
		if err := yaml.Unmarshal(raw, &data); err != nil {
			s.loadErr = err
			return
		}
		s.data = data
	})
	return s.data, s.loadErr
}
