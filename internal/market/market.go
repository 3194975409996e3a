// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package market implements the market-intelligence stage backed by a local
// YAML dataset keyed by molecule.
package market

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

// Product is one marketed product competing in the molecule's space.
type Product struct {
	ProductName    string  `json:"product_name" yaml:"product_name"`
	Company        string  `json:"company" yaml:"company"`
	AnnualSalesUSD float64 `json:"annual_sales_usd" yaml:"annual_sales_usd"`
}

// Overview aggregates the molecule's market metrics.
type Overview struct {
	TotalMarketSizeUSD float64 `json:"total_market_size_usd" yaml:"total_market_size_usd"`
	YoYGrowthPct       float64 `json:"yoy_growth_pct" yaml:"yoy_growth_pct"`
}

// Entry is one molecule's record in the dataset.
type Entry struct {
	Molecule    string    `json:"molecule" yaml:"molecule"`
	Overview    Overview  `json:"overview" yaml:"overview"`
	TopProducts []Product `json:"top_products" yaml:"top_products"`
	Insights    []string  `json:"insights" yaml:"insights"`
}

// Report is the stage payload.
type Report struct {
	Molecule    string    `json:"molecule" yaml:"molecule"`
	Region      string    `json:"region,omitempty" yaml:"region,omitempty"`
	Overview    Overview  `json:"overview" yaml:"overview"`
	TopProducts []Product `json:"top_products" yaml:"top_products"`
	Insights    []string  `json:"insights,omitempty" yaml:"insights,omitempty"`
}

// Stage serves market queries from the configured dataset, loaded lazily and
// cached for the process lifetime.
type Stage struct {
	path string

	once    sync.Once
	data    map[string]Entry
	loadErr error
}

// New builds the market stage over cfg.DatasetPath.
func New(cfg types.MarketConfig) *Stage {
	return &Stage{path: cfg.DatasetPath}
}

// ID implements workflow.Stage.
func (s *Stage) ID() types.StageID { return types.StageMarket }

// Run looks up market data for the queried molecule. A molecule is required;
// an unknown molecule is a no-data result, not an error.
func (s *Stage) Run(_ context.Context, q workflow.StageQuery) (types.StageResult, error) {
	molecule := q.Str(workflow.KeyMolecule)
	if molecule == "" {
		return types.StageResult{}, errors.New("market stage requires a molecule")
	}

	data, err := s.load()
	if err != nil {
		return types.StageResult{}, fmt.Errorf("load market dataset: %w", err)
	}

	entry, ok := data[strings.ToLower(molecule)]
	if !ok {
		return types.NoData(fmt.Sprintf("no market data found for %s", molecule)), nil
	}

	report := Report{
		Molecule:    entry.Molecule,
		Region:      q.Str(workflow.KeyRegion),
		Overview:    entry.Overview,
		TopProducts: entry.TopProducts,
		Insights:    entry.Insights,
	}
	summary := fmt.Sprintf("Market intelligence for %s: $%.1fM market size, %.1f%% YoY growth, %d tracked products.",
		entry.Molecule, entry.Overview.TotalMarketSizeUSD/1e6, entry.Overview.YoYGrowthPct, len(entry.TopProducts))

	return types.StageResult{Available: true, Summary: summary, Data: report}, nil
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
