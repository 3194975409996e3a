// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package patents implements the patent-landscape stage: a PatentsView
// PatentSearch API client with a local dataset fallback.
package patents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/pharmintel/internal/httputil"
	"github.com/meshintel/pharmintel/internal/source"
	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

// patentsViewAPIBase is the PatentsView PatentSearch API endpoint. Declared as
// a var so tests can substitute an httptest server.
var patentsViewAPIBase = "https://search.patentsview.org/api/v1/patent/"

// now is stubbed in tests to pin the status heuristic.
var now = time.Now

const defaultMaxPatents = 25

// Patent is one patent record, normalized across the live and dataset paths.
type Patent struct {
	PatentNumber string `json:"patent_number" yaml:"patent_number"`
	Title        string `json:"title" yaml:"title"`
	Assignee     string `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Jurisdiction string `json:"jurisdiction" yaml:"jurisdiction"`
	Status       string `json:"status" yaml:"status"`
	ExpiryDate   string `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"`
}

// Overview aggregates patent counts and the freedom-to-operate flag.
type Overview struct {
	Total                int    `json:"total" yaml:"total"`
	ActiveCount          int    `json:"active_count" yaml:"active_count"`
	ExpiredCount         int    `json:"expired_count" yaml:"expired_count"`
	PendingCount         int    `json:"pending_count" yaml:"pending_count"`
	EarliestActiveExpiry string `json:"earliest_active_expiry,omitempty" yaml:"earliest_active_expiry,omitempty"`
	HasFreedomToOperate  bool   `json:"has_any_freedom_to_operate" yaml:"has_any_freedom_to_operate"`
	AsOfDate             string `json:"as_of_date" yaml:"as_of_date"`
}

// Report is the stage payload.
type Report struct {
	Molecule string   `json:"molecule" yaml:"molecule"`
	Patents  []Patent `json:"patents" yaml:"patents"`
	Overview Overview `json:"overview" yaml:"overview"`
	Source   string   `json:"source" yaml:"source"`
}

// Stage queries the live API when a key is configured and falls back to a
// local dataset.
type Stage struct {
	cfg    types.PatentsConfig
	client *http.Client
	w      io.Writer

	once    sync.Once
	dataset map[string][]Patent
	loadErr error
}

// New builds the patents stage. Warnings about failed sources go to w.
func New(cfg types.PatentsConfig, w io.Writer) *Stage {
	if cfg.MaxPatents <= 0 {
		cfg.MaxPatents = defaultMaxPatents
	}
	if w == nil {
		w = io.Discard
	}
	return &Stage{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		w:      w,
	}
}

// ID implements workflow.Stage.
func (s *Stage) ID() types.StageID { return types.StagePatents }

// Run builds the patent landscape for the queried molecule. Without an API
// key the live source is skipped entirely.
func (s *Stage) Run(ctx context.Context, q workflow.StageQuery) (types.StageResult, error) {
	molecule := q.Str(workflow.KeyMolecule)
	if molecule == "" {
		return types.StageResult{}, errors.New("patent stage requires a molecule")
	}

	var attempts []source.Attempt
	if s.cfg.APIKey != "" {
		attempts = append(attempts, source.Attempt{
			Name: "patentsview_api",
			Fetch: func(ctx context.Context) (types.StageResult, error) {
				return s.fetchLive(ctx, molecule)
			},
		})
	}
	if s.cfg.DatasetPath != "" {
		attempts = append(attempts, source.Attempt{
			Name: "local_dataset",
			Fetch: func(context.Context) (types.StageResult, error) {
				return s.fetchDataset(molecule)
			},
		})
	}
	if len(attempts) == 0 {
		return types.NoData(fmt.Sprintf("no patent data sources configured for %s", molecule)), nil
	}
	return source.First(ctx, s.w, attempts...), nil
}

type pvResponse struct {
	Error   bool `json:"error"`
	Patents []struct {
		PatentID   string `json:"patent_id"`
		Title      string `json:"patent_title"`
		PatentDate string `json:"patent_date"`
		Assignees  []struct {
			Organization string `json:"assignee_organization"`
		} `json:"assignees"`
	} `json:"patents"`
}

// fetchLive searches PatentsView for patents whose title mentions the
// molecule, using the _text_any full-text operator.
func (s *Stage) fetchLive(ctx context.Context, molecule string) (types.StageResult, error) {
	q, _ := json.Marshal(map[string]any{"_text_any": map[string]string{"patent_title": molecule}})
	f, _ := json.Marshal([]string{"patent_id", "patent_title", "patent_date", "assignees.assignee_organization"})
	o, _ := json.Marshal(map[string]int{"size": s.cfg.MaxPatents})

	params := url.Values{
		"q": {string(q)},
		"f": {string(f)},
		"o": {string(o)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, patentsViewAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return types.StageResult{}, err
	}
	req.Header.Set("X-Api-Key", s.cfg.APIKey)
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return types.StageResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.StageResult{}, fmt.Errorf("PatentsView API returned HTTP %d", resp.StatusCode)
	}

	var parsed pvResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.StageResult{}, fmt.Errorf("parsing PatentsView response: %w", err)
	}
	if parsed.Error || len(parsed.Patents) == 0 {
		return types.NoData(fmt.Sprintf("no live patent data found via PatentsView for %s", molecule)), nil
	}

	patents := make([]Patent, 0, len(parsed.Patents))
	for _, p := range parsed.Patents {
		assignee := ""
		if len(p.Assignees) > 0 {
			assignee = p.Assignees[0].Organization
		}
		patents = append(patents, Patent{
			PatentNumber: p.PatentID,
			Title:        p.Title,
			Assignee:     assignee,
			Jurisdiction: "US",
			Status:       inferStatus(p.PatentDate),
		})
	}
	return s.report(molecule, patents, "live PatentsView API"), nil
}

func (s *Stage) fetchDataset(molecule string) (types.StageResult, error) {
	data, err := s.loadDataset()
	if err != nil {
		return types.StageResult{}, fmt.Errorf("load patent dataset: %w", err)
	}
	patents, ok := data[strings.ToLower(molecule)]
	if !ok {
		return types.NoData(fmt.Sprintf("no patent data found for %s", molecule)), nil
	}
	return s.report(molecule, patents, "local dataset"), nil
}

func (s *Stage) report(molecule string, patents []Patent, src string) types.StageResult {
	overview := buildOverview(patents)
	summary := fmt.Sprintf("Patent landscape for %s: %d relevant patents identified (%d active, %d expired, %d pending).",
		molecule, overview.Total, overview.ActiveCount, overview.ExpiredCount, overview.PendingCount)
	if overview.EarliestActiveExpiry != "" {
		summary += fmt.Sprintf(" Earliest active patent expiry around %s.", overview.EarliestActiveExpiry)
	}
	summary += fmt.Sprintf(" This view is based on %s.", src)

	return types.StageResult{
		Available: true,
		Summary:   summary,
		Data: Report{
			Molecule: molecule,
			Patents:  patents,
			Overview: overview,
			Source:   src,
		},
	}
}

func buildOverview(patents []Patent) Overview {
	o := Overview{Total: len(patents), AsOfDate: now().Format("2006-01-02")}
	earliest := ""
	for _, p := range patents {
		switch p.Status {
		case "active":
			o.ActiveCount++
			if p.ExpiryDate != "" && (earliest == "" || p.ExpiryDate < earliest) {
				earliest = p.ExpiryDate
			}
		case "expired":
			o.ExpiredCount++
		case "pending":
			o.PendingCount++
		}
	}
	o.EarliestActiveExpiry = earliest
	o.HasFreedomToOperate = o.ExpiredCount > 0 || o.Total == 0
	return o
}

// inferStatus estimates legal status from the grant date: grants older than
// 20 years are treated as expired. PatentsView does not expose legal status
// directly.
func inferStatus(patentDate string) string {
	if patentDate == "" {
		return "unknown"
	}
	year, err := strconv.Atoi(strings.SplitN(patentDate, "-", 2)[0])
	if err != nil {
		return "unknown"
	}
	if now().Year()-year > 20 {
		return "expired"
	}
	return "active"
}

func (s *Stage) loadDataset() (map[string][]Patent, error) {
	s.once.Do(func() {
		raw, err := os.ReadFile(s.cfg.DatasetPath)
		if err != nil {
			s.loadErr = err
			return
		}
		var data map[string][]Patent
		if err := yaml.Unmarshal(raw, &data); err != nil {
			s.loadErr = err
			return
		}
		s.dataset = data
	})
	return s.dataset, s.loadErr
}
