// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trials implements the clinical-trials stage: a ClinicalTrials.gov
// API v2 client with a local dataset fallback.
package trials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/pharmintel/internal/httputil"
	"github.com/meshintel/pharmintel/internal/source"
	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

// searchBase is the ClinicalTrials.gov API v2 endpoint. Tests substitute a
// local httptest server.
var searchBase = "https://clinicaltrials.gov/api/v2"

const defaultMaxStudies = 50

// Trial is one registered study.
type Trial struct {
	NCTID      string   `json:"nct_id" yaml:"nct_id"`
	Title      string   `json:"title" yaml:"title"`
	Status     string   `json:"status" yaml:"status"`
	Phase      string   `json:"phase" yaml:"phase"`
	Sponsor    string   `json:"sponsor" yaml:"sponsor"`
	Conditions []string `json:"conditions" yaml:"conditions"`
}

// Report is the stage payload.
type Report struct {
	SearchTerm        string         `json:"search_term" yaml:"search_term"`
	Trials            []Trial        `json:"trials" yaml:"trials"`
	PhaseDistribution map[string]int `json:"phase_distribution" yaml:"phase_distribution"`
	ActivityLevel     string         `json:"activity_level" yaml:"activity_level"`
	Source            string         `json:"source" yaml:"source"`
}

// Stage queries the live registry first and falls back to a local dataset.
type Stage struct {
	cfg    types.TrialsConfig
	client *http.Client
	w      io.Writer

	once    sync.Once
	dataset map[string][]Trial
	loadErr error
}

// New builds the trials stage. Warnings about failed sources go to w.
func New(cfg types.TrialsConfig, w io.Writer) *Stage {
	if cfg.MaxStudies <= 0 {
		cfg.MaxStudies = defaultMaxStudies
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
func (s *Stage) ID() types.StageID { return types.StageTrials }

// Run searches by molecule, or by condition alone when no molecule is given.
func (s *Stage) Run(ctx context.Context, q workflow.StageQuery) (types.StageResult, error) {
	term := q.Str(workflow.KeyMolecule)
	byCondition := false
	if term == "" {
		term = q.Str(workflow.KeyCondition)
		byCondition = true
	}
	if term == "" {
		return types.StageResult{}, errors.New("clinical trials stage requires a molecule or condition")
	}

	attempts := []source.Attempt{{
		Name: "clinicaltrials_api",
		Fetch: func(ctx context.Context) (types.StageResult, error) {
			return s.fetchLive(ctx, term, byCondition)
		},
	}}
	if s.cfg.DatasetPath != "" {
		attempts = append(attempts, source.Attempt{
			Name: "local_dataset",
			Fetch: func(context.Context) (types.StageResult, error) {
				return s.fetchDataset(term)
			},
		})
	}
	return source.First(ctx, s.w, attempts...), nil
}

// API v2 response, limited to the modules the report needs.
type apiResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			DesignModule struct {
				Phases []string `json:"phases"`
			} `json:"designModule"`
			ConditionsModule struct {
				Conditions []string `json:"conditions"`
			} `json:"conditionsModule"`
			SponsorCollaboratorsModule struct {
				LeadSponsor struct {
					Name string `json:"name"`
				} `json:"leadSponsor"`
			} `json:"sponsorCollaboratorsModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

func (s *Stage) fetchLive(ctx context.Context, term string, byCondition bool) (types.StageResult, error) {
	params := url.Values{}
	if byCondition {
		params.Set("query.cond", term)
	} else {
		params.Set("query.term", term)
	}
	params.Set("pageSize", fmt.Sprint(s.cfg.MaxStudies))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchBase+"/studies?"+params.Encode(), nil)
	if err != nil {
		return types.StageResult{}, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return types.StageResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.StageResult{}, fmt.Errorf("clinicaltrials.gov returned status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.StageResult{}, fmt.Errorf("decode clinicaltrials.gov response: %w", err)
	}

	trials := make([]Trial, 0, len(parsed.Studies))
	for _, study := range parsed.Studies {
		p := study.ProtocolSection
		trials = append(trials, Trial{
			NCTID:      p.IdentificationModule.NCTID,
			Title:      p.IdentificationModule.BriefTitle,
			Status:     p.StatusModule.OverallStatus,
			Phase:      strings.Join(p.DesignModule.Phases, "/"),
			Sponsor:    p.SponsorCollaboratorsModule.LeadSponsor.Name,
			Conditions: p.ConditionsModule.Conditions,
		})
	}
	return s.report(term, trials, "clinicaltrials.gov"), nil
}

func (s *Stage) fetchDataset(term string) (types.StageResult, error) {
	data, err := s.loadDataset()
	if err != nil {
		return types.StageResult{}, fmt.Errorf("load trials dataset: %w", err)
	}
	trials, ok := data[strings.ToLower(term)]
	if !ok {
		return types.NoData(fmt.Sprintf("no clinical trials found for %s", term)), nil
	}
	return s.report(term, trials, "local dataset"), nil
}

func (s *Stage) report(term string, trials []Trial, src string) types.StageResult {
	if len(trials) == 0 {
		return types.NoData(fmt.Sprintf("no clinical trials found for %s", term))
	}
	phases := make(map[string]int)
	for _, t := range trials {
		phase := t.Phase
		if phase == "" {
			phase = "UNKNOWN"
		}
		phases[phase]++
	}
	level := activityLevel(len(trials))
	return types.StageResult{
		Available: true,
		Summary: fmt.Sprintf("Found %d clinical trials for %s (source: %s). Activity level: %s.",
			len(trials), term, src, level),
		Data: Report{
			SearchTerm:        term,
			Trials:            trials,
			PhaseDistribution: phases,
			ActivityLevel:     level,
			Source:            src,
		},
	}
}

func activityLevel(n int) string {
	switch {
	case n == 0:
		return "none"
	case n < 5:
		return "low"
	case n < 20:
		return "moderate"
	default:
		return "high"
	}
}

func (s *Stage) loadDataset() (map[string][]Trial, error) {
	s.once.Do(func() {
		raw, err := os.ReadFile(s.cfg.DatasetPath)
		if err != nil {
			s.loadErr = err
			return
		}
		var data map[string][]Trial
		if err := yaml.Unmarshal(raw, &data); err != nil {
			s.loadErr = err
			return
		}
		s.dataset = data
	})
	return s.dataset, s.loadErr
}
