// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pharmintel workflow
// engine: query intents, stage results, the response envelope, and stage
// configuration.
package types

import (
	"errors"
	"fmt"
)

// ErrNoAnalysisTarget rejects a request that names neither a molecule nor a
// free-text question. This is the only error returned before any stage runs.
var ErrNoAnalysisTarget = errors.New("no analysis target: provide a molecule or a free-text question")

// IntentType classifies what the caller wants analyzed. It selects the
// default workflow stage list when the caller supplies none.
type IntentType string

const (
	IntentMoleculeAnalysis    IntentType = "molecule_analysis"
	IntentMarketDiscovery     IntentType = "market_discovery"
	IntentRepurposing         IntentType = "repurposing"
	IntentCompetitiveAnalysis IntentType = "competitive_analysis"
	IntentStrategicQuestion   IntentType = "strategic_question"
)

// QueryIntent is the unit-of-work descriptor shared by the intent parser and
// the workflow executor. It is constructed once per request and read-only
// thereafter; the executor never mutates it.
type QueryIntent struct {
	// IntentType is always set; constructors default it.
	IntentType IntentType `json:"intent_type" yaml:"intent_type"`

	// PrimaryEntity is the molecule name, when one is known.
	PrimaryEntity string `json:"primary_entity,omitempty" yaml:"primary_entity,omitempty"`

	// DiseaseArea is the therapeutic area (free-form, case handled by stages).
	DiseaseArea string `json:"disease_area,omitempty" yaml:"disease_area,omitempty"`

	// Geography is the country or region of interest.
	Geography string `json:"geography,omitempty" yaml:"geography,omitempty"`

	// StrategicQuestion holds the original free text when the intent came
	// from natural language.
	StrategicQuestion string `json:"strategic_question,omitempty" yaml:"strategic_question,omitempty"`

	// IsStructuredInput is true when built from explicit parameters rather
	// than parsed text.
	IsStructuredInput bool `json:"is_structured_input" yaml:"is_structured_input"`

	// WorkflowStages is the execution plan in execution order. Stages the
	// synthesis step depends on should be listed before it; nothing enforces
	// this beyond convention.
	WorkflowStages []StageID `json:"workflow_stages" yaml:"workflow_stages"`

	// Context is merged into every stage query last, so caller-supplied
	// values override computed defaults.
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`

	// Confidence is meaningful for text-derived intents; 1.0 for structured.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// ParsedEntities is diagnostic output from the parser, not consumed by
	// the executor.
	ParsedEntities map[string]any `json:"parsed_entities,omitempty" yaml:"parsed_entities,omitempty"`
}

// NewStructuredIntent builds a QueryIntent from explicit parameters
// (molecule, optional disease, optional region). A molecule is required.
func NewStructuredIntent(molecule, disease, region string) (QueryIntent, error) {
	if molecule == "" {
		return QueryIntent{}, fmt.Errorf("structured analysis: %w", ErrNoAnalysisTarget)
	}
	return QueryIntent{
		IntentType:        IntentMoleculeAnalysis,
		PrimaryEntity:     molecule,
		DiseaseArea:       disease,
		Geography:         region,
		IsStructuredInput: true,
		WorkflowStages:    DefaultStages(IntentMoleculeAnalysis),
		Confidence:        1.0,
	}, nil
}

// ParsedIntent is the parser's output: all fields optional except IntentType,
// and even that is defaulted when absent.
type ParsedIntent struct {
	IntentType     IntentType     `json:"intent_type"`
	PrimaryEntity  string         `json:"primary_entity"`
	DiseaseArea    string         `json:"disease_area"`
	Geography      string         `json:"geography"`
	WorkflowStages []StageID      `json:"workflow_stages"`
	Context        map[string]any `json:"context"`
	Confidence     float64        `json:"confidence"`
	ParsedEntities map[string]any `json:"parsed_entities"`
}

// NewIntentFromText builds a QueryIntent from a free-text prompt and the
// parser's structured fields, filling gaps with defaults. An empty stage list
// falls back to the intent type's default plan; an empty workflow is never a
// valid outcome.
func NewIntentFromText(prompt string, parsed ParsedIntent) QueryIntent {
	intentType := parsed.IntentType
	if intentType == "" {
		intentType = IntentStrategicQuestion
	}
	stages := parsed.WorkflowStages
	if len(stages) == 0 {
		stages = DefaultStages(intentType)
	}
	confidence := parsed.Confidence
	if confidence <= 0 {
		confidence = 0.8
	}
	return QueryIntent{
		IntentType:        intentType,
		PrimaryEntity:     parsed.PrimaryEntity,
		DiseaseArea:       parsed.DiseaseArea,
		Geography:         parsed.Geography,
		StrategicQuestion: prompt,
		IsStructuredInput: false,
		WorkflowStages:    stages,
		Context:           parsed.Context,
		Confidence:        confidence,
		ParsedEntities:    parsed.ParsedEntities,
	}
}

// stageTemplates maps each intent type to its default workflow plan.
var stageTemplates = map[IntentType][]StageID{
	IntentMoleculeAnalysis: {
		StageMarket, StageTrade, StageTrials, StagePatents,
	},
	IntentMarketDiscovery: {
		StageMarket, StageTrials, StageTrade, StageSynthesis,
	},
	IntentRepurposing: {
		StageTrials, StagePatents, StageMarket, StageSynthesis,
	},
	IntentCompetitiveAnalysis: {
		StageMarket, StageTrials, StagePatents, StageSynthesis,
	},
	IntentStrategicQuestion: {
		StageWebSearch, StageSynthesis,
	},
}

// DefaultStages returns the default workflow plan for an intent type. Unknown
// types map to a synthesis-only plan, never to an empty list.
func DefaultStages(t IntentType) []StageID {
	if stages, ok := stageTemplates[t]; ok {
		out := make([]StageID, len(stages))
		copy(out, stages)
		return out
	}
	return []StageID{StageSynthesis}
}
