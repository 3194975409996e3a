// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow implements the orchestration core: a closed stage
// registry, per-stage query construction, and a sequential executor that
// isolates stage failures and assembles the response envelope.
package workflow

import (
	"context"
	"io"

	"github.com/meshintel/pharmintel/pkg/types"
)

// Query parameter keys shared between the query builder and the stage
// collaborators.
const (
	KeyMolecule          = "molecule"
	KeyDisease           = "disease"
	KeyIndication        = "indication"
	KeyRegion            = "region"
	KeyCondition         = "condition"
	KeyQuery             = "query"
	KeyIntentType        = "intent_type"
	KeyAgentOutputs      = "agent_outputs"
	KeyStrategicQuestion = "strategic_question"
)

// StageQuery is the parameter mapping handed to a stage collaborator. The
// builder fills computed defaults first and merges the intent's context last,
// so caller-supplied values override computed ones.
type StageQuery map[string]any

// Str returns the string value for key, or "" when absent or not a string.
func (q StageQuery) Str(key string) string {
	s, _ := q[key].(string)
	return s
}

// Int returns the integer value for key, tolerating JSON-decoded numbers.
func (q StageQuery) Int(key string) int {
	switch v := q[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Outputs returns the stage-output snapshot for key, or nil when absent.
func (q StageQuery) Outputs(key string) map[types.StageID]types.StageResult {
	m, _ := q[key].(map[types.StageID]types.StageResult)
	return m
}

// Stage is the uniform collaborator contract. Run must not return an error
// for "no data found" (that is an Available=false result with a Message); it
// may return an error for required-parameter violations or upstream failures,
// which the executor contains.
type Stage interface {
	ID() types.StageID
	Run(ctx context.Context, q StageQuery) (types.StageResult, error)
}

// Engine is the workflow executor. One Engine is constructed at process start
// and serves many sequential requests; all mutable run state is allocated
// fresh per Execute call.
type Engine struct {
	stages map[types.StageID]Stage
	w      io.Writer
}

// NewEngine builds an Engine over a fixed set of stages. Progress and
// warnings are written to w.
func NewEngine(w io.Writer, stages ...Stage) *Engine {
	if w == nil {
		w = io.Discard
	}
	m := make(map[types.StageID]Stage, len(stages))
	for _, s := range stages {
		m[s.ID()] = s
	}
	return &Engine{stages: m, w: w}
}
