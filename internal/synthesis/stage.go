// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesis

import (
	"context"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

// Payload is the aggregated analysis sent to the model.
type Payload struct {
	Molecule          string                              `json:"molecule,omitempty"`
	Disease           string                              `json:"disease,omitempty"`
	Region            string                              `json:"region,omitempty"`
	IntentType        string                              `json:"intent_type,omitempty"`
	StrategicQuestion string                              `json:"strategic_question,omitempty"`
	AgentOutputs      map[types.StageID]types.StageResult `json:"agent_outputs"`
}

// Stage wraps the adapter as a workflow stage. Because the adapter always
// produces a well-formed Synthesis, this stage never fails and never reports
// no-data.
type Stage struct {
	adapter *Adapter
}

// NewStage builds the synthesis stage over an adapter.
func NewStage(adapter *Adapter) *Stage {
	return &Stage{adapter: adapter}
}

// ID implements workflow.Stage.
func (s *Stage) ID() types.StageID { return types.StageSynthesis }

// Run assembles the synthesis payload from the query and invokes the model.
func (s *Stage) Run(ctx context.Context, q workflow.StageQuery) (types.StageResult, error) {
	payload := Payload{
		Molecule:          q.Str(workflow.KeyMolecule),
		Disease:           q.Str(workflow.KeyDisease),
		Region:            q.Str(workflow.KeyRegion),
		IntentType:        q.Str(workflow.KeyIntentType),
		StrategicQuestion: q.Str(workflow.KeyStrategicQuestion),
		AgentOutputs:      q.Outputs(workflow.KeyAgentOutputs),
	}

	subject := payload.Molecule
	if subject == "" {
		subject = payload.StrategicQuestion
	}
	if subject == "" {
		subject = payload.IntentType
	}

	syn := s.adapter.Synthesize(ctx, payload, subject)
	return types.StageResult{
		Available: true,
		Summary:   syn.ExecutiveSummary,
		Data:      syn,
	}, nil
}
