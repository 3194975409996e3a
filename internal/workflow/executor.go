// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meshintel/pharmintel/pkg/types"
)

// Execute runs the intent's workflow plan sequentially and assembles the
// response envelope. A missing analysis target is the only error returned;
// every other failure is contained per stage and reflected in the envelope.
func (e *Engine) Execute(ctx context.Context, intent types.QueryIntent) (types.WorkflowResult, error) {
	if intent.PrimaryEntity == "" && intent.StrategicQuestion == "" && intent.DiseaseArea == "" {
		return types.WorkflowResult{}, fmt.Errorf("execute workflow: %w", types.ErrNoAnalysisTarget)
	}

	plan := intent.WorkflowStages
	if len(plan) == 0 {
		plan = types.DefaultStages(intent.IntentType)
		fmt.Fprintf(e.w, "empty workflow plan, using %s defaults: %v\n", intent.IntentType, plan)
	}

	start := time.Now()
	outputs := make(map[types.StageID]types.StageResult, len(plan)+1)
	log := make([]types.ExecutionLogEntry, 0, len(plan)+1)

	for _, id := range plan {
		fmt.Fprintf(e.w, "running stage %s\n", id)
		res := e.dispatch(ctx, id, intent, outputs)
		outputs[id] = res
		log = append(log, logEntry(id, res))
	}

	// A plan that never names the synthesis stage still gets one implicit
	// synthesis pass over the full output map. A plan that names it uses the
	// in-loop result as-is, even when later stages ran after it. Dispatch
	// handles an engine without a registered synthesis stage the same way it
	// handles any unknown id: a contained, logged error result.
	if _, planned := outputs[types.StageSynthesis]; !planned {
		fmt.Fprintf(e.w, "running implicit stage %s\n", types.StageSynthesis)
		res := e.dispatch(ctx, types.StageSynthesis, intent, outputs)
		outputs[types.StageSynthesis] = res
		log = append(log, logEntry(types.StageSynthesis, res))
	}

	end := time.Now()
	return types.WorkflowResult{
		RunID:                uuid.NewString(),
		Intent:               intent,
		AgentOutputs:         outputs,
		ExecutionLog:         log,
		StartTime:            start,
		EndTime:              end,
		ExecutionTimeSeconds: end.Sub(start).Seconds(),
		Success:              aggregateSuccess(outputs),
		Summary:              buildSummary(intent, outputs),
	}, nil
}

// dispatch looks up one stage and runs it with full failure containment:
// unknown ids, returned errors, and panics all become error-shaped results.
func (e *Engine) dispatch(ctx context.Context, id types.StageID, intent types.QueryIntent, outputs map[types.StageID]types.StageResult) (res types.StageResult) {
	s, ok := e.stages[id]
	if !ok {
		fmt.Fprintf(e.w, "unknown stage: %s\n", id)
		return types.StageFailure(fmt.Sprintf("unknown stage: %s", id))
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(e.w, "stage %s panicked: %v\n", id, r)
			res = types.StageFailure(fmt.Sprintf("stage %s panicked: %v", id, r))
		}
	}()
	out, err := s.Run(ctx, buildStageQuery(id, intent, outputs))
	if err != nil {
		fmt.Fprintf(e.w, "stage %s failed: %v\n", id, err)
		return types.StageFailure(err.Error())
	}
	return out
}

func logEntry(id types.StageID, res types.StageResult) types.ExecutionLogEntry {
	status := types.StatusSuccess
	if res.Error != "" {
		status = types.StatusError
	}
	return types.ExecutionLogEntry{
		Stage:     id,
		Status:    status,
		Timestamp: time.Now().UTC(),
		HasData:   res.Available,
	}
}

// aggregateSuccess is true only when every attempted stage produced usable
// data. A stage that completed but found nothing counts as failure here, the
// same as a contained error.
func aggregateSuccess(outputs map[types.StageID]types.StageResult) bool {
	for _, res := range outputs {
		if !res.Available {
			return false
		}
	}
	return true
}

// buildSummary prefers the synthesis narrative; without one it falls back to
// a templated sentence over the intent fields and the data-source count.
func buildSummary(intent types.QueryIntent, outputs map[types.StageID]types.StageResult) string {
	if res, ok := outputs[types.StageSynthesis]; ok && res.Available {
		if syn, ok := res.Data.(types.Synthesis); ok && syn.ExecutiveSummary != "" {
			return syn.ExecutiveSummary
		}
	}
	available := 0
	for _, res := range outputs {
		if res.Available {
			available++
		}
	}
	subject := intent.PrimaryEntity
	if subject == "" {
		subject = intent.DiseaseArea
	}
	if subject == "" {
		subject = intent.StrategicQuestion
	}
	return fmt.Sprintf("Completed %s for %q. Analyzed %d data sources.", intent.IntentType, subject, available)
}
