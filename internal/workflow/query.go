// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"strings"

	"github.com/meshintel/pharmintel/pkg/types"
)

// buildStageQuery translates the generic intent into the parameter shape one
// collaborator expects. Entity, disease, and geography are always carried
// over (disease additionally under the "indication" alias); stage-specific
// keys are added on top; the intent's context is merged last so callers can
// override any computed default.
func buildStageQuery(stage types.StageID, intent types.QueryIntent, outputs map[types.StageID]types.StageResult) StageQuery {
	q := StageQuery{
		KeyMolecule:   intent.PrimaryEntity,
		KeyDisease:    intent.DiseaseArea,
		KeyIndication: intent.DiseaseArea,
		KeyRegion:     intent.Geography,
	}

	switch stage {
	case types.StageSynthesis:
		q[KeyIntentType] = string(intent.IntentType)
		q[KeyAgentOutputs] = snapshotOutputs(outputs)
		if intent.StrategicQuestion != "" {
			q[KeyStrategicQuestion] = intent.StrategicQuestion
		}
	case types.StageWebSearch:
		if intent.StrategicQuestion != "" {
			q[KeyQuery] = intent.StrategicQuestion
		} else {
			q[KeyQuery] = searchPhrase(intent)
		}
	case types.StageTrials:
		if intent.PrimaryEntity == "" && intent.DiseaseArea != "" {
			q[KeyCondition] = intent.DiseaseArea
		}
	}

	for k, v := range intent.Context {
		q[k] = v
	}
	return q
}

// searchPhrase assembles a free-text search string from the intent fields,
// skipping absent parts so missing fields never leave stray separators.
func searchPhrase(intent types.QueryIntent) string {
	var parts []string
	if intent.PrimaryEntity != "" {
		parts = append(parts, intent.PrimaryEntity)
	}
	if intent.DiseaseArea != "" {
		parts = append(parts, intent.DiseaseArea)
	}
	if intent.Geography != "" {
		parts = append(parts, "in "+intent.Geography)
	}
	return strings.Join(parts, " ")
}

// snapshotOutputs copies the outputs-so-far map so the synthesis collaborator
// reads a stable view even though the executor keeps appending to its own map.
func snapshotOutputs(outputs map[types.StageID]types.StageResult) map[types.StageID]types.StageResult {
	snap := make(map[types.StageID]types.StageResult, len(outputs))
	for id, res := range outputs {
		snap[id] = res
	}
	return snap
}
