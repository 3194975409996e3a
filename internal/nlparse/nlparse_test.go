package nlparse

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/meshintel/pharmintel/pkg/types"
)

type scriptedGenerator struct {
	out []byte
	err error
}

func (g *scriptedGenerator) GenerateJSON(context.Context, string) ([]byte, error) {
	return g.out, g.err
}

func TestParseWithModel(t *testing.T) {
	gen := &scriptedGenerator{out: []byte(`{
		"intent_type": "repurposing",
		"primary_entity": "Metformin",
		"disease_area": "NAFLD",
		"geography": "US",
		"workflow_stages": ["clinical_trials", "patent", "iqvia", "strategic_opportunity"],
		"confidence": 0.92
	}`)}
	p := NewParser(gen, io.Discard)

	intent := p.Parse(context.Background(), "Is metformin suitable for NAFLD repurposing?")
	if intent.IntentType != types.IntentRepurposing {
		t.Errorf("intent type = %q", intent.IntentType)
	}
	if intent.PrimaryEntity != "Metformin" || intent.DiseaseArea != "NAFLD" || intent.Geography != "US" {
		t.Errorf("entities = %+v", intent)
	}
	if intent.Confidence != 0.92 {
		t.Errorf("confidence = %v", intent.Confidence)
	}
	if len(intent.WorkflowStages) != 4 || intent.WorkflowStages[0] != types.StageTrials {
		t.Errorf("stages = %v", intent.WorkflowStages)
	}
	if intent.IsStructuredInput {
		t.Error("text-derived intent must not be marked structured")
	}
}

func TestParseModelFailureFallsBack(t *testing.T) {
	p := NewParser(&scriptedGenerator{err: errors.New("quota exceeded")}, io.Discard)

	intent := p.Parse(context.Background(), "Is metformin suitable for NAFLD repurposing?")
	if intent.IntentType != types.IntentRepurposing {
		t.Errorf("intent type = %q", intent.IntentType)
	}
	if intent.Confidence != 0.6 {
		t.Errorf("rule-based confidence = %v, want 0.6", intent.Confidence)
	}
	if intent.PrimaryEntity != "Metformin" {
		t.Errorf("molecule = %q", intent.PrimaryEntity)
	}
}

func TestParseModelGarbageFallsBack(t *testing.T) {
	p := NewParser(&scriptedGenerator{out: []byte("not json")}, io.Discard)

	intent := p.Parse(context.Background(), "metformin outlook")
	if intent.Confidence != 0.6 {
		t.Errorf("expected rule-based fallback, got %+v", intent)
	}
}

func TestParseWithoutGenerator(t *testing.T) {
	p := NewParser(nil, io.Discard)

	intent := p.Parse(context.Background(), "What are the unmet needs in oncology?")
	if intent.IntentType != types.IntentMarketDiscovery {
		t.Errorf("intent type = %q", intent.IntentType)
	}
	if intent.DiseaseArea != "Oncology" {
		t.Errorf("disease = %q", intent.DiseaseArea)
	}
	if intent.StrategicQuestion == "" {
		t.Error("original prompt must be preserved")
	}
	if len(intent.WorkflowStages) == 0 {
		t.Error("workflow stages must never be empty")
	}
}

func TestDetectIntentType(t *testing.T) {
	tests := []struct {
		prompt string
		want   types.IntentType
	}{
		{"Is metformin suitable for NAFLD repurposing?", types.IntentRepurposing},
		{"Which respiratory diseases show low competition in India?", types.IntentMarketDiscovery},
		{"Who are the main players in the statin landscape?", types.IntentCompetitiveAnalysis},
		{"Analyze aspirin for cardiovascular prevention", types.IntentMoleculeAnalysis},
		{"Where should we invest next year?", types.IntentStrategicQuestion},
	}
	for _, tt := range tests {
		p := NewParser(nil, io.Discard)
		intent := p.Parse(context.Background(), tt.prompt)
		if intent.IntentType != tt.want {
			t.Errorf("Parse(%q).IntentType = %q, want %q", tt.prompt, intent.IntentType, tt.want)
		}
	}
}

func TestExtractEntities(t *testing.T) {
	p := NewParser(nil, io.Discard)

	intent := p.Parse(context.Background(), "Analyze metformin for diabetes in the Indian market")
	if intent.PrimaryEntity != "Metformin" {
		t.Errorf("molecule = %q", intent.PrimaryEntity)
	}
	if intent.DiseaseArea != "Diabetes" {
		t.Errorf("disease = %q", intent.DiseaseArea)
	}
	if intent.Geography != "India" {
		t.Errorf("geography = %q", intent.Geography)
	}
}
