// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// WorkflowResult is the response envelope. It is created fresh per request,
// remains well-formed under partial failure, and is never stored past the
// response.
type WorkflowResult struct {
	RunID string `json:"run_id" yaml:"run_id"`

	// Intent echoes the request descriptor.
	Intent QueryIntent `json:"query_intent" yaml:"query_intent"`

	// AgentOutputs maps stage id to its result. Every attempted stage has
	// an entry, including failed and unknown stages.
	AgentOutputs map[StageID]StageResult `json:"agent_outputs" yaml:"agent_outputs"`

	// ExecutionLog has exactly one entry per attempted stage, in execution
	// order.
	ExecutionLog []ExecutionLogEntry `json:"execution_log" yaml:"execution_log"`

	StartTime            time.Time `json:"start_time" yaml:"start_time"`
	EndTime              time.Time `json:"end_time" yaml:"end_time"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds" yaml:"execution_time_seconds"`

	// Success is true only when every attempted stage produced usable data.
	Success bool `json:"success" yaml:"success"`

	// Summary is a one-line description, preferring the synthesis narrative.
	Summary string `json:"summary" yaml:"summary"`
}

// Synthesis is the structured output of the strategic synthesis step. The
// fallback placeholder carries the identical field set, so callers cannot
// distinguish a degraded synthesis from a real one at the type level.
type Synthesis struct {
	ExecutiveSummary string   `json:"executive_summary" yaml:"executive_summary"`
	Recommendations  []string `json:"strategic_recommendations" yaml:"strategic_recommendations"`
	SWOT             SWOT     `json:"swot" yaml:"swot"`
	KeyInsights      Insights `json:"key_insights" yaml:"key_insights"`
}

// SWOT holds the categorized strengths/weaknesses/opportunities/threats lists.
type SWOT struct {
	Strengths     []string `json:"strengths" yaml:"strengths"`
	Weaknesses    []string `json:"weaknesses" yaml:"weaknesses"`
	Opportunities []string `json:"opportunities" yaml:"opportunities"`
	Threats       []string `json:"threats" yaml:"threats"`
}

// Insights holds one-line takeaways per analysis category.
type Insights struct {
	Market      string `json:"market" yaml:"market"`
	Clinical    string `json:"clinical" yaml:"clinical"`
	Patent      string `json:"patent" yaml:"patent"`
	SupplyChain string `json:"supply_chain" yaml:"supply_chain"`
}
