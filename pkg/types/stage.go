// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StageID identifies one named data-gathering or synthesis unit of work.
// The set is closed: the executor only dispatches to stages registered under
// one of these identifiers.
type StageID string

const (
	StageMarket    StageID = "iqvia"
	StageTrials    StageID = "clinical_trials"
	StagePatents   StageID = "patent"
	StageTrade     StageID = "exim"
	StageDocuments StageID = "internal_docs"
	StageWebSearch StageID = "web_intelligence"
	StageSynthesis StageID = "strategic_opportunity"
)

// StageResult is the uniform per-stage output contract. Exactly one of three
// conditions holds: usable data (Available true), no data found (Available
// false with Message), or a contained failure (Available false with Error).
type StageResult struct {
	// Available is true iff usable data was produced.
	Available bool `json:"available" yaml:"available"`

	// Summary is a one-line human-readable description of the payload.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Message explains an Available=false result that is not a failure
	// (e.g. "no market data found for ibuprofen").
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Error describes a contained stage failure. Stages that completed but
	// found nothing use Message instead.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Data is the stage-specific payload, opaque to the executor.
	Data any `json:"data,omitempty" yaml:"data,omitempty"`
}

// NoData builds the result for a stage that ran but found nothing.
func NoData(message string) StageResult {
	return StageResult{Available: false, Message: message}
}

// StageFailure builds the result for a contained stage failure.
func StageFailure(errMsg string) StageResult {
	return StageResult{Available: false, Error: errMsg}
}

// LogStatus is the execution-log status of one attempted stage.
type LogStatus string

const (
	StatusSuccess LogStatus = "success"
	StatusError   LogStatus = "error"
)

// ExecutionLogEntry records one attempted stage, in plan order.
type ExecutionLogEntry struct {
	Stage     StageID   `json:"stage" yaml:"stage"`
	Status    LogStatus `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	HasData   bool      `json:"has_data" yaml:"has_data"`
}
