// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/meshintel/pharmintel/pkg/types"
)

// renderResult writes the workflow result to w, either as indented JSON or as
// a human-readable report.
func renderResult(w io.Writer, res types.WorkflowResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "Run %s (%s, %.1fs)\n", res.RunID, res.Intent.IntentType, res.ExecutionTimeSeconds)
	fmt.Fprintf(w, "Success: %v\n\n", res.Success)

	fmt.Fprintln(w, "Stages:")
	for _, entry := range res.ExecutionLog {
		out := res.AgentOutputs[entry.Stage]
		line := out.Summary
		switch {
		case out.Error != "":
			line = "error: " + out.Error
		case !out.Available && out.Message != "":
			line = "no data: " + out.Message
		}
		fmt.Fprintf(w, "  %-22s %-8s %s\n", entry.Stage, entry.Status, line)
	}

	if syn, ok := synthesisOf(res); ok {
		fmt.Fprintf(w, "\nExecutive summary:\n  %s\n", syn.ExecutiveSummary)
		if len(syn.Recommendations) > 0 {
			fmt.Fprintln(w, "\nRecommendations:")
			for _, r := range syn.Recommendations {
				fmt.Fprintf(w, "  - %s\n", r)
			}
		}
		renderSWOT(w, syn.SWOT)
		fmt.Fprintln(w, "\nKey insights:")
		fmt.Fprintf(w, "  market:       %s\n", syn.KeyInsights.Market)
		fmt.Fprintf(w, "  clinical:     %s\n", syn.KeyInsights.Clinical)
		fmt.Fprintf(w, "  patent:       %s\n", syn.KeyInsights.Patent)
		fmt.Fprintf(w, "  supply chain: %s\n", syn.KeyInsights.SupplyChain)
	} else {
		fmt.Fprintf(w, "\nSummary: %s\n", res.Summary)
	}
	return nil
}

func renderSWOT(w io.Writer, s types.SWOT) {
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
	section("Strengths", s.Strengths)
	section("Weaknesses", s.Weaknesses)
	section("Opportunities", s.Opportunities)
	section("Threats", s.Threats)
}

func synthesisOf(res types.WorkflowResult) (types.Synthesis, bool) {
	out, ok := res.AgentOutputs[types.StageSynthesis]
	if !ok || !out.Available {
		return types.Synthesis{}, false
	}
	syn, ok := out.Data.(types.Synthesis)
	return syn, ok
}
