// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshintel/pharmintel/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a structured analysis for a molecule",
	Long: `Analyze runs the molecule-analysis workflow: market size, trade trends,
clinical trial activity, and patent landscape, followed by a synthesized
strategic assessment. Pass --stages to override the default plan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		molecule, _ := cmd.Flags().GetString("molecule")
		disease, _ := cmd.Flags().GetString("disease")
		region, _ := cmd.Flags().GetString("region")
		stagesFlag, _ := cmd.Flags().GetString("stages")
		asJSON, _ := cmd.Flags().GetBool("json")

		intent, err := types.NewStructuredIntent(molecule, disease, region)
		if err != nil {
			return err
		}
		if stagesFlag != "" {
			intent.WorkflowStages = parseStageList(stagesFlag)
		}

		engine, cleanup, err := buildEngine(loadPipelineConfig(), os.Stderr)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := engine.Execute(cmd.Context(), intent)
		if err != nil {
			return err
		}
		return renderResult(os.Stdout, res, asJSON)
	},
}

func parseStageList(s string) []types.StageID {
	var out []types.StageID
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, types.StageID(part))
		}
	}
	return out
}

func init() {
	analyzeCmd.Flags().String("molecule", "", "molecule name to analyze (required)")
	analyzeCmd.Flags().String("disease", "", "therapeutic area of interest")
	analyzeCmd.Flags().String("region", "", "country or region of interest")
	analyzeCmd.Flags().String("stages", "", "comma-separated stage plan override (iqvia, clinical_trials, patent, exim, internal_docs, web_intelligence, strategic_opportunity)")
	analyzeCmd.Flags().Bool("json", false, "output the full result envelope as JSON")
	analyzeCmd.MarkFlagRequired("molecule")

	rootCmd.AddCommand(analyzeCmd)
}
