// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshintel/pharmintel/internal/nlparse"
	"github.com/meshintel/pharmintel/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a free-text strategic question",
	Long: `Ask parses a natural-language strategic question into a workflow plan and
runs it. With a Gemini API key configured the question is parsed by the
model; without one a deterministic rule-based parser is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		prompt := strings.Join(args, " ")

		cfg := loadPipelineConfig()
		parser := nlparse.NewParser(newGenerator(cmd.Context(), cfg), os.Stderr)
		intent := parser.Parse(cmd.Context(), prompt)
		fmt.Fprintf(os.Stderr, "parsed intent: %s (confidence %.2f), plan %v\n",
			intent.IntentType, intent.Confidence, intent.WorkflowStages)

		engine, cleanup, err := buildEngine(cfg, os.Stderr)
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

// newGenerator builds the model-backed parser generator, or nil when no key
// is configured (the parser then runs rule-based only). The genai SDK reads
// its key from the environment, so a key that arrived via key file is
// exported first.
func newGenerator(ctx context.Context, cfg types.PipelineConfig) nlparse.Generator {
	if cfg.Parser.APIKey == "" {
		return nil
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		os.Setenv("GEMINI_API_KEY", cfg.Parser.APIKey)
	}
	gen, err := nlparse.NewGeminiGenerator(ctx, cfg.Parser.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: model parser unavailable: %v\n", err)
		return nil
	}
	return gen
}

func init() {
	askCmd.Flags().Bool("json", false, "output the full result envelope as JSON")

	rootCmd.AddCommand(askCmd)
}
