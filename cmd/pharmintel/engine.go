// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/meshintel/pharmintel/internal/docs"
	"github.com/meshintel/pharmintel/internal/market"
	"github.com/meshintel/pharmintel/internal/patents"
	"github.com/meshintel/pharmintel/internal/synthesis"
	"github.com/meshintel/pharmintel/internal/trade"
	"github.com/meshintel/pharmintel/internal/trials"
	"github.com/meshintel/pharmintel/internal/websearch"
	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

// buildEngine wires every stage collaborator into a workflow engine. The
// returned cleanup closes the document index; call it when the run is done.
func buildEngine(cfg types.PipelineConfig, w io.Writer) (*workflow.Engine, func(), error) {
	stages := []workflow.Stage{
		market.New(cfg.Market),
		trade.New(cfg.Trade),
		trials.New(cfg.Trials, w),
		patents.New(cfg.Patents, w),
		synthesis.NewStage(synthesis.NewAdapter(cfg.Synthesis, w)),
	}

	web, err := websearch.New(cfg.WebSearch, w)
	if err != nil {
		return nil, nil, fmt.Errorf("building web intelligence stage: %w", err)
	}
	stages = append(stages, web)

	cleanup := func() {}
	store, err := docs.NewStore(cfg.Docs)
	if err != nil {
		// The document index is optional; a plan naming internal_docs will
		// record a contained stage failure instead.
		fmt.Fprintf(os.Stderr, "warning: document index unavailable: %v\n", err)
	} else {
		stages = append(stages, docs.NewStage(store, cfg.Docs))
		cleanup = func() { store.Close() }
	}

	return workflow.NewEngine(w, stages...), cleanup, nil
}
