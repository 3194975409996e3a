// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source generalizes the "try live API, fall back to local dataset"
// pattern as an explicit ordered chain of attempts with tagged outcomes.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/meshintel/pharmintel/pkg/types"
)

// Attempt is one ordered data-source attempt. Fetch returns a usable result,
// a no-data result (Available=false with Message), or an error.
type Attempt struct {
	// Name identifies the source in warnings and result summaries
	// (e.g. "patentsview_api", "local_dataset").
	Name string

	Fetch func(ctx context.Context) (types.StageResult, error)
}

// First runs the attempts in order and returns the first usable result.
// Failed attempts are contained and reported to w, then the chain moves on.
// When no attempt yields data, the last no-data result wins over an error
// result; if every attempt errored, the outcome is a failure naming each
// source and its error.
func First(ctx context.Context, w io.Writer, attempts ...Attempt) types.StageResult {
	if w == nil {
		w = io.Discard
	}
	var lastEmpty *types.StageResult
	var errs []string
	for _, a := range attempts {
		res, err := a.Fetch(ctx)
		if err != nil {
			fmt.Fprintf(w, "source %s failed: %v\n", a.Name, err)
			errs = append(errs, fmt.Sprintf("%s: %v", a.Name, err))
			continue
		}
		if res.Available {
			return res
		}
		empty := res
		lastEmpty = &empty
	}
	if lastEmpty != nil {
		return *lastEmpty
	}
	if len(errs) == 0 {
		return types.StageFailure("no data sources configured")
	}
	return types.StageFailure("all sources failed: " + strings.Join(errs, "; "))
}
