// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

const defaultMaxDocs = 5

// Filters echoes the applied query filters.
type Filters struct {
	DocType string `json:"doc_type,omitempty" yaml:"doc_type,omitempty"`
	Year    int    `json:"year,omitempty" yaml:"year,omitempty"`
}

// Report is the stage payload.
type Report struct {
	Molecule     string     `json:"molecule" yaml:"molecule"`
	Filters      Filters    `json:"filters" yaml:"filters"`
	Documents    []Document `json:"documents" yaml:"documents"`
	KeyTakeaways []string   `json:"key_takeaways" yaml:"key_takeaways"`
}

// Stage serves internal-document queries from the index. Molecules without
// dedicated documents fall back to the "default" document set when present.
type Stage struct {
	store   *Store
	maxDocs int
}

// NewStage builds the docs stage over an open store.
func NewStage(store *Store, cfg types.DocsConfig) *Stage {
	maxDocs := cfg.MaxDocs
	if maxDocs <= 0 {
		maxDocs = defaultMaxDocs
	}
	return &Stage{store: store, maxDocs: maxDocs}
}

// ID implements workflow.Stage.
func (s *Stage) ID() types.StageID { return types.StageDocuments }

// Run retrieves internal documents for the queried molecule with optional
// "doc_type" and "year" filters from the intent context.
func (s *Stage) Run(ctx context.Context, q workflow.StageQuery) (types.StageResult, error) {
	molecule := q.Str(workflow.KeyMolecule)
	if molecule == "" {
		return types.StageResult{}, errors.New("internal docs stage requires a molecule")
	}
	filters := Filters{DocType: q.Str("doc_type"), Year: q.Int("year")}

	documents, err := s.store.ByMolecule(ctx, molecule, filters.DocType, filters.Year, s.maxDocs)
	if err != nil {
		return types.StageResult{}, fmt.Errorf("query internal docs: %w", err)
	}
	if len(documents) == 0 {
		documents, err = s.store.ByMolecule(ctx, "default", filters.DocType, filters.Year, s.maxDocs)
		if err != nil {
			return types.StageResult{}, fmt.Errorf("query default docs: %w", err)
		}
	}
	if len(documents) == 0 {
		return types.NoData(fmt.Sprintf("no internal docs found for %s", molecule)), nil
	}

	var takeaways []string
	titles := make([]string, 0, len(documents))
	for _, doc := range documents {
		takeaways = append(takeaways, doc.KeyTakeaways...)
		if doc.Title != "" {
			titles = append(titles, doc.Title)
		}
	}

	return types.StageResult{
		Available: true,
		Summary: fmt.Sprintf("Internal insights for %s: %d doc(s): %s",
			molecule, len(documents), strings.Join(titles, "; ")),
		Data: Report{
			Molecule:     molecule,
			Filters:      filters,
			Documents:    documents,
			KeyTakeaways: takeaways,
		},
	}, nil
}
