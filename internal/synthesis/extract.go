// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis implements the strategic-synthesis step: a Gemini
// generateContent adapter with transient-overload retries and a deterministic
// fallback of identical shape.
package synthesis

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/meshintel/pharmintel/pkg/types"
)

var fencedBlockPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// extractJSON pulls a Synthesis out of model output that may be bare JSON,
// JSON inside fenced code blocks, or JSON surrounded by prose. Tried in
// order, first parse wins.
func extractJSON(text string) (types.Synthesis, bool) {
	if text == "" {
		return types.Synthesis{}, false
	}

	var syn types.Synthesis
	if err := json.Unmarshal([]byte(text), &syn); err == nil {
		return syn, true
	}

	for _, m := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &syn); err == nil {
			return syn, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &syn); err == nil {
			return syn, true
		}
	}

	return types.Synthesis{}, false
}
