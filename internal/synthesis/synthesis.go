// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meshintel/pharmintel/pkg/types"
)

// generateContentBase is the Gemini REST endpoint prefix. Tests substitute an
// httptest server.
var generateContentBase = "https://generativelanguage.googleapis.com/v1beta/models"

// retryBaseDelay is the unit for linear backoff between overload retries.
// Tests override this to avoid real sleeps.
var retryBaseDelay = 2 * time.Second

const (
	defaultModel      = "gemini-2.0-flash"
	defaultMaxRetries = 3
)

const systemPrompt = `You are a pharmaceutical strategy expert.
You MUST return ONLY VALID JSON in this exact structure:
{
  "executive_summary": "",
  "strategic_recommendations": [],
  "swot": {
     "strengths": [], "weaknesses": [], "opportunities": [], "threats": []
  },
  "key_insights": {
     "market": "", "clinical": "", "patent": "", "supply_chain": ""
  }
}
No markdown, no explanation, no commentary.`

// Adapter turns an aggregated analysis payload into a structured Synthesis.
// Every failure mode resolves to a fallback of the same shape; Synthesize
// never returns an error.
type Adapter struct {
	cfg    types.SynthesisConfig
	client *http.Client
	w      io.Writer
}

// NewAdapter builds the synthesis adapter. Warnings go to w.
func NewAdapter(cfg types.SynthesisConfig, w io.Writer) *Adapter {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if w == nil {
		w = io.Discard
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		w:      w,
	}
}

type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genContent struct {
	Role  string    `json:"role"`
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []genPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Synthesize sends the payload to the model and extracts a Synthesis from the
// reply. Overloaded responses (503) are retried up to the configured maximum
// with linearly increasing backoff; any other failure, including missing
// credentials, resolves immediately to the fallback naming the reason.
func (a *Adapter) Synthesize(ctx context.Context, payload any, subject string) types.Synthesis {
	if a.cfg.APIKey == "" {
		fmt.Fprintln(a.w, "synthesis: no API key configured, using placeholder")
		return fallback(subject, "missing API key")
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fallback(subject, fmt.Sprintf("payload encoding failed: %v", err))
	}
	prompt := systemPrompt + "\n\nHere is the data you must analyze:\n" + string(data)

	body, _ := json.Marshal(genRequest{
		Contents: []genContent{{Role: "user", Parts: []genPart{{Text: prompt}}}},
	})
	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", generateContentBase, a.cfg.Model, a.cfg.APIKey)

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fallback(subject, fmt.Sprintf("request build failed: %v", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			fmt.Fprintf(a.w, "synthesis request failed: %v\n", err)
			return fallback(subject, "model request failed")
		}

		if resp.StatusCode == http.StatusServiceUnavailable {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt >= a.cfg.MaxRetries {
				return fallback(subject, "model overloaded")
			}
			fmt.Fprintf(a.w, "synthesis: model overloaded, retrying (attempt %d/%d)\n", attempt, a.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return fallback(subject, "model request cancelled")
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fallback(subject, fmt.Sprintf("model returned HTTP %d", resp.StatusCode))
		}

		var parsed genResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fallback(subject, "malformed model response")
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			return fallback(subject, "empty model response")
		}

		syn, ok := extractJSON(parsed.Candidates[0].Content.Parts[0].Text)
		if !ok {
			return fallback(subject, "unparseable model output")
		}
		return syn
	}
}

// fallback is the deterministic placeholder. It carries the identical field
// set as a successful synthesis, with the failure reason embedded in the
// executive summary.
func fallback(subject, reason string) types.Synthesis {
	return types.Synthesis{
		ExecutiveSummary: fmt.Sprintf("Placeholder synthesis for %s. (%s)", subject, reason),
		Recommendations:  []string{"Improve availability", "Monitor competition", "Optimize supply chain"},
		SWOT: types.SWOT{
			Strengths:     []string{"Strong demand"},
			Weaknesses:    []string{"Pricing pressure"},
			Opportunities: []string{"New indications"},
			Threats:       []string{"Generic entrants"},
		},
		KeyInsights: types.Insights{
			Market:      "Moderately competitive.",
			Clinical:    "Solid efficacy profile.",
			Patent:      "Patent situation stable.",
			SupplyChain: "Diversify API sourcing.",
		},
	}
}
