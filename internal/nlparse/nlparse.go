// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nlparse turns free-text strategic questions into structured query
// intents, using Gemini when a key is configured and deterministic rule-based
// parsing otherwise.
package nlparse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	genai "google.golang.org/genai"

	"github.com/meshintel/pharmintel/pkg/types"
)

// Generator is the model call the parser depends on. Tests substitute a
// scripted implementation.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) ([]byte, error)
}

// GeminiGenerator is a thin wrapper around the official genai client.
type GeminiGenerator struct {
	cli   *genai.Client
	model string
}

// NewGeminiGenerator builds a Gemini-backed Generator. The API key is read by
// the SDK from the environment (GEMINI_API_KEY / GOOGLE_API_KEY).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{cli: cli, model: model}, nil
}

// GenerateJSON sends the prompt and requests application/json output.
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty model response")
	}
	return []byte(resp.Candidates[0].Content.Parts[0].Text), nil
}

// Parser parses prompts, preferring the model and falling back to rules.
type Parser struct {
	gen Generator
	w   io.Writer
}

// NewParser builds a parser. gen may be nil, in which case every parse is
// rule-based.
func NewParser(gen Generator, w io.Writer) *Parser {
	if w == nil {
		w = io.Discard
	}
	return &Parser{gen: gen, w: w}
}

// Parse converts a free-text prompt into a QueryIntent. It never fails: when
// the model is unavailable or returns garbage, the rule-based fallback is
// used at reduced confidence.
func (p *Parser) Parse(ctx context.Context, prompt string) types.QueryIntent {
	if p.gen != nil {
		if intent, err := p.parseWithModel(ctx, prompt); err == nil {
			return intent
		} else {
			fmt.Fprintf(p.w, "model parsing failed: %v, falling back to rule-based\n", err)
		}
	}
	return types.NewIntentFromText(prompt, p.parseWithRules(prompt))
}

func (p *Parser) parseWithModel(ctx context.Context, prompt string) (types.QueryIntent, error) {
	raw, err := p.gen.GenerateJSON(ctx, buildPrompt(prompt))
	if err != nil {
		return types.QueryIntent{}, err
	}
	var parsed types.ParsedIntent
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return types.QueryIntent{}, fmt.Errorf("decode parsed intent: %w", err)
	}
	return types.NewIntentFromText(prompt, parsed), nil
}

func buildPrompt(userPrompt string) string {
	return fmt.Sprintf(`You are a pharmaceutical intelligence assistant. Parse the user's strategic question and extract structured information.

Analyze this query: %q

Identify:
1. Intent type, one of: "molecule_analysis", "market_discovery", "repurposing", "competitive_analysis", "strategic_question".
2. Primary entity: the molecule/drug name if mentioned, else empty.
3. Disease area: the therapeutic area (oncology, diabetes, respiratory, CNS, cardiovascular, ...) if mentioned.
4. Geography: country/region (India, US, Europe, China, ...) if mentioned.
5. Workflow stages needed, from: "iqvia" (market data), "clinical_trials", "patent", "exim" (trade), "internal_docs", "web_intelligence", "strategic_opportunity" (synthesis).

Return ONLY valid JSON (no markdown, no explanation):
{
  "intent_type": "...",
  "primary_entity": "",
  "disease_area": "",
  "geography": "",
  "workflow_stages": [],
  "context": {},
  "confidence": 0.9,
  "parsed_entities": {}
}`, userPrompt)
}

// Lexicons for the rule-based fallback.
var (
	knownMolecules = []string{
		"metformin", "aspirin", "ibuprofen", "paracetamol", "insulin",
		"atorvastatin", "lisinopril", "amlodipine", "levothyroxine",
		"omeprazole", "simvastatin", "rosuvastatin", "losartan",
	}

	diseaseLexicon = []struct {
		name     string
		keywords []string
	}{
		{"Diabetes", []string{"diabetes", "diabetic", "glycemic"}},
		{"Oncology", []string{"cancer", "oncology", "tumor", "carcinoma"}},
		{"Cardiovascular", []string{"cardiovascular", "cardiac", "heart", "hypertension"}},
		{"Respiratory", []string{"respiratory", "asthma", "copd", "pulmonary"}},
		{"CNS", []string{"cns", "neurological", "alzheimer", "parkinson", "depression"}},
		{"NAFLD", []string{"nafld", "nash", "fatty liver"}},
		{"Infectious", []string{"infectious", "antibiotic", "antiviral"}},
	}

	geographyLexicon = []struct {
		name     string
		keywords []string
	}{
		{"India", []string{"india", "indian"}},
		{"US", []string{"usa", "united states", "america", " us "}},
		{"Europe", []string{"europe", "european", " eu "}},
		{"China", []string{"china", "chinese"}},
		{"Japan", []string{"japan", "japanese"}},
		{"Brazil", []string{"brazil", "brazilian"}},
		{"Global", []string{"global", "worldwide"}},
	}
)

// parseWithRules is the deterministic fallback: keyword intent detection plus
// lexicon entity extraction, at confidence 0.6.
func (p *Parser) parseWithRules(prompt string) types.ParsedIntent {
	lower := " " + strings.ToLower(prompt) + " "

	molecule := matchMolecule(lower)
	disease := matchLexicon(lower, diseaseLexicon)
	geography := matchLexicon(lower, geographyLexicon)
	intentType := detectIntentType(lower, molecule)

	return types.ParsedIntent{
		IntentType:     intentType,
		PrimaryEntity:  molecule,
		DiseaseArea:    disease,
		Geography:      geography,
		WorkflowStages: types.DefaultStages(intentType),
		Context: map[string]any{
			"parsing_method":  "rule_based",
			"original_prompt": prompt,
		},
		Confidence: 0.6,
		ParsedEntities: map[string]any{
			"molecule":  molecule,
			"disease":   disease,
			"geography": geography,
		},
	}
}

func detectIntentType(lower, molecule string) types.IntentType {
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case contains("repurpos", "new indication", "alternative use"):
		return types.IntentRepurposing
	case contains("which disease", "which therapeutic", "opportunity", "unmet need",
		"market gap", "low competition", "patient burden"):
		return types.IntentMarketDiscovery
	case contains("competition", "competitive", "landscape", "players"):
		return types.IntentCompetitiveAnalysis
	case molecule != "":
		return types.IntentMoleculeAnalysis
	}
	return types.IntentStrategicQuestion
}

func matchMolecule(lower string) string {
	for _, m := range knownMolecules {
		if strings.Contains(lower, m) {
			return strings.ToUpper(m[:1]) + m[1:]
		}
	}
	return ""
}

func matchLexicon(lower string, lexicon []struct {
	name     string
	keywords []string
}) string {
	for _, entry := range lexicon {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.name
			}
		}
	}
	return ""
}
