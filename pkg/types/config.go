// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pharmintel/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for overloaded API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// MarketConfig holds settings for the market intelligence stage.
type MarketConfig struct {
	// DatasetPath is the YAML file with market data (e.g. "data/mock_market.yaml").
	DatasetPath string `json:"dataset_path" yaml:"dataset_path"`
}

// TrialsConfig holds settings for the clinical trials stage.
type TrialsConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxStudies is the maximum number of studies fetched per query (default 50).
	MaxStudies int `json:"max_studies" yaml:"max_studies"`

	// DatasetPath is the YAML fallback dataset used when the live API fails.
	DatasetPath string `json:"dataset_path" yaml:"dataset_path"`
}

// PatentsConfig holds settings for the patent landscape stage.
type PatentsConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the PatentsView API key; without it the stage goes straight
	// to the local dataset.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxPatents is the per-page cap on patent records (default 25).
	MaxPatents int `json:"max_patents" yaml:"max_patents"`

	// DatasetPath is the YAML fallback dataset used when the live API fails.
	DatasetPath string `json:"dataset_path" yaml:"dataset_path"`
}

// TradeConfig holds settings for the import/export trends stage.
type TradeConfig struct {
	// DatasetPath is the YAML file with trade records (e.g. "data/mock_exim.yaml").
	DatasetPath string `json:"dataset_path" yaml:"dataset_path"`

	// TopN is how many top exporters/importers to report (default 5).
	TopN int `json:"top_n" yaml:"top_n"`
}

// DocsConfig holds settings for the internal document stage.
type DocsConfig struct {
	// IndexPath is the SQLite index file (e.g. "data/docs/index.db").
	IndexPath string `json:"index_path" yaml:"index_path"`

	// DocsDir is the directory of YAML document sets to ingest.
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`

	// MaxDocs caps the number of documents returned per query (default 5).
	MaxDocs int `json:"max_docs" yaml:"max_docs"`
}

// WebSearchConfig holds settings for the web intelligence stage.
type WebSearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum hits kept per topical query (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// CacheSize is the number of query strings cached per process (default 64).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// SynthesisConfig holds settings for the strategic synthesis step.
type SynthesisConfig struct {
	AIConfig `yaml:",inline"`
}

// ParserConfig holds settings for the natural-language intent parser.
type ParserConfig struct {
	AIConfig `yaml:",inline"`
}

// PipelineConfig groups all stage configurations for the workflow engine.
type PipelineConfig struct {
	Market    MarketConfig    `json:"market" yaml:"market"`
	Trials    TrialsConfig    `json:"trials" yaml:"trials"`
	Patents   PatentsConfig   `json:"patents" yaml:"patents"`
	Trade     TradeConfig     `json:"trade" yaml:"trade"`
	Docs      DocsConfig      `json:"docs" yaml:"docs"`
	WebSearch WebSearchConfig `json:"web_search" yaml:"web_search"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
	Parser    ParserConfig    `json:"parser" yaml:"parser"`
}
