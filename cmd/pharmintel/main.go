// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pharmintel CLI.
//
// pharmintel runs multi-source pharmaceutical intelligence workflows: market
// size, clinical trials, patents, trade flows, internal documents, and web
// intelligence, synthesized into a strategic assessment. Each workflow
// surface is a subcommand: analyze (structured), ask (free text), docs
// (document index maintenance).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/pharmintel/internal/secrets"
	"github.com/meshintel/pharmintel/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the pharmintel CLI.
var rootCmd = &cobra.Command{
	Use:   "pharmintel",
	Short: "Multi-source pharmaceutical intelligence workflows",
	Long: `pharmintel orchestrates pharmaceutical business intelligence: market data,
clinical trial activity, patent landscape, import/export trends, internal
documents, and web intelligence, with an AI-synthesized strategic assessment.

Run a structured analysis with "analyze --molecule ...", or ask a free-text
strategic question with "ask". The docs subcommand maintains the internal
document index.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pharmintel.yaml or ~/.config/pharmintel/config.yaml)")
}

func initConfig() {
	// .env is optional; environment wins over key files either way.
	godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pharmintel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pharmintel"))
		}
	}

	viper.SetEnvPrefix("PHARMINTEL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadPipelineConfig assembles the stage configuration from viper (config
// file plus PHARMINTEL_* environment), then layers in loose environment
// variables and key files for credentials.
func loadPipelineConfig() types.PipelineConfig {
	viper.SetDefault("market.dataset_path", "data/mock_market.yaml")
	viper.SetDefault("trade.dataset_path", "data/mock_exim.yaml")
	viper.SetDefault("trade.top_n", 5)
	viper.SetDefault("trials.max_studies", 50)
	viper.SetDefault("trials.timeout", 15*time.Second)
	viper.SetDefault("trials.dataset_path", "data/mock_trials.yaml")
	viper.SetDefault("patents.max_patents", 25)
	viper.SetDefault("patents.timeout", 15*time.Second)
	viper.SetDefault("patents.dataset_path", "data/mock_patents.yaml")
	viper.SetDefault("docs.index_path", "data/docs/index.db")
	viper.SetDefault("docs.docs_dir", "data/docs")
	viper.SetDefault("docs.max_docs", 5)
	viper.SetDefault("web_search.max_results", 5)
	viper.SetDefault("web_search.cache_size", 64)
	viper.SetDefault("web_search.timeout", 15*time.Second)
	viper.SetDefault("web_search.user_agent", "pharmintel/"+version)
	viper.SetDefault("synthesis.model", "gemini-2.0-flash")
	viper.SetDefault("synthesis.max_retries", 3)
	viper.SetDefault("parser.model", "gemini-2.0-flash")

	var cfg types.PipelineConfig
	cfg.Market.DatasetPath = viper.GetString("market.dataset_path")
	cfg.Trade.DatasetPath = viper.GetString("trade.dataset_path")
	cfg.Trade.TopN = viper.GetInt("trade.top_n")
	cfg.Trials.MaxStudies = viper.GetInt("trials.max_studies")
	cfg.Trials.Timeout = viper.GetDuration("trials.timeout")
	cfg.Trials.DatasetPath = viper.GetString("trials.dataset_path")
	cfg.Patents.MaxPatents = viper.GetInt("patents.max_patents")
	cfg.Patents.Timeout = viper.GetDuration("patents.timeout")
	cfg.Patents.DatasetPath = viper.GetString("patents.dataset_path")
	cfg.Patents.APIKey = viper.GetString("patents.api_key")
	cfg.Docs.IndexPath = viper.GetString("docs.index_path")
	cfg.Docs.DocsDir = viper.GetString("docs.docs_dir")
	cfg.Docs.MaxDocs = viper.GetInt("docs.max_docs")
	cfg.WebSearch.MaxResults = viper.GetInt("web_search.max_results")
	cfg.WebSearch.CacheSize = viper.GetInt("web_search.cache_size")
	cfg.WebSearch.Timeout = viper.GetDuration("web_search.timeout")
	cfg.WebSearch.UserAgent = viper.GetString("web_search.user_agent")
	cfg.Synthesis.Model = viper.GetString("synthesis.model")
	cfg.Synthesis.MaxRetries = viper.GetInt("synthesis.max_retries")
	cfg.Synthesis.APIKey = viper.GetString("synthesis.api_key")
	cfg.Parser.Model = viper.GetString("parser.model")
	cfg.Parser.APIKey = viper.GetString("parser.api_key")

	if cfg.Synthesis.APIKey == "" {
		cfg.Synthesis.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Parser.APIKey == "" {
		cfg.Parser.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Patents.APIKey == "" {
		cfg.Patents.APIKey = os.Getenv("PATENTSVIEW_API_KEY")
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
