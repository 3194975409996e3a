// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch implements the web-intelligence stage: topical DuckDuckGo
// HTML searches (guidelines, real-world evidence, news) parsed with goquery.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/meshintel/pharmintel/internal/httputil"
	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

// searchBase is the DuckDuckGo HTML endpoint. Tests substitute an httptest
// server.
var searchBase = "https://html.duckduckgo.com/html/"

const (
	defaultMaxResults = 5
	defaultCacheSize  = 64
)

// Hit is one search result.
type Hit struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// Report is the stage payload: one hit list per topical query.
type Report struct {
	Scope      string `json:"scope" yaml:"scope"`
	Guidelines []Hit  `json:"guidelines" yaml:"guidelines"`
	RWE        []Hit  `json:"rwe" yaml:"rwe"`
	News       []Hit  `json:"news" yaml:"news"`
	AsOf       string `json:"as_of" yaml:"as_of"`
}

// Stage runs topical web searches with a per-process LRU cache over query
// strings, so repeated workflows do not refetch identical queries.
type Stage struct {
	cfg    types.WebSearchConfig
	client *http.Client
	cache  *lru.Cache[string, []Hit]
	w      io.Writer
}

// New builds the web-search stage. Warnings about failed topics go to w.
func New(cfg types.WebSearchConfig, w io.Writer) (*Stage, error) {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if w == nil {
		w = io.Discard
	}
	cache, err := lru.New[string, []Hit](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &Stage{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		w:      w,
	}, nil
}

// ID implements workflow.Stage.
func (s *Stage) ID() types.StageID { return types.StageWebSearch }

// Run fetches guideline, real-world-evidence, and news links for the query
// scope. A failed topic is reported and skipped; the stage errors only when
// every topic fails.
func (s *Stage) Run(ctx context.Context, q workflow.StageQuery) (types.StageResult, error) {
	scope := q.Str(workflow.KeyQuery)
	if scope == "" {
		scope = q.Str(workflow.KeyMolecule)
		if disease := q.Str(workflow.KeyDisease); disease != "" && scope != "" {
			scope += " " + disease
		}
	}
	if scope == "" {
		return types.StageResult{}, errors.New("web intelligence stage requires a query or molecule")
	}

	report := Report{Scope: scope, AsOf: time.Now().Format("2006-01-02")}
	topics := []struct {
		name  string
		query string
		dest  *[]Hit
	}{
		{"guidelines", scope + " clinical practice guideline", &report.Guidelines},
		{"rwe", scope + " real world evidence study", &report.RWE},
		{"news", "latest news " + scope + " drug", &report.News},
	}

	failed := 0
	for _, topic := range topics {
		hits, err := s.search(ctx, topic.query)
		if err != nil {
			fmt.Fprintf(s.w, "web search %s failed: %v\n", topic.name, err)
			failed++
			continue
		}
		*topic.dest = hits
	}
	if failed == len(topics) {
		return types.StageResult{}, errors.New("all web searches failed")
	}

	total := len(report.Guidelines) + len(report.RWE) + len(report.News)
	if total == 0 {
		return types.NoData(fmt.Sprintf("no web results found for %s", scope)), nil
	}
	return types.StageResult{
		Available: true,
		Summary: fmt.Sprintf("Web intelligence for %s: %d guidelines, %d rwe, %d news.",
			scope, len(report.Guidelines), len(report.RWE), len(report.News)),
		Data: report,
	}, nil
}

// search fetches and parses one DuckDuckGo HTML result page, deduplicating
// hits by URL and capping at the configured maximum. Results are cached per
// query string.
func (s *Stage) search(ctx context.Context, query string) ([]Hit, error) {
	if hits, ok := s.cache.Get(query); ok {
		return hits, nil
	}

	params := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	seen := make(map[string]bool)
	var hits []Hit
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := decodeResultURL(href)
		if target == "" || seen[target] {
			return true
		}
		seen[target] = true
		hits = append(hits, Hit{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
		})
		return len(hits) < s.cfg.MaxResults
	})

	s.cache.Add(query, hits)
	return hits, nil
}

// decodeResultURL unwraps DuckDuckGo's redirect links, which carry the real
// destination in the uddg query parameter.
func decodeResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
