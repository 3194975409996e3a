package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/meshintel/pharmintel/internal/workflow"
	"github.com/meshintel/pharmintel/pkg/types"
)

func resultPage(links ...[2]string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, l := range links {
		fmt.Fprintf(&b,
			`<div class="result">
				<a class="result__a" href="%s">%s</a>
				<a class="result__snippet">snippet for %s</a>
			</div>`, l[0], l[1], l[1])
	}
	b.WriteString("</body></html>")
	return b.String()
}

func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := searchBase
	searchBase = ts.URL + "/"
	t.Cleanup(func() { searchBase = old })
}

func newStage(t *testing.T, cfg types.WebSearchConfig) *Stage {
	t.Helper()
	s, err := New(cfg, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunTopicalQueries(t *testing.T) {
	var queries []string
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		io.WriteString(w, resultPage(
			[2]string{"https://example.org/one", "Result one"},
			[2]string{"https://example.org/two", "Result two"},
		))
	})

	s := newStage(t, types.WebSearchConfig{})
	res, err := s.Run(context.Background(), workflow.StageQuery{
		workflow.KeyMolecule: "metformin",
		workflow.KeyDisease:  "NAFLD",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("expected data, got %+v", res)
	}

	if len(queries) != 3 {
		t.Fatalf("expected 3 topical queries, got %v", queries)
	}
	joined := strings.Join(queries, "|")
	for _, want := range []string{"clinical practice guideline", "real world evidence study", "latest news"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing topical query %q in %v", want, queries)
		}
	}

	report := res.Data.(Report)
	if report.Scope != "metformin NAFLD" {
		t.Errorf("scope = %q", report.Scope)
	}
	if len(report.Guidelines) != 2 || len(report.RWE) != 2 || len(report.News) != 2 {
		t.Errorf("unexpected hit counts: %+v", report)
	}
	if !strings.Contains(res.Summary, "2 guidelines, 2 rwe, 2 news") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestRunFreeTextQueryWins(t *testing.T) {
	var firstQuery string
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if firstQuery == "" {
			firstQuery = r.URL.Query().Get("q")
		}
		io.WriteString(w, resultPage([2]string{"https://example.org/a", "A"}))
	})

	s := newStage(t, types.WebSearchConfig{})
	_, err := s.Run(context.Background(), workflow.StageQuery{
		workflow.KeyQuery:    "biosimilars in oncology",
		workflow.KeyMolecule: "metformin",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(firstQuery, "biosimilars in oncology") {
		t.Errorf("free text should drive the search, got %q", firstQuery)
	}
}

func TestSearchDecodesRedirectsAndDedupes(t *testing.T) {
	redirect := "//duckduckgo.com/l/?uddg=" + url.QueryEscape("https://example.org/target") + "&rut=abc"
	withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, resultPage(
			[2]string{redirect, "Wrapped"},
			[2]string{"https://example.org/target", "Duplicate"},
			[2]string{"https://example.org/other", "Other"},
		))
	})

	s := newStage(t, types.WebSearchConfig{})
	hits, err := s.search(context.Background(), "metformin")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected dedupe to 2 hits, got %+v", hits)
	}
	if hits[0].URL != "https://example.org/target" || hits[0].Title != "Wrapped" {
		t.Errorf("redirect not decoded: %+v", hits[0])
	}
}

func TestSearchCaches(t *testing.T) {
	var calls int32
	withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		io.WriteString(w, resultPage([2]string{"https://example.org/a", "A"}))
	})

	s := newStage(t, types.WebSearchConfig{})
	for i := 0; i < 3; i++ {
		if _, err := s.search(context.Background(), "metformin"); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestSearchMaxResults(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, resultPage(
			[2]string{"https://example.org/1", "1"},
			[2]string{"https://example.org/2", "2"},
			[2]string{"https://example.org/3", "3"},
		))
	})

	s := newStage(t, types.WebSearchConfig{MaxResults: 2})
	hits, err := s.search(context.Background(), "metformin")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("cap not applied: %+v", hits)
	}
}

func TestRunAllTopicsFail(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	s := newStage(t, types.WebSearchConfig{})
	if _, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"}); err == nil {
		t.Fatal("expected error when every topic fails")
	}
}

func TestRunNoResults(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "<html><body></body></html>")
	})

	s := newStage(t, types.WebSearchConfig{})
	res, err := s.Run(context.Background(), workflow.StageQuery{workflow.KeyMolecule: "metformin"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available || res.Message == "" {
		t.Fatalf("expected no-data result, got %+v", res)
	}
}

func TestRunMissingScope(t *testing.T) {
	s := newStage(t, types.WebSearchConfig{})
	if _, err := s.Run(context.Background(), workflow.StageQuery{}); err == nil {
		t.Fatal("expected required-parameter error")
	}
}
