package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/meshintel/pharmintel/pkg/types"
)

func ok(summary string) Attempt {
	return Attempt{Name: "ok", Fetch: func(context.Context) (types.StageResult, error) {
		return types.StageResult{Available: true, Summary: summary}, nil
	}}
}

func empty(message string) Attempt {
	return Attempt{Name: "empty", Fetch: func(context.Context) (types.StageResult, error) {
		return types.NoData(message), nil
	}}
}

func failing(name string, err error) Attempt {
	return Attempt{Name: name, Fetch: func(context.Context) (types.StageResult, error) {
		return types.StageResult{}, err
	}}
}

func TestFirstSuccessWins(t *testing.T) {
	res := First(context.Background(), io.Discard, ok("live"), ok("fallback"))
	if !res.Available || res.Summary != "live" {
		t.Fatalf("expected first success, got %+v", res)
	}
}

func TestFirstSkipsFailedAttempt(t *testing.T) {
	var buf strings.Builder
	res := First(context.Background(), &buf,
		failing("live_api", errors.New("timeout")),
		ok("fallback"))
	if !res.Available || res.Summary != "fallback" {
		t.Fatalf("expected fallback success, got %+v", res)
	}
	if !strings.Contains(buf.String(), "live_api failed") {
		t.Errorf("expected warning about live_api, got %q", buf.String())
	}
}

func TestFirstEmptyBeatsError(t *testing.T) {
	res := First(context.Background(), io.Discard,
		failing("live_api", errors.New("timeout")),
		empty("no records for metformin"))
	if res.Available {
		t.Fatalf("expected no data, got %+v", res)
	}
	if res.Message != "no records for metformin" {
		t.Errorf("expected no-data message, got %+v", res)
	}
	if res.Error != "" {
		t.Errorf("no-data result must not carry an error, got %q", res.Error)
	}
}

func TestFirstAllErrors(t *testing.T) {
	res := First(context.Background(), io.Discard,
		failing("live_api", errors.New("timeout")),
		failing("local_dataset", errors.New("file missing")))
	if res.Available {
		t.Fatalf("expected failure, got %+v", res)
	}
	for _, want := range []string{"live_api: timeout", "local_dataset: file missing"} {
		if !strings.Contains(res.Error, want) {
			t.Errorf("error %q missing %q", res.Error, want)
		}
	}
}

func TestFirstNoAttempts(t *testing.T) {
	res := First(context.Background(), io.Discard)
	if res.Available || res.Error == "" {
		t.Fatalf("expected failure, got %+v", res)
	}
}
