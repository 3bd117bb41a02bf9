package engine

import (
	"context"
	"testing"

	"webrecon/pkg/types"
)

// stubEngine is a named engine with scripted availability.
type stubEngine struct {
	name      string
	available bool
}

func (s stubEngine) Name() string    { return s.name }
func (s stubEngine) Available() bool { return s.available }
func (s stubEngine) Crawl(context.Context, Request) (*types.CrawlResult, error) {
	return types.NewCrawlResult(s.name, "https://example.com"), nil
}

func TestSelector_ExplicitTag(t *testing.T) {
	sel := NewSelector([]string{"browser", "static"},
		stubEngine{name: "static", available: true},
		stubEngine{name: "browser", available: true},
	)

	eng, fail := sel.Select("static")
	if fail != nil {
		t.Fatalf("select static: %v", fail)
	}
	if eng.Name() != "static" {
		t.Errorf("selected %q", eng.Name())
	}
}

func TestSelector_ExplicitUnavailable(t *testing.T) {
	sel := NewSelector([]string{"browser", "static"},
		stubEngine{name: "static", available: true},
		stubEngine{name: "browser", available: false},
	)

	_, fail := sel.Select("browser")
	if fail == nil || fail.Kind != types.FailEngineUnavailable {
		t.Fatalf("expected engine_unavailable, got %v", fail)
	}
}

func TestSelector_UnknownTag(t *testing.T) {
	sel := NewSelector([]string{"static"}, stubEngine{name: "static", available: true})

	_, fail := sel.Select("scrapy")
	if fail == nil || fail.Kind != types.FailMalformedInput {
		t.Fatalf("expected malformed_input, got %v", fail)
	}
}

func TestSelector_AutoPrefersOrder(t *testing.T) {
	sel := NewSelector([]string{"browser", "static"},
		stubEngine{name: "static", available: true},
		stubEngine{name: "browser", available: true},
	)

	for _, tag := range []string{"", "auto", "AUTO"} {
		eng, fail := sel.Select(tag)
		if fail != nil {
			t.Fatalf("Select(%q): %v", tag, fail)
		}
		if eng.Name() != "browser" {
			t.Errorf("Select(%q) = %q, want browser first", tag, eng.Name())
		}
	}
}

func TestSelector_AutoFallsBack(t *testing.T) {
	sel := NewSelector([]string{"browser", "static"},
		stubEngine{name: "static", available: true},
		stubEngine{name: "browser", available: false},
	)

	eng, fail := sel.Select("auto")
	if fail != nil {
		t.Fatalf("select auto: %v", fail)
	}
	if eng.Name() != "static" {
		t.Errorf("auto should skip unavailable engines, picked %q", eng.Name())
	}
}

func TestSelector_AutoNoneAvailable(t *testing.T) {
	sel := NewSelector([]string{"browser"},
		stubEngine{name: "browser", available: false},
	)

	_, fail := sel.Select("auto")
	if fail == nil || fail.Kind != types.FailEngineUnavailable {
		t.Fatalf("expected engine_unavailable, got %v", fail)
	}
}

func TestSelector_Tags(t *testing.T) {
	sel := NewSelector([]string{"static"},
		stubEngine{name: "static", available: true},
		stubEngine{name: "browser", available: false},
	)

	tags := sel.Tags()
	if !tags["static"] || tags["browser"] {
		t.Errorf("tags = %v", tags)
	}
}
