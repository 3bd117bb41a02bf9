package enrich

import (
	"reflect"
	"testing"

	"webrecon/pkg/types"
)

func TestEnrich_NilResult(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Enrich(nil, nil); err != ErrNilResult {
		t.Fatalf("expected ErrNilResult, got %v", err)
	}
}

func TestEnrich_ZeroDefaults(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineBrowser, "https://example.com")
	result.JavaScriptRendered = true

	record, err := p.Enrich(result, nil)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}

	n := record.NormalizedCrawl
	if n.StatusCode != 0 {
		t.Errorf("browser crawl should carry status 0, got %d", n.StatusCode)
	}
	if !n.JavaScriptEnabled {
		t.Error("javascript_enabled should be true for the browser engine")
	}
	if n.TotalLinks != 0 || n.FormsCount != 0 || n.InputsCount != 0 {
		t.Errorf("empty crawl should normalize to zeros, got %+v", n)
	}
	if record.NetworkContext.IPAddresses == nil || record.NetworkContext.OpenPorts == nil || record.NetworkContext.Services == nil {
		t.Errorf("missing scan should yield empty, non-nil network context: %+v", record.NetworkContext)
	}
	if len(record.SensitiveFields) != 0 || len(record.InjectableParameters) != 0 {
		t.Errorf("empty crawl should have no annotations: %+v", record)
	}
}

func TestEnrich_DeepUsesAggregates(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineDeep, "https://example.com")
	result.Links.Internal = []string{"https://example.com/a"}
	result.Forms = []types.Form{{Method: "GET"}}
	result.TotalLinks = 42
	result.TotalForms = 7
	result.TotalInputs = 19

	record, err := p.Enrich(result, nil)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	n := record.NormalizedCrawl
	if n.TotalLinks != 42 || n.FormsCount != 7 || n.InputsCount != 19 {
		t.Errorf("deep normalization should use aggregates, got %+v", n)
	}
	if n.InternalLinks != 1 {
		t.Errorf("internal links should still come from the seed page, got %d", n.InternalLinks)
	}
}

func TestEnrich_Redirected(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineStatic, "https://example.com")
	result.ResolvedURL = "https://example.com/home"

	record, _ := p.Enrich(result, nil)
	if !record.NormalizedCrawl.Redirected {
		t.Error("differing resolved URL should mark redirected")
	}

	result.ResolvedURL = result.URL
	record, _ = p.Enrich(result, nil)
	if record.NormalizedCrawl.Redirected {
		t.Error("same resolved URL should not mark redirected")
	}
}

func TestSensitiveFields_CaseInsensitiveOverNameAndType(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineStatic, "https://example.com")
	result.Forms = []types.Form{{
		Method: "POST",
		Fields: []types.Field{
			{Type: "text", Name: "USER_PASSWORD"},
			{Type: "password", Name: "unnamed"},
			{Type: "text", Name: "comment"},
		},
	}}
	result.Inputs = []types.Input{
		{Type: "text", Name: "Api_Token"},
		{Type: "text", Name: "city"},
	}

	record, _ := p.Enrich(result, nil)
	if len(record.SensitiveFields) != 3 {
		t.Fatalf("expected 3 sensitive fields, got %d: %+v", len(record.SensitiveFields), record.SensitiveFields)
	}
	if record.SensitiveFields[0].Name != "USER_PASSWORD" {
		t.Errorf("keyword match should be case-insensitive on name, got %+v", record.SensitiveFields[0])
	}
	if record.SensitiveFields[1].Type != "password" {
		t.Errorf("keyword match should also cover type, got %+v", record.SensitiveFields[1])
	}
}

func TestInjectableParameters_TypeFilterAndDedupe(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineStatic, "https://example.com")
	result.Inputs = []types.Input{
		{Type: "text", Name: "q"},
		{Type: "email", Name: "mail"},
		{Type: "number", Name: "age"},
		{Type: "search", Name: "q"},
		{Type: "url", Name: "site"},
		{Type: "hidden", Name: "csrf"},
		{Type: "checkbox", Name: "agree"},
		{Type: "submit", Name: "go"},
		{Type: "text", Name: ""},
	}

	record, _ := p.Enrich(result, nil)
	want := []string{"q", "mail", "age", "site"}
	if !reflect.DeepEqual(record.InjectableParameters, want) {
		t.Errorf("injectable parameters = %v, want %v", record.InjectableParameters, want)
	}
}

func TestEnrich_NetworkContextCopied(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineStatic, "https://example.com")
	summary := types.NewNetworkSummary("example.com")
	summary.Reachable = true
	summary.IPAddresses = []string{"93.184.216.34"}
	summary.OpenPorts = []int{80, 443}
	summary.Services = map[int]string{80: "HTTP", 443: "HTTPS"}

	record, _ := p.Enrich(result, summary)
	ctx := record.NetworkContext
	if !ctx.Reachable || len(ctx.IPAddresses) != 1 || len(ctx.OpenPorts) != 2 {
		t.Fatalf("network context not copied: %+v", ctx)
	}

	// The record must not alias the summary's slices.
	summary.OpenPorts[0] = 9999
	if ctx.OpenPorts[0] == 9999 {
		t.Error("network context should copy, not alias, the summary")
	}
}

func TestEnrich_Pure(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineStatic, "https://example.com")
	result.Inputs = []types.Input{{Type: "text", Name: "q"}}

	first, _ := p.Enrich(result, nil)
	second, _ := p.Enrich(result, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("enrichment should be deterministic for identical inputs")
	}
}

func TestContextFor_Projections(t *testing.T) {
	p := NewProcessor()
	result := types.NewCrawlResult(types.EngineStatic, "https://example.com")
	result.Inputs = []types.Input{{Type: "text", Name: "q"}, {Type: "password", Name: "pwd"}}
	summary := types.NewNetworkSummary("example.com")
	summary.OpenPorts = []int{443}
	summary.Services = map[int]string{443: "HTTPS"}
	summary.IPAddresses = []string{"93.184.216.34"}

	record, _ := p.Enrich(result, summary)

	sqli := p.ContextFor(record, types.ConsumerSQLInjection)
	if sqli.Network == nil || len(sqli.InjectableParameters) == 0 {
		t.Errorf("sql_injection context = %+v", sqli)
	}
	if sqli.OpenPorts != nil {
		t.Error("sql_injection context should not carry bare port lists")
	}

	xss := p.ContextFor(record, types.ConsumerXSS)
	if xss.Network != nil {
		t.Error("xss context should not carry network data")
	}
	if len(xss.InjectableParameters) == 0 {
		t.Errorf("xss context = %+v", xss)
	}

	network := p.ContextFor(record, types.ConsumerNetwork)
	if len(network.OpenPorts) != 1 || network.Services[443] != "HTTPS" || len(network.IPAddresses) != 1 {
		t.Errorf("network context = %+v", network)
	}
	if network.InjectableParameters != nil {
		t.Error("network context should not carry crawl annotations")
	}
}
