// Package enrich fuses crawl results with network scan summaries into
// records shaped for downstream vulnerability scanners. Everything here is
// pure: same inputs, same record, no retained state.
package enrich

import (
	"errors"
	"strings"

	"webrecon/pkg/types"
)

// sensitiveKeywords flag fields whose name or type suggests credential or
// payment data.
var sensitiveKeywords = []string{
	"password", "pin", "secret", "token", "key", "api",
	"credit", "card", "cvv", "ssn", "auth",
}

// injectableTypes are the free-text input types worth probing with payloads.
var injectableTypes = map[string]struct{}{
	"text":   {},
	"email":  {},
	"number": {},
	"search": {},
	"url":    {},
}

// ErrNilResult is returned when fusion is asked to process a missing crawl.
var ErrNilResult = errors.New("enrich: crawl result is nil")

// Processor builds enriched records. It carries no state; the type exists so
// callers hold one collaborator rather than free functions.
type Processor struct{}

// NewProcessor returns a fusion processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Enrich fuses one crawl result with an optional network summary. A nil
// summary yields the explicit empty network context.
func (p *Processor) Enrich(result *types.CrawlResult, summary *types.NetworkSummary) (*types.EnrichedRecord, error) {
	if result == nil {
		return nil, ErrNilResult
	}

	record := &types.EnrichedRecord{
		SourceEngine:           result.Engine,
		TargetURL:              result.URL,
		NormalizedCrawl:        normalize(result),
		NetworkContext:         networkContext(summary),
		SensitiveFields:        sensitiveFields(result),
		InjectableParameters:   injectableParameters(result),
		AuthenticationRequired: result.Authenticated,
	}
	return record, nil
}

// normalize maps any engine's result onto the fixed projection. Fields an
// engine cannot know stay at their zero value.
func normalize(result *types.CrawlResult) types.NormalizedCrawl {
	n := types.NormalizedCrawl{
		StatusCode:        result.StatusCode,
		TotalLinks:        result.Links.Total(),
		InternalLinks:     len(result.Links.Internal),
		ExternalLinks:     len(result.Links.External),
		FormsCount:        len(result.Forms),
		InputsCount:       len(result.Inputs),
		PageSizeKB:        float64(result.PageSizeBytes) / 1024,
		JavaScriptEnabled: result.JavaScriptRendered,
		Authenticated:     result.Authenticated,
		Redirected:        result.ResolvedURL != "" && result.ResolvedURL != result.URL,
	}
	if result.Engine == types.EngineDeep {
		n.TotalLinks = result.TotalLinks
		n.FormsCount = result.TotalForms
		n.InputsCount = result.TotalInputs
	}
	return n
}

func networkContext(summary *types.NetworkSummary) types.NetworkContext {
	if summary == nil {
		return types.EmptyNetworkContext()
	}
	ctx := types.NetworkContext{
		IPAddresses: append([]string{}, summary.IPAddresses...),
		Reachable:   summary.Reachable,
		OpenPorts:   append([]int{}, summary.OpenPorts...),
		Services:    make(map[int]string, len(summary.Services)),
	}
	for port, name := range summary.Services {
		ctx.Services[port] = name
	}
	return ctx
}

// sensitiveFields collects every form field and bare input whose name or type
// contains a sensitive keyword, case-insensitively.
func sensitiveFields(result *types.CrawlResult) []types.Field {
	fields := []types.Field{}
	for _, f := range result.AllFields() {
		name := strings.ToLower(f.Name)
		typ := strings.ToLower(f.Type)
		for _, kw := range sensitiveKeywords {
			if strings.Contains(name, kw) || strings.Contains(typ, kw) {
				fields = append(fields, f)
				break
			}
		}
	}
	return fields
}

// injectableParameters returns the names of free-text inputs, in document
// order, deduplicated. Unnamed inputs are skipped.
func injectableParameters(result *types.CrawlResult) []string {
	seen := map[string]struct{}{}
	params := []string{}
	for _, in := range result.Inputs {
		if _, ok := injectableTypes[strings.ToLower(in.Type)]; !ok {
			continue
		}
		if in.Name == "" {
			continue
		}
		if _, dup := seen[in.Name]; dup {
			continue
		}
		seen[in.Name] = struct{}{}
		params = append(params, in.Name)
	}
	return params
}

// ContextFor projects an enriched record for one scanner consumer. Unknown
// consumers get only the target URL.
func (p *Processor) ContextFor(record *types.EnrichedRecord, consumer string) *types.ScannerContext {
	if record == nil {
		return nil
	}
	ctx := &types.ScannerContext{Consumer: consumer, TargetURL: record.TargetURL}
	switch consumer {
	case types.ConsumerSQLInjection:
		ctx.SensitiveFields = record.SensitiveFields
		ctx.InjectableParameters = record.InjectableParameters
		network := record.NetworkContext
		ctx.Network = &network
	case types.ConsumerXSS:
		ctx.SensitiveFields = record.SensitiveFields
		ctx.InjectableParameters = record.InjectableParameters
	case types.ConsumerNetwork:
		ctx.OpenPorts = record.NetworkContext.OpenPorts
		ctx.Services = record.NetworkContext.Services
		ctx.IPAddresses = record.NetworkContext.IPAddresses
	}
	return ctx
}
