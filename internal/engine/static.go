package engine

import (
	"context"
	"log/slog"

	"webrecon/internal/fetcher"
	"webrecon/internal/parser"
	"webrecon/pkg/types"
)

// StaticEngine fetches a single page over plain HTTP and extracts structure
// from the returned markup. No scripts run; what the server sends is what
// gets analysed.
type StaticEngine struct {
	fetcher *fetcher.HTTPFetcher
	logger  *slog.Logger
}

// NewStaticEngine constructs the static-HTML engine.
func NewStaticEngine(f *fetcher.HTTPFetcher, logger *slog.Logger) *StaticEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticEngine{fetcher: f, logger: logger}
}

func (e *StaticEngine) Name() string { return types.EngineStatic }

// Available always reports true; the HTTP client has no external dependency.
func (e *StaticEngine) Available() bool { return true }

// Crawl performs one GET and builds the canonical result.
func (e *StaticEngine) Crawl(ctx context.Context, req Request) (*types.CrawlResult, error) {
	target, fail := parseTarget(req.URL)
	if fail != nil {
		return nil, fail
	}

	page, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		e.logger.Warn("static fetch failed", "url", target.String(), "error", err)
		return nil, classifyFetchError(err)
	}
	if page.StatusCode >= 400 {
		return nil, types.HTTPFailure(page.StatusCode)
	}

	result := types.NewCrawlResult(types.EngineStatic, target.String())
	result.StatusCode = page.StatusCode
	result.PageSizeBytes = len(page.Body)
	if page.FinalURL != nil {
		result.ResolvedURL = page.FinalURL.String()
	}

	doc, err := parser.Parse(page.Body, target)
	if err != nil {
		e.logger.Debug("static parse failed", "url", target.String(), "error", err)
		return result, nil
	}

	result.Title = doc.Title()
	result.Links = doc.Links()
	result.Forms = doc.Forms()
	result.Inputs = doc.Inputs()
	result.MetaTags = doc.MetaTags()
	return result, nil
}
